package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NormaAI/norma-mvp/engine/rag"
)

// asker is the slice of the rag service the TUI calls.
type asker interface {
	Query(ctx context.Context, question, docID string) (*rag.Answer, error)
}

// answerMsg carries one finished answer back into the update loop.
type answerMsg struct {
	answer *rag.Answer
	err    error
}

// model is the Bubble Tea model: an input line, a scrollable transcript,
// and a sources footer for the latest answer.
type model struct {
	svc   asker
	law   string
	input textinput.Model
	view  viewport.Model

	transcript []string
	sources    []rag.Source
	status     string
	busy       bool
	ready      bool
	width      int
	height     int
}

func newModel(svc asker, law string) model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "დასვით კითხვა და დააჭირეთ Enter"
	ti.Focus()
	ti.CharLimit = 0

	status := "Ready."
	if law != "" {
		status = fmt.Sprintf("Ready. Retrieval restricted to %s.", law)
	}
	return model{
		svc:    svc,
		law:    law,
		input:  ti,
		view:   viewport.New(0, 0),
		status: status,
	}
}

func (m model) Init() tea.Cmd { return textinput.Blink }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.busy {
				return m, nil
			}
			m.busy = true
			m.status = "Thinking..."
			m.input.SetValue("")
			m.appendLine(questionStyle.Render("თქვენ: ") + q)
			return m, ask(m.svc, q, m.law)
		case "up":
			m.view.LineUp(1)
			return m, nil
		case "down":
			m.view.LineDown(1)
			return m, nil
		case "pgup":
			m.view.HalfViewUp()
			return m, nil
		case "pgdown":
			m.view.HalfViewDown()
			return m, nil
		}

	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			return m, nil
		}
		m.sources = msg.answer.Sources
		m.layout()
		m.appendLine(answerStyle.Render("ნორმა: ") + msg.answer.Text)
		m.appendLine("")
		m.status = fmt.Sprintf("%d sources | %s | %d tokens",
			len(msg.answer.Sources), msg.answer.Model, msg.answer.TokensUsed)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("Norma — კითხვები კანონმდებლობაზე")
	body := transcriptStyle.Render(m.view.View())
	input := inputStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)

	parts := []string{header, body, input}
	if footer := renderSources(m.sources); footer != "" {
		parts = append(parts, footer)
	}
	parts = append(parts, status)
	return strings.Join(parts, "\n")
}

// layout sizes the viewport to whatever the header, input box, sources
// footer, and status line leave of the terminal.
func (m *model) layout() {
	_, th := transcriptStyle.GetFrameSize()
	_, qh := inputStyle.GetFrameSize()
	reserved := 1 + qh + sourceLines(m.sources) + 1 // header, input box, footer, status
	vh := m.height - reserved - th
	if vh < 3 {
		vh = 3
	}
	m.view.Width = max(20, m.width-2)
	m.view.Height = vh
	m.view.SetContent(strings.Join(m.transcript, "\n"))
}

// appendLine adds a transcript line and keeps the viewport pinned to the
// latest text.
func (m *model) appendLine(line string) {
	m.transcript = append(m.transcript, line)
	m.view.SetContent(strings.Join(m.transcript, "\n"))
	m.view.GotoBottom()
}

// ask runs the blocking answer pipeline off the update loop.
func ask(svc asker, question, law string) tea.Cmd {
	return func() tea.Msg {
		answer, err := svc.Query(context.Background(), question, law)
		return answerMsg{answer: answer, err: err}
	}
}

// renderSources lays out the latest answer's citations, best first.
func renderSources(sources []rag.Source) string {
	if len(sources) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(sourceHeadStyle.Render("წყაროები:"))
	for i, s := range sources {
		label := s.Source
		if s.Article != "" {
			label += " | მუხლი " + s.Article
		}
		b.WriteString(fmt.Sprintf("\n%s", sourceStyle.Render(
			fmt.Sprintf("  [%d] %.3f  %s", i+1, s.Score, label))))
	}
	return b.String()
}

func sourceLines(sources []rag.Source) int {
	if len(sources) == 0 {
		return 0
	}
	return len(sources) + 1
}

var (
	headerStyle     = lipgloss.NewStyle().Bold(true)
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	questionStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	answerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	sourceHeadStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Bold(true)
	sourceStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)
