package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Gemini answers through the Google GenAI API.
type Gemini struct {
	client *genai.Client
	name   string
}

// NewGemini opens a GenAI client for the given chat model.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: missing api key")
	}
	if model == "" {
		model = "gemini-1.5-flash"
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Gemini{client: client, name: model}, nil
}

func (g *Gemini) Name() string { return "gemini/" + g.name }

// Complete sends the request as one chat turn and waits for the full reply.
func (g *Gemini) Complete(ctx context.Context, req Request) (Completion, error) {
	resp, err := g.session(req).SendMessage(ctx, genai.Text(req.Prompt))
	if err != nil {
		return Completion{}, fmt.Errorf("gemini chat: %w", err)
	}
	c := Completion{Text: responseText(resp), Model: g.name}
	if u := usageFrom(resp); u != nil {
		c.Usage = *u
	}
	return c, nil
}

// Stream sends the request and forwards response fragments as they arrive.
func (g *Gemini) Stream(ctx context.Context, req Request) (<-chan Chunk, error) {
	iter := g.session(req).SendMessageStream(ctx, genai.Text(req.Prompt))

	ch := make(chan Chunk)
	go func() {
		defer close(ch)
		for {
			resp, err := iter.Next()
			if errors.Is(err, iterator.Done) {
				return
			}
			if err != nil {
				ch <- Chunk{Err: fmt.Errorf("gemini stream: %w", err)}
				return
			}
			ch <- Chunk{Text: responseText(resp), Usage: usageFrom(resp)}
		}
	}()
	return ch, nil
}

// Close releases the underlying API client.
func (g *Gemini) Close() error { return g.client.Close() }

// session builds a fresh chat session per call. The genai model struct is
// mutated by configuration, so sharing one across goroutines is unsafe.
func (g *Gemini) session(req Request) *genai.ChatSession {
	m := g.client.GenerativeModel(g.name)
	if req.System != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
	if req.Temperature > 0 {
		m.SetTemperature(req.Temperature)
	}
	if req.MaxTokens > 0 {
		m.SetMaxOutputTokens(req.MaxTokens)
	}
	cs := m.StartChat()
	cs.History = toContents(req.History)
	return cs
}

// toContents converts conversation history to GenAI turns. Unknown roles
// are treated as user turns.
func toContents(history []Message) []*genai.Content {
	var contents []*genai.Content
	for _, msg := range history {
		if msg.Text == "" {
			continue
		}
		role := msg.Role
		if role != RoleModel {
			role = RoleUser
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(msg.Text)},
		})
	}
	return contents
}

// responseText concatenates the text parts of every candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
	}
	return b.String()
}

func usageFrom(resp *genai.GenerateContentResponse) *Usage {
	if resp == nil || resp.UsageMetadata == nil {
		return nil
	}
	return &Usage{
		PromptTokens: resp.UsageMetadata.PromptTokenCount,
		OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
		TotalTokens:  resp.UsageMetadata.TotalTokenCount,
	}
}
