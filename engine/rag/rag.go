// Package rag orchestrates retrieval-augmented answering. It embeds a user
// question, searches the vector index, pulls related provisions from the
// citation graph, builds a grounded prompt, and asks the chat model for the
// final answer.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/NormaAI/norma-mvp/engine/graph"
	"github.com/NormaAI/norma-mvp/engine/llm"
	"github.com/NormaAI/norma-mvp/engine/semantic"
	"github.com/NormaAI/norma-mvp/pkg/artref"
)

// Embedder turns the question into a query vector.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// SemanticSearcher abstracts vector search over the chunk index.
type SemanticSearcher interface {
	Search(ctx context.Context, embedding []float32, opts semantic.SearchOpts) ([]semantic.SearchResult, error)
}

// CitationEnricher expands an article into its citation neighborhood.
type CitationEnricher interface {
	Related(ctx context.Context, docID, num string, limit int) ([]graph.RelatedArticle, error)
}

// Options configures the answer pipeline.
type Options struct {
	TopK          int
	MinScore      float32
	Temperature   float32
	MaxTokens     int32
	SystemPrompt  string
	UseGraph      bool
	SearchTimeout time.Duration
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		TopK:          6,
		Temperature:   0.3,
		MaxTokens:     1024,
		SystemPrompt:  defaultSystemPrompt,
		UseGraph:      true,
		SearchTimeout: 5 * time.Second,
	}
}

const defaultSystemPrompt = `შენ ხარ ნორმა, საქართველოს კანონმდებლობის დამხმარე.
უპასუხე კითხვას მხოლოდ მოწოდებულ კონტექსტზე დაყრდნობით. თუ კონტექსტი
საკმარისი არ არის, ასეც თქვი. ყოველ დებულებას მიუთითე წყაროს ნომერი [N] ფორმით.`

// Service is the answer orchestration service.
type Service struct {
	embed  Embedder
	search SemanticSearcher
	graph  CitationEnricher
	chat   llm.Chatter
	opts   Options
	logger *slog.Logger
}

// New creates a Service. The enricher may be nil when no graph is wired.
func New(embedder Embedder, search SemanticSearcher, enricher CitationEnricher, chat llm.Chatter, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		embed:  embedder,
		search: search,
		graph:  enricher,
		chat:   chat,
		opts:   opts,
		logger: logger,
	}
}

// Answer is the structured response of the pipeline.
type Answer struct {
	Text       string                 `json:"text"`
	Sources    []Source               `json:"sources"`
	Related    []graph.RelatedArticle `json:"related,omitempty"`
	TokensUsed int32                  `json:"tokens_used"`
	Model      string                 `json:"model"`
}

// Source is one retrieved chunk backing the answer.
type Source struct {
	ID           string  `json:"id"`
	Text         string  `json:"text"`
	DocID        string  `json:"doc_id"`
	Source       string  `json:"source,omitempty"`
	Article      string  `json:"article,omitempty"`
	SectionTitle string  `json:"section_title,omitempty"`
	Score        float32 `json:"score"`
}

// Query runs the full pipeline for a user question. A non-empty docID
// restricts retrieval to one law.
func (s *Service) Query(ctx context.Context, question, docID string) (*Answer, error) {
	prep, err := s.prepare(ctx, question, docID)
	if err != nil {
		return nil, err
	}

	resp, err := s.chat.Complete(ctx, prep.request)
	if err != nil {
		return nil, fmt.Errorf("rag: chat: %w", err)
	}

	answer := prep.answer
	answer.Text = resp.Text
	answer.TokensUsed = resp.Usage.TotalTokens
	answer.Model = s.chat.Name()
	return answer, nil
}

// QueryStream runs retrieval, then streams the model's answer. The returned
// Answer carries sources and related articles but no text; callers emit it
// before relaying chunks.
func (s *Service) QueryStream(ctx context.Context, question, docID string) (*Answer, <-chan llm.Chunk, error) {
	prep, err := s.prepare(ctx, question, docID)
	if err != nil {
		return nil, nil, err
	}

	ch, err := s.chat.Stream(ctx, prep.request)
	if err != nil {
		return nil, nil, fmt.Errorf("rag: chat stream: %w", err)
	}

	answer := prep.answer
	answer.Model = s.chat.Name()
	return answer, ch, nil
}

type prepared struct {
	answer  *Answer
	request llm.Request
}

// prepare runs everything up to the model call: embed, search, enrich, and
// prompt assembly.
func (s *Service) prepare(ctx context.Context, question, docID string) (prepared, error) {
	if strings.TrimSpace(question) == "" {
		return prepared{}, errors.New("rag: empty question")
	}
	s.logger.Info("rag query", "question_len", len(question), "doc_id", docID)

	embedding, err := s.embed.EmbedQuery(ctx, question)
	if err != nil {
		return prepared{}, fmt.Errorf("rag: embed query: %w", err)
	}

	searchCtx, cancel := context.WithTimeout(ctx, s.opts.SearchTimeout)
	defer cancel()

	results, err := s.search.Search(searchCtx, embedding, semantic.SearchOpts{
		TopK:     s.opts.TopK,
		MinScore: s.opts.MinScore,
		DocID:    docID,
	})
	if err != nil {
		return prepared{}, fmt.Errorf("rag: semantic search: %w", err)
	}
	s.logger.Info("rag search done", "results", len(results))

	var related []graph.RelatedArticle
	if s.opts.UseGraph && s.graph != nil {
		related = s.relatedArticles(ctx, question, results)
	}

	sources := make([]Source, len(results))
	for i, r := range results {
		sources[i] = Source{
			ID:           r.ID,
			Text:         r.Text,
			DocID:        r.DocID,
			Source:       r.Source,
			Article:      r.Article,
			SectionTitle: r.SectionTitle,
			Score:        r.Score,
		}
	}

	return prepared{
		answer: &Answer{Sources: sources, Related: related},
		request: llm.Request{
			System:      s.opts.SystemPrompt,
			Prompt:      buildPrompt(question, results, related),
			Temperature: s.opts.Temperature,
			MaxTokens:   s.opts.MaxTokens,
		},
	}, nil
}

// relatedArticles expands citation context around the articles the question
// names and the articles the top chunks came from. Failures are logged and
// skipped; the answer just loses graph context.
func (s *Service) relatedArticles(ctx context.Context, question string, results []semantic.SearchResult) []graph.RelatedArticle {
	type target struct{ docID, num string }
	var targets []target
	seen := make(map[string]bool)
	add := func(docID, num string) {
		if docID == "" || num == "" {
			return
		}
		key := graph.ArticleID(docID, num)
		if seen[key] {
			return
		}
		seen[key] = true
		targets = append(targets, target{docID: docID, num: num})
	}

	// References in the question itself rank first. A reference that names
	// no law is resolved against the best-matching chunk's law.
	defaultDoc := ""
	if len(results) > 0 {
		defaultDoc = results[0].DocID
	}
	for _, ref := range artref.Extract(question) {
		law := ref.Law
		if law == "" {
			law = defaultDoc
		}
		add(law, ref.Article)
	}
	for _, r := range results {
		add(r.DocID, r.Article)
	}

	const maxTargets = 3
	if len(targets) > maxTargets {
		targets = targets[:maxTargets]
	}

	var related []graph.RelatedArticle
	dedupe := make(map[string]bool)
	for _, t := range targets {
		neighbors, err := s.graph.Related(ctx, t.docID, t.num, 4)
		if err != nil {
			s.logger.Warn("rag: citation enrichment failed, continuing without", "err", err)
			break
		}
		for _, n := range neighbors {
			if dedupe[n.ID] || seen[n.ID] {
				continue
			}
			dedupe[n.ID] = true
			related = append(related, n)
		}
	}
	return related
}

// buildPrompt lays out numbered context blocks, related provisions, and the
// question in the format the system prompt announces.
func buildPrompt(question string, results []semantic.SearchResult, related []graph.RelatedArticle) string {
	var b strings.Builder
	b.WriteString("კონტექსტი:\n")
	for i, r := range results {
		fmt.Fprintf(&b, "[%d] წყარო: %s", i+1, r.Source)
		if r.Article != "" {
			fmt.Fprintf(&b, " | მუხლი: %s", r.Article)
		}
		if r.SectionTitle != "" {
			fmt.Fprintf(&b, " | %s", r.SectionTitle)
		}
		b.WriteString("\n")
		b.WriteString(r.Text)
		b.WriteString("\n\n")
	}

	if len(related) > 0 {
		b.WriteString("დაკავშირებული მუხლები:\n")
		for _, ra := range related {
			fmt.Fprintf(&b, "- %s, მუხლი %s (%s)", ra.DocID, ra.Num, relationLabel(ra.Relation))
			if ra.Title != "" {
				fmt.Fprintf(&b, ": %s", ra.Title)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("კითხვა: ")
	b.WriteString(question)
	return b.String()
}

func relationLabel(relation string) string {
	if relation == graph.RelationCitedBy {
		return "მოიხსენიება მასში"
	}
	return "იმოწმებს"
}
