// Package embed turns text into vectors. It hides the embedding provider
// behind a small Client interface with OpenAI-compatible, Gemini, and Ollama
// implementations, so the index pipeline and the retrieval service never
// care which model produced a vector.
package embed

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Client is a provider-agnostic embedding model.
type Client interface {
	// Name identifies the provider and model for logs and payloads.
	Name() string
	// Dimension is the configured vector width, 0 when unknown. Use Probe
	// to measure it.
	Dimension() int
	// EmbedDocuments embeds passages for indexing, preserving order.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedQuery embeds a search query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Options selects and configures a provider.
type Options struct {
	Provider  string // "openai", "gemini", or "ollama"
	Model     string
	BaseURL   string
	APIKey    string
	Dimension int
	Timeout   time.Duration
	// E5-family models need task prefixes; both empty leaves texts as-is.
	PassagePrefix string
	QueryPrefix   string
}

// New builds the configured client, wrapped with task prefixes when set.
func New(ctx context.Context, opts Options) (Client, error) {
	var (
		c   Client
		err error
	)
	switch strings.ToLower(opts.Provider) {
	case "openai", "":
		c, err = NewOpenAI(OpenAIConfig{
			BaseURL:   opts.BaseURL,
			APIKey:    opts.APIKey,
			Model:     opts.Model,
			Dimension: opts.Dimension,
			Timeout:   opts.Timeout,
		})
	case "gemini":
		c, err = NewGemini(ctx, opts.APIKey, opts.Model, opts.Dimension)
	case "ollama":
		c = NewOllama(opts.BaseURL, opts.Model, opts.Dimension)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", opts.Provider)
	}
	if err != nil {
		return nil, err
	}
	if opts.PassagePrefix != "" || opts.QueryPrefix != "" {
		c = WithPrefixes(c, opts.PassagePrefix, opts.QueryPrefix)
	}
	return c, nil
}

// WithPrefixes prepends E5-style task prefixes: passage before each indexed
// text, query before each search.
func WithPrefixes(c Client, passage, query string) Client {
	return &prefixed{inner: c, passage: passage, query: query}
}

type prefixed struct {
	inner          Client
	passage, query string
}

func (p *prefixed) Name() string   { return p.inner.Name() }
func (p *prefixed) Dimension() int { return p.inner.Dimension() }

func (p *prefixed) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if p.passage == "" {
		return p.inner.EmbedDocuments(ctx, texts)
	}
	prefixed := make([]string, len(texts))
	for i, t := range texts {
		prefixed[i] = p.passage + t
	}
	return p.inner.EmbedDocuments(ctx, prefixed)
}

func (p *prefixed) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return p.inner.EmbedQuery(ctx, p.query+text)
}

// Probe embeds a short string to measure the vector dimension. Collections
// are created from this when the configured dimension is zero.
func Probe(ctx context.Context, c Client) (int, error) {
	vec, err := c.EmbedQuery(ctx, "dim-probe")
	if err != nil {
		return 0, fmt.Errorf("dimension probe: %w", err)
	}
	return len(vec), nil
}
