package embed

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini embeds through the Google GenAI API.
type Gemini struct {
	client *genai.Client
	model  *genai.EmbeddingModel
	name   string
	dim    int
}

// NewGemini opens a GenAI client for the given embedding model. Dimension 0
// picks the known width of text-embedding-004.
func NewGemini(ctx context.Context, apiKey, model string, dim int) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: missing api key")
	}
	if model == "" {
		model = "text-embedding-004"
	}
	if dim == 0 && model == "text-embedding-004" {
		dim = 768
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Gemini{
		client: client,
		model:  client.EmbeddingModel(model),
		name:   model,
		dim:    dim,
	}, nil
}

func (g *Gemini) Name() string   { return "gemini/" + g.name }
func (g *Gemini) Dimension() int { return g.dim }

// EmbedDocuments batches all texts into a single BatchEmbedContents call.
func (g *Gemini) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	batch := g.model.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}
	res, err := g.model.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("gemini embed batch: %w", err)
	}
	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini embed batch: got %d vectors for %d texts", len(res.Embeddings), len(texts))
	}
	out := make([][]float32, len(res.Embeddings))
	for i, e := range res.Embeddings {
		out[i] = e.Values
	}
	return out, nil
}

func (g *Gemini) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	res, err := g.model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	return res.Embedding.Values, nil
}

// Close releases the underlying API client.
func (g *Gemini) Close() error { return g.client.Close() }
