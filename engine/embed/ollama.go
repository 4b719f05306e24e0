package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Ollama embeds through a local Ollama server. The API takes one prompt per
// request, so document batches are sequential.
type Ollama struct {
	baseURL string
	model   string
	dim     int
	client  *http.Client
}

// NewOllama defaults to the standard local port.
func NewOllama(baseURL, model string, dim int) *Ollama {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &Ollama{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		dim:     dim,
		client:  &http.Client{},
	}
}

func (c *Ollama) Name() string   { return "ollama/" + c.model }
func (c *Ollama) Dimension() int { return c.dim }

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaResponse struct {
	Embedding []float64 `json:"embedding"`
}

func (c *Ollama) embed(ctx context.Context, text string) ([]float32, error) {
	body, _ := json.Marshal(ollamaRequest{Model: c.model, Prompt: text})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama embed: status %d", resp.StatusCode)
	}

	var result ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("ollama embed decode: %w", err)
	}

	out := make([]float32, len(result.Embedding))
	for i, v := range result.Embedding {
		out[i] = float32(v)
	}
	return out, nil
}

func (c *Ollama) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := c.embed(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("embed %d/%d: %w", i+1, len(texts), err)
		}
		out[i] = vec
	}
	return out, nil
}

func (c *Ollama) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return c.embed(ctx, text)
}
