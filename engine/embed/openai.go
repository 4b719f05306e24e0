package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// OpenAI talks to any OpenAI-compatible /embeddings endpoint.
type OpenAI struct {
	baseURL    string
	apiKey     string
	model      string
	dim        int
	maxRetries int
	client     *http.Client
}

// OpenAIConfig configures the client. Zero values get sensible defaults;
// the dimension defaults follow the text-embedding-3 models.
type OpenAIConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	Dimension int
	Timeout   time.Duration
}

// NewOpenAI validates the key and applies defaults.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: missing api key")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Dimension == 0 {
		switch {
		case strings.Contains(cfg.Model, "3-small"):
			cfg.Dimension = 1536
		case strings.Contains(cfg.Model, "3-large"):
			cfg.Dimension = 3072
		}
	}
	return &OpenAI{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dim:        cfg.Dimension,
		maxRetries: 5,
		client:     &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (c *OpenAI) Name() string   { return "openai/" + c.model }
func (c *OpenAI) Dimension() int { return c.dim }

type openaiRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openaiResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// EmbedDocuments sends all texts in one request and reassembles vectors by
// index, since the API does not guarantee response order.
func (c *OpenAI) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	payload, err := c.post(ctx, openaiRequest{Model: c.model, Input: texts})
	if err != nil {
		return nil, err
	}

	var resp openaiResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("openai embeddings decode: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embeddings: got %d vectors for %d texts", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("openai embeddings: index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

func (c *OpenAI) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// post retries 429 and 5xx responses, honoring Retry-After when the server
// sends one.
func (c *OpenAI) post(ctx context.Context, body openaiRequest) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.delay(attempt, lastErr)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = &statusError{status: resp.Status, retryAfter: resp.Header.Get("Retry-After")}
			resp.Body.Close()
			continue
		}
		if resp.StatusCode >= 300 {
			defer resp.Body.Close()
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
			return nil, fmt.Errorf("openai embeddings: %s: %s", resp.Status, snippet)
		}

		payload, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return payload, nil
	}
	return nil, fmt.Errorf("openai embeddings: retries exhausted: %w", lastErr)
}

type statusError struct {
	status     string
	retryAfter string
}

func (e *statusError) Error() string { return "openai embeddings: " + e.status }

// delay backs off exponentially from 200ms capped at 5s, unless the failed
// response named its own Retry-After.
func (c *OpenAI) delay(attempt int, lastErr error) time.Duration {
	var se *statusError
	if errors.As(lastErr, &se) && se.retryAfter != "" {
		if secs, err := strconv.Atoi(se.retryAfter); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	d := 200 * time.Millisecond << (attempt - 1)
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
