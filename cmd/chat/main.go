// Command chat is a terminal chat over the indexed corpus. Questions go
// through the same answer pipeline as the API; retrieved sources render in
// a footer with their scores and article numbers.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/NormaAI/norma-mvp/engine/embed"
	"github.com/NormaAI/norma-mvp/engine/graph"
	"github.com/NormaAI/norma-mvp/engine/llm"
	"github.com/NormaAI/norma-mvp/engine/rag"
	"github.com/NormaAI/norma-mvp/engine/semantic"
	"github.com/NormaAI/norma-mvp/pkg/config"
)

func main() {
	_ = godotenv.Load()

	var (
		configPath = flag.String("config", envOr("NORMA_CONFIG", "norma.yaml"), "path to the shared YAML config")
		law        = flag.String("law", "", "restrict retrieval to one document id")
		topK       = flag.Int("top-k", 6, "retrieved chunks per question")
	)
	flag.Parse()

	// The TUI owns the terminal; keep logs out of it.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	embedder, err := embed.New(ctx, embed.Options{
		Provider:      cfg.Embedding.Provider,
		Model:         cfg.Embedding.Model,
		BaseURL:       cfg.Embedding.BaseURL,
		APIKey:        cfg.Embedding.Key(),
		Dimension:     cfg.Embedding.Dimension,
		Timeout:       time.Duration(cfg.Embedding.TimeoutSecs) * time.Second,
		PassagePrefix: cfg.Embedding.PassagePrefix,
		QueryPrefix:   cfg.Embedding.QueryPrefix,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "embedding client: %v\n", err)
		os.Exit(1)
	}

	store, err := semantic.New(cfg.Qdrant.Addr, cfg.Qdrant.Collection)
	if err != nil {
		fmt.Fprintf(os.Stderr, "qdrant: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	// Graph context is optional in the chat: without Neo4j the answers
	// just lose the related-articles block.
	var enricher rag.CitationEnricher
	if driver, err := graph.Connect(ctx, cfg.Neo4j.URI, cfg.Neo4j.User, cfg.Neo4j.Password()); err == nil {
		defer driver.Close(ctx)
		enricher = graph.NewEnricher(graph.New(driver))
	} else {
		logger.Warn("neo4j unavailable, answering without citation graph", "err", err)
	}

	chat, err := llm.NewGemini(ctx, cfg.Gemini.Key(), cfg.Gemini.Model)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gemini: %v\n", err)
		os.Exit(1)
	}
	defer chat.Close()

	opts := rag.DefaultOptions()
	opts.TopK = *topK
	if cfg.Retrieval.MinScore > 0 {
		opts.MinScore = float32(cfg.Retrieval.MinScore)
	}
	if cfg.Retrieval.SearchTimeoutSecs > 0 {
		opts.SearchTimeout = time.Duration(cfg.Retrieval.SearchTimeoutSecs) * time.Second
	}
	svc := rag.New(embedder, store, enricher, chat, opts, logger)

	m := newModel(svc, *law)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "chat: %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
