// Command indexer builds the vector index and citation graph from a corpus
// directory. It runs one-shot by default; -listen turns it into a NATS job
// consumer and -publish enqueues the corpus as jobs for a consumer pool.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/NormaAI/norma-mvp/engine/chunk"
	"github.com/NormaAI/norma-mvp/engine/domain"
	"github.com/NormaAI/norma-mvp/engine/embed"
	"github.com/NormaAI/norma-mvp/engine/extract"
	"github.com/NormaAI/norma-mvp/engine/graph"
	"github.com/NormaAI/norma-mvp/engine/index"
	"github.com/NormaAI/norma-mvp/engine/semantic"
	"github.com/NormaAI/norma-mvp/pkg/config"
	"github.com/NormaAI/norma-mvp/pkg/metrics"
	"github.com/NormaAI/norma-mvp/pkg/resilience"
)

var met = metrics.New()

func main() {
	_ = godotenv.Load()

	var (
		configPath  = flag.String("config", envOr("NORMA_CONFIG", "norma.yaml"), "path to the shared YAML config")
		dir         = flag.String("dir", "", "corpus directory (overrides config data_dir)")
		rebuild     = flag.Bool("rebuild", false, "re-index unchanged files, clearing their old points first")
		listen      = flag.Bool("listen", false, "consume indexing jobs from NATS instead of walking the corpus")
		publish     = flag.Bool("publish", false, "enqueue the corpus as NATS jobs and exit")
		noGraph     = flag.Bool("no-graph", false, "skip Neo4j: vectors only, no citation graph or source registry")
		manifest    = flag.String("manifest", "", "manifest path (default <data_dir>/.manifest.json)")
		metricsPort = flag.Int("metrics-port", 9091, "metrics listen port")
	)
	flag.Parse()

	log := slog.Default()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	met.CollectRuntime(ctx, 15*time.Second)
	met.ServeAsync(*metricsPort)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("config load failed", "path", *configPath, "error", err)
		os.Exit(1)
	}
	corpusDir := cfg.DataDir
	if *dir != "" {
		corpusDir = *dir
	}

	patterns, err := headerPatterns(cfg.Chunking.HeaderWords)
	if err != nil {
		log.Error("bad header pattern", "error", err)
		os.Exit(1)
	}

	// Embedding client
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
		log.Error("embedding client failed", "error", err)
		os.Exit(1)
	}
	dims := embedder.Dimension()
	if dims == 0 {
		if dims, err = embed.Probe(ctx, embedder); err != nil {
			log.Error("dimension probe failed", "error", err)
			os.Exit(1)
		}
	}
	log.Info("using embeddings", "client", embedder.Name(), "dims", dims)

	// Connect Qdrant
	vs, err := semantic.New(cfg.Qdrant.Addr, cfg.Qdrant.Collection)
	if err != nil {
		log.Error("qdrant connect failed", "error", err)
		os.Exit(1)
	}
	defer vs.Close()
	if err := vs.EnsureCollection(ctx, dims); err != nil {
		log.Error("qdrant ensure collection failed", "error", err)
		os.Exit(1)
	}
	log.Info("connected to Qdrant", "collection", cfg.Qdrant.Collection)

	// Connect Neo4j unless running vectors-only
	deps := index.Deps{
		Embedder:     embedder,
		Vectors:      vs,
		Params:       chunk.Params{TargetTokens: cfg.Chunking.TargetTokens, OverlapTokens: cfg.Chunking.OverlapTokens},
		Patterns:     patterns,
		ChunkCap:     cfg.Chunking.MaxChunksPerDoc,
		EmbedBatch:   cfg.Embedding.BatchSize,
		EmbedWorkers: cfg.Embedding.Concurrency,
		Limiter:      resilience.NewLimiter(resilience.LimiterOpts{Rate: 8, Burst: 8}),
		Breaker:      resilience.NewBreaker(resilience.DefaultBreakerOpts),
		Logger:       log,
		Metrics:      met,
	}
	if !*noGraph {
		driver, err := neo4j.NewDriverWithContext(cfg.Neo4j.URI, neo4j.BasicAuth(cfg.Neo4j.User, cfg.Neo4j.Password(), ""))
		if err != nil {
			log.Error("neo4j connect failed", "error", err)
			os.Exit(1)
		}
		defer driver.Close(ctx)
		if err := driver.VerifyConnectivity(ctx); err != nil {
			log.Error("neo4j verify failed", "error", err)
			os.Exit(1)
		}
		gs := graph.New(driver)
		deps.Graph = gs
		deps.Registry = gs
		log.Info("connected to Neo4j")
	}

	manifestPath := *manifest
	if manifestPath == "" {
		manifestPath = filepath.Join(corpusDir, ".manifest.json")
	}
	mf, err := index.LoadManifest(manifestPath)
	if err != nil {
		log.Error("manifest load failed", "path", manifestPath, "error", err)
		os.Exit(1)
	}

	ix, err := index.New(deps, mf)
	if err != nil {
		log.Error("indexer init failed", "error", err)
		os.Exit(1)
	}

	switch {
	case *publish:
		publishJobs(ctx, cfg.NATS.URL, corpusDir, *rebuild, log)
	case *listen:
		consumeJobs(ctx, cfg.NATS.URL, ix, log)
	default:
		start := time.Now()
		sum, err := ix.IndexDir(ctx, corpusDir, *rebuild)
		if err != nil {
			log.Error("index run failed", "dir", corpusDir, "error", err)
			os.Exit(1)
		}
		log.Info("index run done",
			"dir", corpusDir,
			"indexed", sum.Indexed,
			"skipped", sum.Skipped,
			"failed", sum.Failed,
			"chunks", sum.Chunks,
			"took", time.Since(start).Round(time.Millisecond),
		)
		if sum.Failed > 0 {
			os.Exit(1)
		}
	}
}

// publishJobs enqueues one job per corpus file and exits.
func publishJobs(ctx context.Context, natsURL, dir string, rebuild bool, log *slog.Logger) {
	nc, err := nats.Connect(natsURL)
	if err != nil {
		log.Error("nats connect failed", "url", natsURL, "error", err)
		os.Exit(1)
	}
	defer nc.Drain()

	files, err := extract.List(dir)
	if err != nil {
		log.Error("corpus walk failed", "dir", dir, "error", err)
		os.Exit(1)
	}
	published := 0
	for _, f := range files {
		if ctx.Err() != nil {
			break
		}
		if err := index.PublishJob(ctx, nc, index.Job{Path: f, Rebuild: rebuild}); err != nil {
			log.Error("publish failed", "path", f, "error", err)
			continue
		}
		published++
	}
	log.Info("jobs published", "count", published, "of", len(files))
}

// consumeJobs joins the indexer queue group and works jobs until signalled.
func consumeJobs(ctx context.Context, natsURL string, ix *index.Indexer, log *slog.Logger) {
	nc, err := nats.Connect(natsURL,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		log.Error("nats connect failed", "url", natsURL, "error", err)
		os.Exit(1)
	}
	defer nc.Drain()

	sub, err := index.StartConsumer(nc, ix, log)
	if err != nil {
		log.Error("subscribe failed", "error", err)
		os.Exit(1)
	}
	defer sub.Unsubscribe()

	log.Info("consuming indexing jobs", "subject", index.SubjectDocs, "queue", index.QueueGroup)
	<-ctx.Done()
	log.Info("shutting down")
}

// headerPatterns compiles the configured article words, falling back to the
// built-in table when the config names none.
func headerPatterns(words []string) ([]domain.HeaderPattern, error) {
	if len(words) == 0 {
		return nil, nil
	}
	out := make([]domain.HeaderPattern, 0, len(words))
	for _, w := range words {
		p, err := domain.NewHeaderPattern(w, w)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
