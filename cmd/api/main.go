// Package main implements the Norma API server: citation-grounded question
// answering over the indexed legal corpus, article lookups backed by the
// citation graph, and corpus statistics.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/NormaAI/norma-mvp/engine/embed"
	"github.com/NormaAI/norma-mvp/engine/graph"
	"github.com/NormaAI/norma-mvp/engine/llm"
	"github.com/NormaAI/norma-mvp/engine/rag"
	"github.com/NormaAI/norma-mvp/engine/semantic"
	"github.com/NormaAI/norma-mvp/pkg/config"
	"github.com/NormaAI/norma-mvp/pkg/metrics"
	"github.com/NormaAI/norma-mvp/pkg/mid"
	"github.com/NormaAI/norma-mvp/pkg/repo"
)

var met = metrics.New()

var (
	mAsks        = met.Counter("norma_api_asks_total", "Questions answered.")
	mAskErrors   = met.Counter("norma_api_ask_errors_total", "Questions that failed.")
	mAskDuration = met.Histogram("norma_api_ask_seconds", "End-to-end answer latency.", nil)
)

// defaultLaw is the document the article endpoint reads when the request
// names no law. The corpus centers on the civil code.
const defaultLaw = "civil-code"

// Config holds the per-process settings not covered by the shared file.
type Config struct {
	ConfigPath string
	Port       string
	CORSOrigin string
}

func loadFlags() Config {
	cfg := Config{}
	flag.StringVar(&cfg.ConfigPath, "config", envOr("NORMA_CONFIG", "norma.yaml"), "path to the shared YAML config")
	flag.StringVar(&cfg.Port, "port", envOr("PORT", "8080"), "HTTP listen port")
	flag.StringVar(&cfg.CORSOrigin, "cors", envOr("CORS_ORIGIN", "*"), "allowed CORS origin")
	flag.Parse()
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadFlags()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shared, err := config.Load(cfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", cfg.ConfigPath, err)
	}

	// --- Connect to Qdrant ---
	vectorStore, err := semantic.New(shared.Qdrant.Addr, shared.Qdrant.Collection)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer vectorStore.Close()

	// --- Connect to Neo4j ---
	driver, err := graph.Connect(ctx, shared.Neo4j.URI, shared.Neo4j.User, shared.Neo4j.Password())
	if err != nil {
		return fmt.Errorf("neo4j connect: %w", err)
	}
	defer driver.Close(ctx)
	graphStore := graph.New(driver)

	// --- Embedding client ---
	embedder, err := embed.New(ctx, embed.Options{
		Provider:      shared.Embedding.Provider,
		Model:         shared.Embedding.Model,
		BaseURL:       shared.Embedding.BaseURL,
		APIKey:        shared.Embedding.Key(),
		Dimension:     shared.Embedding.Dimension,
		Timeout:       time.Duration(shared.Embedding.TimeoutSecs) * time.Second,
		PassagePrefix: shared.Embedding.PassagePrefix,
		QueryPrefix:   shared.Embedding.QueryPrefix,
	})
	if err != nil {
		return fmt.Errorf("embedding client: %w", err)
	}

	// --- Chat model ---
	chat, err := llm.NewGemini(ctx, shared.Gemini.Key(), shared.Gemini.Model)
	if err != nil {
		return fmt.Errorf("gemini client: %w", err)
	}
	defer chat.Close()

	// --- Answer service ---
	opts := rag.DefaultOptions()
	if shared.Retrieval.TopK > 0 {
		opts.TopK = shared.Retrieval.TopK
	}
	if shared.Retrieval.MinScore > 0 {
		opts.MinScore = float32(shared.Retrieval.MinScore)
	}
	if shared.Retrieval.SearchTimeoutSecs > 0 {
		opts.SearchTimeout = time.Duration(shared.Retrieval.SearchTimeoutSecs) * time.Second
	}
	ragSvc := rag.New(embedder, vectorStore, graph.NewEnricher(graphStore), chat, opts, logger)

	met.CollectRuntime(ctx, 15*time.Second)

	// --- HTTP server ---
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/health", handleHealth)
	mux.HandleFunc("POST /api/v1/ask", handleAsk(ragSvc, logger))
	mux.HandleFunc("POST /api/v1/ask/stream", handleAskStream(ragSvc, logger))
	mux.HandleFunc("GET /api/v1/articles/{num}", handleArticle(graphStore, vectorStore, logger))
	mux.HandleFunc("GET /api/v1/laws/{law}/articles", handleLawArticles(graphStore, logger))
	mux.HandleFunc("GET /api/v1/path", handlePath(graphStore, logger))
	mux.HandleFunc("GET /api/v1/stats", handleStats(graphStore, vectorStore, shared.Qdrant.Collection, logger))
	mux.Handle("GET /metrics", met.Handler())

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.Logger(logger),
		mid.CORS(cfg.CORSOrigin),
		mid.MaxBody(1<<20),
		mid.OTel("norma-api"),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port, "embedder", embedder.Name(), "chat", chat.Name())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// --- Handler seams ---

// answerer is the slice of the rag service the ask handlers call.
type answerer interface {
	Query(ctx context.Context, question, docID string) (*rag.Answer, error)
	QueryStream(ctx context.Context, question, docID string) (*rag.Answer, <-chan llm.Chunk, error)
}

// articleReader is the slice of the graph store the article endpoint reads.
type articleReader interface {
	GetArticle(ctx context.Context, docID, num string) (graph.Article, error)
	CitedArticles(ctx context.Context, docID, num string) ([]graph.Article, error)
	CitingArticles(ctx context.Context, docID, num string) ([]graph.Article, error)
}

// chunkLister pages stored chunks by payload filter.
type chunkLister interface {
	Scroll(ctx context.Context, filters map[string]string, limit int) ([]semantic.SearchResult, error)
}

// lawReader lists the articles the graph holds for one law.
type lawReader interface {
	ArticlesOfLaw(ctx context.Context, docID string) ([]graph.Article, error)
}

// pathFinder resolves citation chains between two articles.
type pathFinder interface {
	CitationPath(ctx context.Context, fromDocID, fromNum, toDocID, toNum string) ([]graph.Article, error)
}

// statsSource aggregates the graph-side numbers the stats endpoint reports.
type statsSource interface {
	NodeCounts(ctx context.Context) (map[string]int64, error)
	RelationshipCounts(ctx context.Context) (map[string]int64, error)
	LawOverview(ctx context.Context) ([]graph.LawStats, error)
	TopCited(ctx context.Context, limit int) ([]graph.ArticleStats, error)
	SourceStats(ctx context.Context) (graph.SourceStats, error)
	RecentlyIndexed(ctx context.Context, limit int) ([]graph.SourceEntry, error)
}

// vectorCounter reports the point count of the collection.
type vectorCounter interface {
	Count(ctx context.Context) (uint64, error)
}

// --- Handlers ---

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// AskRequest is the JSON body for POST /api/v1/ask and /api/v1/ask/stream.
// Law restricts retrieval to one document when set.
type AskRequest struct {
	Question string `json:"question"`
	Law      string `json:"law,omitempty"`
}

// AskResponse is the JSON response for POST /api/v1/ask.
type AskResponse struct {
	Answer  string                 `json:"answer"`
	Sources []rag.Source           `json:"sources"`
	Related []graph.RelatedArticle `json:"related,omitempty"`
	Model   string                 `json:"model"`
	Tokens  int32                  `json:"tokens_used"`
}

func decodeAsk(w http.ResponseWriter, r *http.Request) (AskRequest, bool) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return req, false
	}
	if strings.TrimSpace(req.Question) == "" {
		http.Error(w, `{"error":"question is required"}`, http.StatusBadRequest)
		return req, false
	}
	return req, true
}

func handleAsk(svc answerer, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeAsk(w, r)
		if !ok {
			return
		}

		start := time.Now()
		answer, err := svc.Query(r.Context(), req.Question, req.Law)
		mAskDuration.Since(start)
		if err != nil {
			mAskErrors.Inc()
			logger.Error("ask failed", "err", err)
			http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
			return
		}
		mAsks.Inc()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(AskResponse{
			Answer:  answer.Text,
			Sources: answer.Sources,
			Related: answer.Related,
			Model:   answer.Model,
			Tokens:  answer.TokensUsed,
		})
	}
}

// handleAskStream answers over SSE: a "sources" event with the retrieved
// context, "token" events as the model produces text, then "done" with the
// token count. Errors after the stream opened arrive as an "error" event,
// since the status line is already written.
func handleAskStream(svc answerer, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeAsk(w, r)
		if !ok {
			return
		}

		flusher, canFlush := w.(http.Flusher)
		if !canFlush {
			http.Error(w, `{"error":"streaming not supported"}`, http.StatusInternalServerError)
			return
		}

		start := time.Now()
		answer, chunks, err := svc.QueryStream(r.Context(), req.Question, req.Law)
		if err != nil {
			mAskErrors.Inc()
			logger.Error("ask stream failed", "err", err)
			http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		writeEvent(w, flusher, "sources", map[string]any{
			"sources": answer.Sources,
			"related": answer.Related,
			"model":   answer.Model,
		})

		var tokens int32
		for chunk := range chunks {
			if chunk.Err != nil {
				mAskErrors.Inc()
				logger.Error("stream chunk error", "err", chunk.Err)
				writeEvent(w, flusher, "error", map[string]string{"error": "generation failed"})
				return
			}
			if chunk.Usage != nil {
				tokens = chunk.Usage.TotalTokens
			}
			if chunk.Text != "" {
				writeEvent(w, flusher, "token", map[string]string{"token": chunk.Text})
			}
		}

		mAsks.Inc()
		mAskDuration.Since(start)
		writeEvent(w, flusher, "done", map[string]any{"tokens_used": tokens})
	}
}

func writeEvent(w http.ResponseWriter, flusher http.Flusher, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	flusher.Flush()
}

// ArticleChunk is one stored window of the article's text.
type ArticleChunk struct {
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// ArticleResponse is the JSON response for GET /api/v1/articles/{num}.
type ArticleResponse struct {
	Article graph.Article   `json:"article"`
	Cites   []graph.Article `json:"cites,omitempty"`
	CitedBy []graph.Article `json:"cited_by,omitempty"`
	Chunks  []ArticleChunk  `json:"chunks,omitempty"`
}

func handleArticle(gs articleReader, vs chunkLister, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		num := r.PathValue("num")
		law := r.URL.Query().Get("law")
		if law == "" {
			law = defaultLaw
		}

		article, err := gs.GetArticle(r.Context(), law, num)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				http.Error(w, `{"error":"article not found"}`, http.StatusNotFound)
				return
			}
			logger.Error("article lookup failed", "law", law, "num", num, "err", err)
			http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
			return
		}

		resp := ArticleResponse{Article: article}
		if cites, err := gs.CitedArticles(r.Context(), law, num); err == nil {
			resp.Cites = cites
		} else {
			logger.Warn("cited lookup failed", "law", law, "num", num, "err", err)
		}
		if citedBy, err := gs.CitingArticles(r.Context(), law, num); err == nil {
			resp.CitedBy = citedBy
		} else {
			logger.Warn("citing lookup failed", "law", law, "num", num, "err", err)
		}

		// Scroll returns points in store order; present them as they
		// appear in the document.
		hits, err := vs.Scroll(r.Context(), map[string]string{"doc_id": law, "article": num}, 50)
		if err != nil {
			logger.Warn("chunk scroll failed", "law", law, "num", num, "err", err)
		} else {
			sort.Slice(hits, func(i, j int) bool { return hits[i].Start < hits[j].Start })
			for _, h := range hits {
				resp.Chunks = append(resp.Chunks, ArticleChunk{Text: h.Text, Start: h.Start, End: h.End})
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

// LawArticlesResponse is the JSON response for GET /api/v1/laws/{law}/articles.
type LawArticlesResponse struct {
	Law      string          `json:"law"`
	Count    int             `json:"count"`
	Articles []graph.Article `json:"articles"`
}

func handleLawArticles(gs lawReader, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		law := r.PathValue("law")
		articles, err := gs.ArticlesOfLaw(r.Context(), law)
		if err != nil {
			logger.Error("law articles lookup failed", "law", law, "err", err)
			http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
			return
		}
		// An indexed law always carries articles; an empty result means the
		// law is not in the graph.
		if len(articles) == 0 {
			http.Error(w, `{"error":"law not found"}`, http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(LawArticlesResponse{
			Law:      law,
			Count:    len(articles),
			Articles: articles,
		})
	}
}

// PathResponse is the JSON response for GET /api/v1/path: the citation chain
// connecting two articles, endpoints included.
type PathResponse struct {
	Path []graph.Article `json:"path"`
	Hops int             `json:"hops"`
}

func handlePath(gs pathFinder, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		fromNum, toNum := q.Get("from"), q.Get("to")
		if fromNum == "" || toNum == "" {
			http.Error(w, `{"error":"from and to are required"}`, http.StatusBadRequest)
			return
		}
		fromLaw := q.Get("from_law")
		if fromLaw == "" {
			fromLaw = defaultLaw
		}
		toLaw := q.Get("to_law")
		if toLaw == "" {
			toLaw = defaultLaw
		}

		path, err := gs.CitationPath(r.Context(), fromLaw, fromNum, toLaw, toNum)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				http.Error(w, `{"error":"no citation path found"}`, http.StatusNotFound)
				return
			}
			logger.Error("citation path failed", "from", fromLaw+":"+fromNum, "to", toLaw+":"+toNum, "err", err)
			http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(PathResponse{Path: path, Hops: len(path) - 1})
	}
}

// GraphStats is the knowledge-graph block of the stats response.
type GraphStats struct {
	Nodes         map[string]int64     `json:"nodes"`
	Relationships map[string]int64     `json:"relationships"`
	Laws          []graph.LawStats     `json:"laws"`
	TopCited      []graph.ArticleStats `json:"top_cited,omitempty"`
}

// VectorStats is the vector-store block of the stats response.
type VectorStats struct {
	Collection   string `json:"collection"`
	TotalVectors uint64 `json:"total_vectors"`
}

// StatsResponse is the JSON response for GET /api/v1/stats.
type StatsResponse struct {
	Timestamp      time.Time           `json:"timestamp"`
	KnowledgeGraph GraphStats          `json:"knowledge_graph"`
	VectorStore    VectorStats         `json:"vector_store"`
	Sources        graph.SourceStats   `json:"sources"`
	Recent         []graph.SourceEntry `json:"recently_indexed,omitempty"`
}

// handleStats assembles the snapshot best-effort: a failing collaborator
// zeroes its block instead of failing the endpoint, so dashboards keep
// rendering during partial outages.
func handleStats(gs statsSource, vs vectorCounter, collection string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		resp := StatsResponse{
			Timestamp:   time.Now().UTC(),
			VectorStore: VectorStats{Collection: collection},
		}

		if nodes, err := gs.NodeCounts(ctx); err == nil {
			resp.KnowledgeGraph.Nodes = nodes
		} else {
			logger.Warn("node counts failed", "err", err)
		}
		if rels, err := gs.RelationshipCounts(ctx); err == nil {
			resp.KnowledgeGraph.Relationships = rels
		} else {
			logger.Warn("relationship counts failed", "err", err)
		}
		if laws, err := gs.LawOverview(ctx); err == nil {
			resp.KnowledgeGraph.Laws = laws
		} else {
			logger.Warn("law overview failed", "err", err)
		}
		if top, err := gs.TopCited(ctx, 10); err == nil {
			resp.KnowledgeGraph.TopCited = top
		} else {
			logger.Warn("top cited failed", "err", err)
		}
		if sources, err := gs.SourceStats(ctx); err == nil {
			resp.Sources = sources
		} else {
			logger.Warn("source stats failed", "err", err)
		}
		if recent, err := gs.RecentlyIndexed(ctx, 5); err == nil {
			resp.Recent = recent
		} else {
			logger.Warn("recently indexed failed", "err", err)
		}
		if count, err := vs.Count(ctx); err == nil {
			resp.VectorStore.TotalVectors = count
		} else {
			logger.Warn("vector count failed", "err", err)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}
