// Package index runs the offline half of the system: corpus files become
// chunks, chunks become vectors, and the article/citation graph is kept in
// step. The pipeline is a composition of fn stages so every hop is traced
// and testable in isolation.
package index

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/NormaAI/norma-mvp/engine/chunk"
	"github.com/NormaAI/norma-mvp/engine/domain"
	"github.com/NormaAI/norma-mvp/engine/graph"
	"github.com/NormaAI/norma-mvp/engine/semantic"
	"github.com/NormaAI/norma-mvp/pkg/fn"
	"github.com/NormaAI/norma-mvp/pkg/metrics"
	"github.com/NormaAI/norma-mvp/pkg/resilience"
)

const (
	// SubjectDocs carries indexing jobs.
	SubjectDocs = "norma.index.docs"
	// SubjectDLQ parks jobs that exhausted their retries.
	SubjectDLQ = "norma.index.docs.dlq"
	// QueueGroup lets indexer replicas split the job stream.
	QueueGroup = "indexers"
	// MaxRetries before a failed job goes to the DLQ.
	MaxRetries = 3

	// DefaultEmbedBatch is the number of chunk texts per embedding request.
	DefaultEmbedBatch = 32
	// DefaultEmbedWorkers bounds concurrent embedding requests.
	DefaultEmbedWorkers = 4
	// DefaultChunkCap fails a document that windows into an absurd number
	// of chunks, which indicates corrupt input.
	DefaultChunkCap = 5000
)

// Embedder is the slice of embed.Client the pipeline uses.
type Embedder interface {
	Name() string
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorWriter is the slice of the semantic store the pipeline uses.
type VectorWriter interface {
	Upsert(ctx context.Context, records []semantic.VectorRecord) error
	DeleteByDocID(ctx context.Context, docID string) error
}

// GraphWriter persists a document's law, articles, and citation edges.
type GraphWriter interface {
	SaveBatch(ctx context.Context, law graph.Law, articles []graph.Article, citations []graph.Citation) error
}

// SourceRegistry tracks per-file indexing state.
type SourceRegistry interface {
	SaveSourceEntry(ctx context.Context, e graph.SourceEntry) error
	UpdateSourceStatus(ctx context.Context, docID, status, errMsg string) error
}

// Deps wires the pipeline. Graph and Registry may be nil: vectors alone
// still give a searchable index, just without citation context.
type Deps struct {
	Embedder Embedder
	Vectors  VectorWriter
	Graph    GraphWriter
	Registry SourceRegistry

	Params   chunk.Params
	Patterns []domain.HeaderPattern // nil means the built-in table

	ChunkCap     int // 0 means DefaultChunkCap, negative disables
	EmbedBatch   int
	EmbedWorkers int

	Limiter *resilience.Limiter // optional, around the embed stage
	Breaker *resilience.Breaker // optional, around the embed stage
	Retry   fn.RetryOpts        // zero value means fn.DefaultRetry

	Logger  *slog.Logger
	Metrics *metrics.Registry
}

// Validate rejects malformed documents before any work happens.
var Validate fn.Stage[domain.Document, domain.Document] = func(_ context.Context, doc domain.Document) fn.Result[domain.Document] {
	if err := domain.ValidateDocument(doc); err != nil {
		return fn.Err[domain.Document](err)
	}
	return fn.Ok(doc)
}

// NewChunkStage segments and windows one document, enforcing the chunk cap.
func NewChunkStage(pl *chunk.Pipeline, limit int) fn.Stage[domain.Document, ChunkedDoc] {
	return func(_ context.Context, doc domain.Document) fn.Result[ChunkedDoc] {
		res, err := pl.Run(doc)
		if err != nil {
			return fn.Err[ChunkedDoc](err)
		}
		if limit > 0 && len(res.Chunks) > limit {
			return fn.Errf[ChunkedDoc]("chunk %s: %d chunks exceeds cap %d", doc.DocID, len(res.Chunks), limit)
		}
		return fn.Ok(ChunkedDoc{Doc: res.Doc, Sections: res.Sections, Chunks: res.Chunks, Ambiguous: res.Ambiguous})
	}
}

// NewEmbedStage embeds chunk texts in groups of batch, at most workers
// requests in flight. ParMap writes each group's vectors into its fixed
// position, so embeddings stay aligned with chunks.
func NewEmbedStage(client Embedder, batch, workers int) fn.Stage[ChunkedDoc, EmbeddedDoc] {
	if batch <= 0 {
		batch = DefaultEmbedBatch
	}
	if workers <= 0 {
		workers = DefaultEmbedWorkers
	}
	return func(ctx context.Context, doc ChunkedDoc) fn.Result[EmbeddedDoc] {
		texts := make([]string, len(doc.Chunks))
		for i, c := range doc.Chunks {
			texts[i] = c.Text
		}

		groups := fn.Chunks(texts, batch)
		results := fn.ParMapResult(groups, workers, func(g []string) fn.Result[[][]float32] {
			vecs, err := client.EmbedDocuments(ctx, g)
			if err != nil {
				return fn.Err[[][]float32](fmt.Errorf("embed batch: %w", err))
			}
			if len(vecs) != len(g) {
				return fn.Errf[[][]float32]("embed batch: %d vectors for %d texts", len(vecs), len(g))
			}
			return fn.Ok(vecs)
		})

		collected, err := fn.Collect(results).Unwrap()
		if err != nil {
			return fn.Err[EmbeddedDoc](err)
		}
		embeddings := make([][]float32, 0, len(texts))
		for _, vecs := range collected {
			embeddings = append(embeddings, vecs...)
		}
		return fn.Ok(EmbeddedDoc{ChunkedDoc: doc, Embeddings: embeddings})
	}
}

// PointID is the deterministic vector point ID for a chunk. Re-indexing an
// unchanged document overwrites its points in place.
func PointID(c domain.Chunk) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(c.Key())).String()
}

// NewStoreStage writes vectors and the citation graph. The upsert retries
// with backoff; a graph failure fails the stage so the source registry
// records it.
func NewStoreStage(vectors VectorWriter, gw GraphWriter, retry fn.RetryOpts) fn.Stage[EmbeddedDoc, Receipt] {
	if retry.MaxAttempts <= 0 {
		retry = fn.DefaultRetry
	}
	return func(ctx context.Context, doc EmbeddedDoc) fn.Result[Receipt] {
		records := make([]semantic.VectorRecord, len(doc.Chunks))
		for i, c := range doc.Chunks {
			records[i] = semantic.VectorRecord{ID: PointID(c), Embedding: doc.Embeddings[i], Chunk: c}
		}

		res := fn.Retry(ctx, retry, func(ctx context.Context) fn.Result[struct{}] {
			if err := vectors.Upsert(ctx, records); err != nil {
				return fn.Err[struct{}](err)
			}
			return fn.Ok(struct{}{})
		})
		if _, err := res.Unwrap(); err != nil {
			return fn.Err[Receipt](fmt.Errorf("vector upsert: %w", err))
		}

		receipt := Receipt{
			DocID:     doc.Doc.DocID,
			Source:    doc.Doc.Source,
			Chunks:    len(doc.Chunks),
			Ambiguous: doc.Ambiguous,
		}
		if gw != nil {
			law := graph.Law{
				DocID:  doc.Doc.DocID,
				Source: doc.Doc.Source,
				Title:  graph.TitleForDoc(doc.Doc.DocID, DeriveTitle(doc.Doc.Text)),
			}
			articles := Articles(doc.Doc.DocID, doc.Sections)
			citations := Citations(doc.Doc.DocID, doc.Chunks)
			if err := gw.SaveBatch(ctx, law, articles, citations); err != nil {
				return fn.Err[Receipt](fmt.Errorf("graph save: %w", err))
			}
			receipt.Articles = len(articles)
			receipt.Citations = len(citations)
		}
		return fn.Ok(receipt)
	}
}

// NewPipeline composes validate → chunk → embed → store with tracing, and
// the configured limiter/breaker around the embed stage.
func NewPipeline(deps Deps) (fn.Stage[domain.Document, Receipt], error) {
	pl, err := chunk.NewPipeline(deps.Params, deps.Patterns...)
	if err != nil {
		return nil, err
	}

	limit := deps.ChunkCap
	if limit == 0 {
		limit = DefaultChunkCap
	}

	embed := NewEmbedStage(deps.Embedder, deps.EmbedBatch, deps.EmbedWorkers)
	if deps.Breaker != nil {
		embed = resilience.BreakerStage(deps.Breaker, embed)
	}
	if deps.Limiter != nil {
		embed = resilience.LimiterStageWait(deps.Limiter, embed)
	}

	chunked := fn.Then(fn.Traced("index.validate", Validate), fn.Traced("index.chunk", NewChunkStage(pl, limit)))
	embedded := fn.Then(chunked, fn.Traced("index.embed", embed))
	return fn.Then(embedded, fn.Traced("index.store", NewStoreStage(deps.Vectors, deps.Graph, deps.Retry))), nil
}
