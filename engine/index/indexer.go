package index

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/NormaAI/norma-mvp/engine/domain"
	"github.com/NormaAI/norma-mvp/engine/extract"
	"github.com/NormaAI/norma-mvp/engine/graph"
	"github.com/NormaAI/norma-mvp/pkg/fn"
	"github.com/NormaAI/norma-mvp/pkg/metrics"
)

// Indexer drives the pipeline over corpus files, keeping the manifest and
// the source registry in step with what the stores actually hold.
type Indexer struct {
	pipeline fn.Stage[domain.Document, Receipt]
	manifest *Manifest
	vectors  VectorWriter
	registry SourceRegistry
	logger   *slog.Logger

	indexed  *metrics.Counter
	skipped  *metrics.Counter
	failed   *metrics.Counter
	chunks   *metrics.Counter
	duration *metrics.Histogram
}

// New builds an Indexer. A nil manifest stays in memory; a nil Metrics
// registry records into a private one.
func New(deps Deps, manifest *Manifest) (*Indexer, error) {
	pipeline, err := NewPipeline(deps)
	if err != nil {
		return nil, err
	}
	if manifest == nil {
		manifest = NewManifest("")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	reg := deps.Metrics
	if reg == nil {
		reg = metrics.New()
	}
	const docsHelp = "Documents processed, by outcome."
	return &Indexer{
		pipeline: pipeline,
		manifest: manifest,
		vectors:  deps.Vectors,
		registry: deps.Registry,
		logger:   logger,
		indexed:  reg.Counter(metrics.WithLabels("norma_index_docs_total", "status", "indexed"), docsHelp),
		skipped:  reg.Counter(metrics.WithLabels("norma_index_docs_total", "status", "skipped"), docsHelp),
		failed:   reg.Counter(metrics.WithLabels("norma_index_docs_total", "status", "failed"), docsHelp),
		chunks:   reg.Counter("norma_index_chunks_total", "Chunks written to the vector store."),
		duration: reg.Histogram("norma_index_doc_seconds", "Per-document indexing time.", nil),
	}, nil
}

// IndexFile loads, chunks, embeds, and stores one corpus file. Unchanged
// files are skipped unless rebuild is set; rebuild also clears the
// document's existing points first.
func (ix *Indexer) IndexFile(ctx context.Context, path string, rebuild bool) (Receipt, error) {
	doc, err := extract.LoadFile(path)
	if err != nil {
		ix.failed.Inc()
		return Receipt{}, err
	}
	checksum := graph.SourceChecksum([]byte(doc.Text))

	if !rebuild && ix.manifest.Current(doc.DocID, checksum) {
		ix.skipped.Inc()
		ix.logger.Info("index: unchanged", "doc_id", doc.DocID)
		return Receipt{DocID: doc.DocID, Source: doc.Source, Skipped: true}, nil
	}

	if ix.registry != nil {
		entry := graph.SourceEntry{DocID: doc.DocID, Path: path, Checksum: checksum, Status: graph.StatusPending}
		if err := ix.registry.SaveSourceEntry(ctx, entry); err != nil {
			ix.logger.Warn("index: registry write failed", "doc_id", doc.DocID, "err", err)
		}
	}
	if rebuild {
		if err := ix.vectors.DeleteByDocID(ctx, doc.DocID); err != nil {
			ix.logger.Warn("index: stale point delete failed", "doc_id", doc.DocID, "err", err)
		}
		ix.manifest.Forget(doc.DocID)
	}

	start := time.Now()
	receipt, err := ix.pipeline(ctx, doc).Unwrap()
	if err != nil {
		ix.failed.Inc()
		if ix.registry != nil {
			if rerr := ix.registry.UpdateSourceStatus(ctx, doc.DocID, graph.StatusFailed, err.Error()); rerr != nil {
				ix.logger.Warn("index: registry status failed", "doc_id", doc.DocID, "err", rerr)
			}
		}
		return Receipt{}, fmt.Errorf("index %s: %w", doc.DocID, err)
	}
	ix.duration.Since(start)
	ix.indexed.Inc()
	ix.chunks.Add(int64(receipt.Chunks))

	ix.manifest.Record(doc.DocID, checksum, receipt.Chunks)
	if err := ix.manifest.Save(); err != nil {
		ix.logger.Warn("index: manifest save failed", "err", err)
	}
	if ix.registry != nil {
		now := time.Now()
		entry := graph.SourceEntry{
			DocID:      doc.DocID,
			Path:       path,
			Checksum:   checksum,
			ChunkCount: receipt.Chunks,
			IndexedAt:  &now,
			Status:     graph.StatusIndexed,
		}
		if err := ix.registry.SaveSourceEntry(ctx, entry); err != nil {
			ix.logger.Warn("index: registry write failed", "doc_id", doc.DocID, "err", err)
		}
	}

	ix.logger.Info("index: done",
		"doc_id", doc.DocID,
		"chunks", receipt.Chunks,
		"articles", receipt.Articles,
		"citations", receipt.Citations,
		"ambiguous", receipt.Ambiguous,
	)
	return receipt, nil
}

// IndexDir runs every supported file under dir. Per-file failures are
// logged and counted; the walk continues.
func (ix *Indexer) IndexDir(ctx context.Context, dir string, rebuild bool) (Summary, error) {
	files, err := extract.List(dir)
	if err != nil {
		return Summary{}, err
	}
	var sum Summary
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		receipt, err := ix.IndexFile(ctx, f, rebuild)
		if err != nil {
			sum.Failed++
			ix.logger.Error("index: file failed", "path", f, "err", err)
			continue
		}
		if receipt.Skipped {
			sum.Skipped++
		} else {
			sum.Indexed++
			sum.Chunks += receipt.Chunks
		}
	}
	return sum, nil
}
