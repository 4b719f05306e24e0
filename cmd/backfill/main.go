// Command backfill rebuilds the citation graph from corpus files already on
// disk. It re-runs extraction and chunking for every document and rewrites the
// Law, Article, and CITES records in Neo4j without touching the vector store.
// Run it after citation extraction or segmentation changes instead of a full
// re-index. Laws left in the graph by deleted corpus files are reported, and
// removed with -prune.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/NormaAI/norma-mvp/engine/chunk"
	"github.com/NormaAI/norma-mvp/engine/extract"
	"github.com/NormaAI/norma-mvp/engine/graph"
	"github.com/NormaAI/norma-mvp/engine/index"
	"github.com/NormaAI/norma-mvp/pkg/repo"
)

func main() {
	prune := flag.Bool("prune", false, "delete laws that no longer have a corpus file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	corpusDir := envOr("NORMA_DATA_DIR", "data")
	neo4jURL := envOr("NEO4J_URL", "bolt://localhost:7687")
	neo4jUser := envOr("NEO4J_USER", "neo4j")
	neo4jPass := envOr("NEO4J_PASS", "norma123")

	driver, err := graph.Connect(ctx, neo4jURL, neo4jUser, neo4jPass)
	if err != nil {
		log.Fatalf("neo4j connect: %v", err)
	}
	defer driver.Close(ctx)

	gs := graph.New(driver)

	pl, err := chunk.NewPipeline(chunk.DefaultParams())
	if err != nil {
		log.Fatalf("pipeline: %v", err)
	}

	files, err := extract.List(corpusDir)
	if err != nil {
		log.Fatalf("list %s: %v", corpusDir, err)
	}
	log.Printf("Found %d corpus files under %s", len(files), corpusDir)

	// Document IDs the corpus still carries, derived the same way the loader
	// derives them. Laws outside this set are orphans.
	inCorpus := make(map[string]bool, len(files))
	for _, path := range files {
		base := filepath.Base(path)
		inCorpus[strings.TrimSuffix(base, filepath.Ext(base))] = true
	}

	var rebuilt, skipped, errors, articles, citations int

	for i, path := range files {
		if ctx.Err() != nil {
			log.Printf("Interrupted after %d files", i)
			break
		}

		doc, err := extract.LoadFile(path)
		if err != nil {
			log.Printf("[%d] load %s: %v", i, path, err)
			errors++
			continue
		}

		res, err := pl.Run(doc)
		if err != nil {
			log.Printf("[%d] chunk %s: %v", i, doc.DocID, err)
			errors++
			continue
		}
		if len(res.Sections) == 0 {
			skipped++
			continue
		}

		// Drop the old subgraph first so article and citation edges from a
		// previous extraction do not linger.
		if err := gs.DeleteLaw(ctx, doc.DocID); err != nil {
			log.Printf("[%d] delete %s: %v", i, doc.DocID, err)
			errors++
			continue
		}

		law := graph.Law{
			DocID:  doc.DocID,
			Source: doc.Source,
			Title:  graph.TitleForDoc(doc.DocID, index.DeriveTitle(res.Doc.Text)),
		}
		arts := index.Articles(doc.DocID, res.Sections)
		cits := index.Citations(doc.DocID, res.Chunks)

		if err := gs.SaveBatch(ctx, law, arts, cits); err != nil {
			log.Printf("[%d] save %s: %v", i, doc.DocID, err)
			errors++
			continue
		}

		rebuilt++
		articles += len(arts)
		citations += len(cits)
		log.Printf("[%d] %s: %d articles, %d citations", i, doc.DocID, len(arts), len(cits))
	}

	log.Printf("Done! Rebuilt: %d, Skipped: %d, Errors: %d, Articles: %d, Citations: %d",
		rebuilt, skipped, errors, articles, citations)

	lawRepo := graph.NewLawRepo(driver)
	laws, err := lawRepo.List(ctx, repo.ListOpts{Limit: 1000})
	if err != nil {
		log.Printf("list laws: %v", err)
	}
	for _, l := range laws {
		if inCorpus[l.DocID] {
			continue
		}
		if !*prune {
			log.Printf("Orphaned law in graph: %s (%s); re-run with -prune to remove", l.DocID, l.Title)
			continue
		}
		if err := gs.DeleteLaw(ctx, l.DocID); err != nil {
			log.Printf("prune %s: %v", l.DocID, err)
			continue
		}
		log.Printf("Pruned orphaned law %s (%s)", l.DocID, l.Title)
	}

	// Verify what the graph holds now.
	if nodes, err := gs.NodeCounts(ctx); err == nil {
		log.Printf("Nodes now: Law=%d Article=%d", nodes["Law"], nodes["Article"])
	}
	if rels, err := gs.RelationshipCounts(ctx); err == nil {
		log.Printf("Relationships now: HAS_ARTICLE=%d CITES=%d", rels["HAS_ARTICLE"], rels["CITES"])
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
