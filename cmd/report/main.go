// Command report fetches a stats snapshot from the API, computes deltas
// against the previous run, and writes JSON files for the ops dashboard.
// Run it from cron; with 5-minute intervals the history window covers a day.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Delta represents changes between two consecutive snapshots.
type Delta struct {
	Timestamp    time.Time `json:"timestamp"`
	Period       string    `json:"period"`
	NewNodes     int64     `json:"new_nodes"`
	NewRelations int64     `json:"new_relations"`
	NewVectors   int64     `json:"new_vectors"`
	NewChunks    int       `json:"new_chunks"`
	NewLaws      []string  `json:"new_laws"`
}

// Snapshot mirrors the API stats response (partial, for delta computation).
type Snapshot struct {
	Timestamp      time.Time `json:"timestamp"`
	KnowledgeGraph struct {
		Nodes         map[string]int64 `json:"nodes"`
		Relationships map[string]int64 `json:"relationships"`
		Laws          []struct {
			DocID string `json:"doc_id"`
		} `json:"laws"`
	} `json:"knowledge_graph"`
	VectorStore struct {
		TotalVectors uint64 `json:"total_vectors"`
	} `json:"vector_store"`
	Sources struct {
		Total       int `json:"total"`
		TotalChunks int `json:"total_chunks"`
	} `json:"sources"`
}

const maxHistory = 288

func main() {
	apiURL := flag.String("api", "http://localhost:8080", "API base URL")
	outDir := flag.String("out", "reports", "output directory")
	flag.Parse()

	os.MkdirAll(*outDir, 0o755)

	latestPath := filepath.Join(*outDir, "stats-latest.json")
	historyPath := filepath.Join(*outDir, "stats-history.json")
	prevPath := filepath.Join(*outDir, ".stats-prev.json")

	// Fetch snapshot from API
	resp, err := http.Get(*apiURL + "/api/v1/stats")
	if err != nil {
		log.Fatalf("fetch stats: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("read body: %v", err)
	}
	if resp.StatusCode != 200 {
		log.Fatalf("API returned %d: %s", resp.StatusCode, body)
	}

	var current Snapshot
	if err := json.Unmarshal(body, &current); err != nil {
		log.Fatalf("parse stats: %v", err)
	}

	// Load previous snapshot for delta
	var prev Snapshot
	if data, err := os.ReadFile(prevPath); err == nil {
		json.Unmarshal(data, &prev)
	}

	delta := Delta{
		Timestamp:    current.Timestamp,
		Period:       "5m",
		NewNodes:     sum(current.KnowledgeGraph.Nodes) - sum(prev.KnowledgeGraph.Nodes),
		NewRelations: sum(current.KnowledgeGraph.Relationships) - sum(prev.KnowledgeGraph.Relationships),
		NewVectors:   int64(current.VectorStore.TotalVectors) - int64(prev.VectorStore.TotalVectors),
		NewChunks:    current.Sources.TotalChunks - prev.Sources.TotalChunks,
	}

	// Find newly indexed laws
	prevLaws := make(map[string]bool)
	for _, l := range prev.KnowledgeGraph.Laws {
		prevLaws[l.DocID] = true
	}
	for _, l := range current.KnowledgeGraph.Laws {
		if !prevLaws[l.DocID] {
			delta.NewLaws = append(delta.NewLaws, l.DocID)
		}
	}

	// Write latest
	if err := os.WriteFile(latestPath, body, 0o644); err != nil {
		log.Fatalf("write latest: %v", err)
	}

	// Update history
	var history []Delta
	if data, err := os.ReadFile(historyPath); err == nil {
		json.Unmarshal(data, &history)
	}
	history = append(history, delta)
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	histData, _ := json.MarshalIndent(history, "", "  ")
	os.WriteFile(historyPath, histData, 0o644)

	// Save current as prev
	os.WriteFile(prevPath, body, 0o644)

	fmt.Printf("Stats collected at %s (laws: %d, vectors: %d, chunks: %d)\n",
		current.Timestamp.Format(time.RFC3339),
		len(current.KnowledgeGraph.Laws),
		current.VectorStore.TotalVectors,
		current.Sources.TotalChunks)
	fmt.Printf("Delta: +%d nodes, +%d rels, +%d vectors, +%d chunks\n",
		delta.NewNodes, delta.NewRelations, delta.NewVectors, delta.NewChunks)
}

func sum(m map[string]int64) int64 {
	var total int64
	for _, v := range m {
		total += v
	}
	return total
}
