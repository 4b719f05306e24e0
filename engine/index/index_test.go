package index

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/NormaAI/norma-mvp/engine/chunk"
	"github.com/NormaAI/norma-mvp/engine/domain"
	"github.com/NormaAI/norma-mvp/engine/graph"
	"github.com/NormaAI/norma-mvp/engine/semantic"
	"github.com/NormaAI/norma-mvp/pkg/fn"
	"github.com/NormaAI/norma-mvp/pkg/resilience"
)

// --- mocks ---

type mockEmbedClient struct {
	err      error
	dropLast bool

	mu      sync.Mutex
	batches [][]string
}

func (m *mockEmbedClient) Name() string { return "mock/embedder" }

func (m *mockEmbedClient) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.batches = append(m.batches, texts)
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	vecs := make([][]float32, len(texts))
	for i, t := range texts {
		vecs[i] = []float32{textSum(t), 0, 0}
	}
	if m.dropLast && len(vecs) > 0 {
		vecs = vecs[:len(vecs)-1]
	}
	return vecs, nil
}

func (m *mockEmbedClient) batchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.batches)
}

// textSum gives each text a recognizable vector component, so alignment of
// chunks and embeddings is checkable after parallel batching.
func textSum(t string) float32 {
	var sum float32
	for _, r := range t {
		sum += float32(r % 97)
	}
	return sum
}

type mockVectors struct {
	upsertErr error
	deleteErr error

	mu       sync.Mutex
	attempts int
	upserted [][]semantic.VectorRecord
	deleted  []string
}

func (m *mockVectors) Upsert(_ context.Context, records []semantic.VectorRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts++
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserted = append(m.upserted, records)
	return nil
}

func (m *mockVectors) DeleteByDocID(_ context.Context, docID string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, docID)
	return nil
}

type mockGraphWriter struct {
	err error

	calls     int
	law       graph.Law
	articles  []graph.Article
	citations []graph.Citation
}

func (m *mockGraphWriter) SaveBatch(_ context.Context, law graph.Law, articles []graph.Article, citations []graph.Citation) error {
	m.calls++
	if m.err != nil {
		return m.err
	}
	m.law, m.articles, m.citations = law, articles, citations
	return nil
}

type mockSourceRegistry struct {
	entries  []graph.SourceEntry
	statuses []string
}

func (m *mockSourceRegistry) SaveSourceEntry(_ context.Context, e graph.SourceEntry) error {
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockSourceRegistry) UpdateSourceStatus(_ context.Context, docID, status, errMsg string) error {
	m.statuses = append(m.statuses, docID+"/"+status+"/"+errMsg)
	return nil
}

// --- fixtures ---

const statuteText = `საქართველოს სამოქალაქო კოდექსი

მუხლი 1. ცნება
ეს კოდექსი აწესრიგებს პირთა კერძო ხასიათის ურთიერთობებს.

მუხლი 2. გამოყენების სფერო
ამ კოდექსის მე-1 მუხლით დადგენილი წესები ვრცელდება ყველა კერძო ურთიერთობაზე.
`

func statuteDoc() domain.Document {
	return domain.Document{DocID: "civil-code", Source: "civil-code.txt", Text: statuteText}
}

func testParams() chunk.Params {
	return chunk.Params{TargetTokens: 60, OverlapTokens: 10}
}

func quickRetry() fn.RetryOpts {
	return fn.RetryOpts{MaxAttempts: 2, InitialWait: time.Millisecond, MaxWait: time.Millisecond}
}

func mustChunk(t *testing.T, doc domain.Document) ChunkedDoc {
	t.Helper()
	pl, err := chunk.NewPipeline(testParams())
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	res := NewChunkStage(pl, 0)(context.Background(), doc)
	chunked, err := res.Unwrap()
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	return chunked
}

func manualChunked(n int) ChunkedDoc {
	doc := ChunkedDoc{Doc: domain.Document{DocID: "civil-code"}}
	for i := 0; i < n; i++ {
		doc.Chunks = append(doc.Chunks, domain.Chunk{
			DocID: "civil-code",
			Text:  fmt.Sprintf("ნაწილი ნომერი %d", i),
			Start: i * 20,
			End:   i*20 + 16,
		})
	}
	return doc
}

// --- stage tests ---

func TestValidateStage(t *testing.T) {
	ctx := context.Background()

	if res := Validate(ctx, statuteDoc()); res.IsErr() {
		_, err := res.Unwrap()
		t.Fatalf("valid document rejected: %v", err)
	}

	bad := statuteDoc()
	bad.DocID = ""
	if res := Validate(ctx, bad); !res.IsErr() {
		t.Fatal("expected error for empty doc_id")
	}
}

func TestChunkStage(t *testing.T) {
	chunked := mustChunk(t, statuteDoc())

	if len(chunked.Sections) != 3 {
		t.Fatalf("sections = %d, want preamble + 2 articles", len(chunked.Sections))
	}
	if chunked.Sections[0].Article != "" || chunked.Sections[1].Article != "1" || chunked.Sections[2].Article != "2" {
		t.Fatalf("section labels = %+v", chunked.Sections)
	}
	if len(chunked.Chunks) == 0 {
		t.Fatal("expected chunks")
	}
	for _, c := range chunked.Chunks {
		if c.DocID != "civil-code" {
			t.Errorf("chunk doc_id = %s", c.DocID)
		}
	}
	if chunked.Ambiguous != 0 {
		t.Errorf("ambiguous = %d", chunked.Ambiguous)
	}
}

func TestChunkStageCap(t *testing.T) {
	pl, err := chunk.NewPipeline(chunk.Params{TargetTokens: 5, OverlapTokens: 1})
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}

	res := NewChunkStage(pl, 1)(context.Background(), statuteDoc())
	if !res.IsErr() {
		t.Fatal("expected cap error")
	}
	if _, err := res.Unwrap(); !strings.Contains(err.Error(), "exceeds cap") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEmbedStageBatching(t *testing.T) {
	client := &mockEmbedClient{}
	stage := NewEmbedStage(client, 2, 2)

	doc := manualChunked(5)
	embedded, err := stage(context.Background(), doc).Unwrap()
	if err != nil {
		t.Fatalf("embed: %v", err)
	}

	if got := client.batchCount(); got != 3 {
		t.Fatalf("batches = %d, want 3", got)
	}
	if len(embedded.Embeddings) != 5 {
		t.Fatalf("embeddings = %d", len(embedded.Embeddings))
	}
	for i, c := range doc.Chunks {
		if embedded.Embeddings[i][0] != textSum(c.Text) {
			t.Errorf("embedding %d misaligned with its chunk", i)
		}
	}
}

func TestEmbedStageEmptyDoc(t *testing.T) {
	client := &mockEmbedClient{}
	stage := NewEmbedStage(client, 2, 2)

	embedded, err := stage(context.Background(), ChunkedDoc{}).Unwrap()
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(embedded.Embeddings) != 0 || client.batchCount() != 0 {
		t.Fatalf("empty doc should embed nothing, got %d embeddings, %d batches",
			len(embedded.Embeddings), client.batchCount())
	}
}

func TestEmbedStageError(t *testing.T) {
	client := &mockEmbedClient{err: fmt.Errorf("quota exceeded")}
	stage := NewEmbedStage(client, 2, 2)

	_, err := stage(context.Background(), manualChunked(3)).Unwrap()
	if err == nil || !strings.Contains(err.Error(), "embed batch: quota exceeded") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEmbedStageCountMismatch(t *testing.T) {
	client := &mockEmbedClient{dropLast: true}
	stage := NewEmbedStage(client, 4, 1)

	_, err := stage(context.Background(), manualChunked(3)).Unwrap()
	if err == nil || !strings.Contains(err.Error(), "2 vectors for 3 texts") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStoreStage(t *testing.T) {
	chunked := mustChunk(t, statuteDoc())
	embedded, err := NewEmbedStage(&mockEmbedClient{}, 32, 1)(context.Background(), chunked).Unwrap()
	if err != nil {
		t.Fatalf("embed: %v", err)
	}

	vectors := &mockVectors{}
	gw := &mockGraphWriter{}
	receipt, err := NewStoreStage(vectors, gw, quickRetry())(context.Background(), embedded).Unwrap()
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	if len(vectors.upserted) != 1 || len(vectors.upserted[0]) != len(chunked.Chunks) {
		t.Fatalf("upserted %d batches", len(vectors.upserted))
	}
	for i, rec := range vectors.upserted[0] {
		if rec.ID != PointID(chunked.Chunks[i]) {
			t.Errorf("record %d has unstable point ID", i)
		}
		if rec.Chunk.Text != chunked.Chunks[i].Text {
			t.Errorf("record %d lost its chunk payload", i)
		}
	}

	if gw.law.Title != "საქართველოს სამოქალაქო კოდექსი" {
		t.Errorf("law title = %q", gw.law.Title)
	}
	if len(gw.articles) != 2 {
		t.Errorf("articles = %+v", gw.articles)
	}
	if len(gw.citations) != 1 || gw.citations[0].FromNum != "2" || gw.citations[0].ToNum != "1" {
		t.Errorf("citations = %+v", gw.citations)
	}

	if receipt.Chunks != len(chunked.Chunks) || receipt.Articles != 2 || receipt.Citations != 1 {
		t.Errorf("receipt = %+v", receipt)
	}
}

func TestStoreStageRetriesUpsert(t *testing.T) {
	vectors := &mockVectors{upsertErr: fmt.Errorf("qdrant unavailable")}
	stage := NewStoreStage(vectors, nil, quickRetry())

	_, err := stage(context.Background(), EmbeddedDoc{
		ChunkedDoc: manualChunked(1),
		Embeddings: [][]float32{{1}},
	}).Unwrap()
	if err == nil || !strings.Contains(err.Error(), "vector upsert:") {
		t.Fatalf("unexpected error: %v", err)
	}
	if vectors.attempts != 2 {
		t.Fatalf("attempts = %d, want 2", vectors.attempts)
	}
}

func TestStoreStageGraphError(t *testing.T) {
	gw := &mockGraphWriter{err: fmt.Errorf("neo4j down")}
	stage := NewStoreStage(&mockVectors{}, gw, quickRetry())

	chunked := mustChunk(t, statuteDoc())
	_, err := stage(context.Background(), EmbeddedDoc{
		ChunkedDoc: chunked,
		Embeddings: make([][]float32, len(chunked.Chunks)),
	}).Unwrap()
	if err == nil || !strings.Contains(err.Error(), "graph save:") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStoreStageWithoutGraph(t *testing.T) {
	vectors := &mockVectors{}
	stage := NewStoreStage(vectors, nil, quickRetry())

	receipt, err := stage(context.Background(), EmbeddedDoc{
		ChunkedDoc: manualChunked(2),
		Embeddings: [][]float32{{1}, {2}},
	}).Unwrap()
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if receipt.Chunks != 2 || receipt.Articles != 0 || receipt.Citations != 0 {
		t.Fatalf("receipt = %+v", receipt)
	}
}

func TestPointIDDeterministic(t *testing.T) {
	c := domain.Chunk{DocID: "civil-code", Start: 10, End: 90}
	if PointID(c) != PointID(c) {
		t.Fatal("point ID not stable")
	}
	if len(PointID(c)) != 36 {
		t.Fatalf("point ID %q is not a UUID", PointID(c))
	}
	other := c
	other.End = 91
	if PointID(c) == PointID(other) {
		t.Fatal("distinct chunks share a point ID")
	}
}

// --- pipeline tests ---

func TestPipelineEndToEnd(t *testing.T) {
	client := &mockEmbedClient{}
	vectors := &mockVectors{}
	gw := &mockGraphWriter{}

	pipeline, err := NewPipeline(Deps{
		Embedder:     client,
		Vectors:      vectors,
		Graph:        gw,
		Params:       testParams(),
		EmbedBatch:   2,
		EmbedWorkers: 2,
		Retry:        quickRetry(),
	})
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}

	receipt, err := pipeline(context.Background(), statuteDoc()).Unwrap()
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if receipt.DocID != "civil-code" || receipt.Chunks == 0 {
		t.Fatalf("receipt = %+v", receipt)
	}
	if len(vectors.upserted) != 1 || len(vectors.upserted[0]) != receipt.Chunks {
		t.Fatalf("upserted %d points, receipt says %d", len(vectors.upserted[0]), receipt.Chunks)
	}
	if receipt.Articles != 2 || receipt.Citations != 1 {
		t.Fatalf("graph counts = %+v", receipt)
	}
}

func TestPipelineInvalidWindowConfig(t *testing.T) {
	_, err := NewPipeline(Deps{
		Embedder: &mockEmbedClient{},
		Vectors:  &mockVectors{},
		Params:   chunk.Params{TargetTokens: 0, OverlapTokens: 0},
	})
	if err == nil {
		t.Fatal("expected window validation error")
	}
}

func TestPipelineBreakerOpens(t *testing.T) {
	client := &mockEmbedClient{err: fmt.Errorf("model down")}
	breaker := resilience.NewBreaker(resilience.BreakerOpts{FailThreshold: 1, Timeout: time.Hour})

	pipeline, err := NewPipeline(Deps{
		Embedder: client,
		Vectors:  &mockVectors{},
		Params:   testParams(),
		Breaker:  breaker,
		Retry:    quickRetry(),
	})
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}

	if _, err := pipeline(context.Background(), statuteDoc()).Unwrap(); err == nil {
		t.Fatal("first run should fail")
	}
	_, err = pipeline(context.Background(), statuteDoc()).Unwrap()
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("second run error = %v, want open circuit", err)
	}
	if got := client.batchCount(); got != 1 {
		t.Fatalf("embedder called %d times, want 1 (breaker open)", got)
	}
}

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"statute", statuteText, "საქართველოს სამოქალაქო კოდექსი"},
		{"leading blank lines", "\n\n  შრომის კოდექსი  \nმუხლი 1. x", "შრომის კოდექსი"},
		{"header first", "მუხლი 1. ცნება\nტექსტი", ""},
		{"empty", "", ""},
		{"long line truncated", strings.Repeat("ა", 200), strings.Repeat("ა", 120)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveTitle(tt.text); got != tt.want {
				t.Errorf("DeriveTitle = %q, want %q", got, tt.want)
			}
		})
	}
}
