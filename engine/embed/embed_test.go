package embed

import (
	"context"
	"strings"
	"testing"
)

// fakeClient records inputs and returns fixed-width vectors.
type fakeClient struct {
	docs    [][]string
	queries []string
	width   int
}

func (f *fakeClient) Name() string   { return "fake" }
func (f *fakeClient) Dimension() int { return f.width }

func (f *fakeClient) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	f.docs = append(f.docs, texts)
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, f.width)
	}
	return out, nil
}

func (f *fakeClient) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.queries = append(f.queries, text)
	return make([]float32, f.width), nil
}

func TestWithPrefixes(t *testing.T) {
	inner := &fakeClient{width: 4}
	c := WithPrefixes(inner, "passage: ", "query: ")

	if _, err := c.EmbedDocuments(context.Background(), []string{"მუხლი 73", "text"}); err != nil {
		t.Fatal(err)
	}
	if _, err := c.EmbedQuery(context.Background(), "რა წერია?"); err != nil {
		t.Fatal(err)
	}

	if got := inner.docs[0][0]; got != "passage: მუხლი 73" {
		t.Fatalf("doc prefix missing: %q", got)
	}
	if got := inner.queries[0]; got != "query: რა წერია?" {
		t.Fatalf("query prefix missing: %q", got)
	}
	if c.Name() != "fake" || c.Dimension() != 4 {
		t.Fatal("wrapper must forward Name and Dimension")
	}
}

func TestWithPrefixesEmptyPassageLeavesTexts(t *testing.T) {
	inner := &fakeClient{width: 2}
	c := WithPrefixes(inner, "", "query: ")
	c.EmbedDocuments(context.Background(), []string{"as-is"})
	if inner.docs[0][0] != "as-is" {
		t.Fatalf("text altered: %q", inner.docs[0][0])
	}
}

func TestProbe(t *testing.T) {
	dim, err := Probe(context.Background(), &fakeClient{width: 768})
	if err != nil || dim != 768 {
		t.Fatalf("Probe = (%d, %v)", dim, err)
	}
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New(context.Background(), Options{Provider: "milvus"})
	if err == nil || !strings.Contains(err.Error(), "unknown embedding provider") {
		t.Fatalf("err = %v", err)
	}
}

func TestNewRequiresKeys(t *testing.T) {
	if _, err := New(context.Background(), Options{Provider: "openai"}); err == nil {
		t.Fatal("openai without key should fail")
	}
	if _, err := New(context.Background(), Options{Provider: "gemini"}); err == nil {
		t.Fatal("gemini without key should fail")
	}
}

func TestNewOllamaWithPrefixes(t *testing.T) {
	c, err := New(context.Background(), Options{
		Provider:      "ollama",
		Model:         "multilingual-e5-large",
		PassagePrefix: "passage: ",
		QueryPrefix:   "query: ",
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(*prefixed); !ok {
		t.Fatalf("expected prefixed wrapper, got %T", c)
	}
	if c.Name() != "ollama/multilingual-e5-large" {
		t.Fatalf("Name = %q", c.Name())
	}
}
