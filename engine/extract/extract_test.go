package extract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadFileText(t *testing.T) {
	dir := t.TempDir()
	raw := "მუხლი 49¹. სათაური\nტექსტი.\nhttp://www.matsne.gov.ge\n040.000.000.05.001.000.223\n"
	path := writeFile(t, dir, "civil-code.txt", raw)

	doc, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if doc.DocID != "civil-code" {
		t.Errorf("DocID = %q, want civil-code", doc.DocID)
	}
	if doc.Source != "civil-code.txt" {
		t.Errorf("Source = %q, want civil-code.txt", doc.Source)
	}
	if doc.Text != "მუხლი 49.1. სათაური\nტექსტი." {
		t.Errorf("Text = %q", doc.Text)
	}
}

func TestLoadFileMarkdown(t *testing.T) {
	dir := t.TempDir()
	md := "# სამოქალაქო კოდექსი\n\n## მუხლი 1. ზოგადი დებულებები\n\nეს კანონი აწესრიგებს.\n"
	path := writeFile(t, dir, "code.md", md)

	doc, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if doc.DocID != "code" {
		t.Errorf("DocID = %q, want code", doc.DocID)
	}

	// The heading must survive as a standalone line so the segmenter can
	// match it at line start.
	var found bool
	for _, line := range strings.Split(doc.Text, "\n") {
		if line == "მუხლი 1. ზოგადი დებულებები" {
			found = true
		}
	}
	if !found {
		t.Fatalf("heading not a standalone line in %q", doc.Text)
	}
	if !strings.Contains(doc.Text, "ეს კანონი აწესრიგებს.") {
		t.Errorf("body paragraph missing from %q", doc.Text)
	}
}

func TestLoadFileUnsupported(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "doc.json", "{}")
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadFileBadPDF(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "broken.pdf", "not a pdf at all")
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected error for malformed pdf")
	}
}

func TestLoadFileUppercaseExtension(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "LAW.TXT", "ტექსტი")
	doc, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if doc.DocID != "LAW" {
		t.Errorf("DocID = %q, want LAW", doc.DocID)
	}
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.md", "x")
	writeFile(t, dir, "a.txt", "x")
	writeFile(t, dir, "skip.json", "{}")
	writeFile(t, dir, filepath.Join("sub", "c.markdown"), "x")
	writeFile(t, dir, "d.pdf", "x")

	files, err := List(dir)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{
		filepath.Join(dir, "a.txt"),
		filepath.Join(dir, "b.md"),
		filepath.Join(dir, "d.pdf"),
		filepath.Join(dir, "sub", "c.markdown"),
	}
	if len(files) != len(want) {
		t.Fatalf("List = %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("files[%d] = %q, want %q", i, files[i], want[i])
		}
	}
}

func TestListMissingDir(t *testing.T) {
	if _, err := List(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing dir")
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one.txt", "პირველი")
	writeFile(t, dir, "two.txt", "მეორე")

	docs, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d docs, want 2", len(docs))
	}
	if docs[0].DocID != "one" || docs[1].DocID != "two" {
		t.Errorf("doc IDs = %q, %q", docs[0].DocID, docs[1].DocID)
	}
	if docs[0].Text != "პირველი" {
		t.Errorf("docs[0].Text = %q", docs[0].Text)
	}
}

func TestIsSupported(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"a.txt", true},
		{"a.md", true},
		{"a.markdown", true},
		{"a.PDF", true},
		{"a.docx", false},
		{"a", false},
	}
	for _, tt := range tests {
		if got := IsSupported(tt.path); got != tt.want {
			t.Errorf("IsSupported(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
