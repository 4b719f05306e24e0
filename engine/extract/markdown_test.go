package extract

import (
	"path/filepath"
	"testing"
)

func readMD(t *testing.T, content string) string {
	t.Helper()
	path := writeFile(t, t.TempDir(), "doc.md", content)
	got, err := readMarkdown(path)
	if err != nil {
		t.Fatalf("readMarkdown: %v", err)
	}
	return got
}

func TestReadMarkdownHeadingsBecomeLines(t *testing.T) {
	got := readMD(t, "# კოდექსი\n\n## მუხლი 1. შესავალი\n\nპირველი აბზაცი.\n\nმეორე აბზაცი.\n")
	want := "კოდექსი\n\nმუხლი 1. შესავალი\n\nპირველი აბზაცი.\n\nმეორე აბზაცი."
	if got != want {
		t.Fatalf("readMarkdown = %q, want %q", got, want)
	}
}

func TestReadMarkdownLists(t *testing.T) {
	got := readMD(t, "საფუძვლები:\n\n- პირველი\n- მეორე\n")
	want := "საფუძვლები:\n\nპირველი\nმეორე"
	if got != want {
		t.Fatalf("readMarkdown = %q, want %q", got, want)
	}
}

func TestReadMarkdownBlockquote(t *testing.T) {
	got := readMD(t, "> შენიშვნა სასამართლოსგან.\n")
	if got != "შენიშვნა სასამართლოსგან." {
		t.Fatalf("readMarkdown = %q", got)
	}
}

func TestReadMarkdownEmpty(t *testing.T) {
	if got := readMD(t, ""); got != "" {
		t.Fatalf("readMarkdown = %q, want empty", got)
	}
}

func TestReadMarkdownMissingFile(t *testing.T) {
	if _, err := readMarkdown(filepath.Join(t.TempDir(), "gone.md")); err == nil {
		t.Fatal("expected error")
	}
}
