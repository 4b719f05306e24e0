// Package extract loads statute files from disk into Documents for the
// chunking pipeline. Plain text, Markdown, and PDF are supported; all three
// pass through the same cleanup (matsne.gov.ge footer lines, barcode lines,
// superscript article indices, soft hyphens) before the text reaches the
// segmenter.
package extract

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/NormaAI/norma-mvp/engine/domain"
)

// Supported lists the file extensions the loader understands.
var Supported = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".pdf":      true,
}

// IsSupported reports whether the file has a loadable extension.
func IsSupported(path string) bool {
	return Supported[strings.ToLower(filepath.Ext(path))]
}

// List walks dir and returns every supported file, sorted by path.
func List(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !IsSupported(path) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

// LoadFile reads one corpus file and cleans its text. The document ID is
// the file name without its extension; Source keeps the full base name.
func LoadFile(path string) (domain.Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	var (
		text string
		err  error
	)
	switch ext {
	case ".txt":
		text, err = readText(path)
	case ".md", ".markdown":
		text, err = readMarkdown(path)
	case ".pdf":
		text, err = readPDF(path)
	default:
		return domain.Document{}, fmt.Errorf("load %s: unsupported extension %q", path, ext)
	}
	if err != nil {
		return domain.Document{}, fmt.Errorf("load %s: %w", path, err)
	}

	base := filepath.Base(path)
	return domain.Document{
		DocID:  strings.TrimSuffix(base, filepath.Ext(base)),
		Source: base,
		Text:   Clean(text),
	}, nil
}

// LoadDir loads every supported file under dir in List order.
func LoadDir(dir string) ([]domain.Document, error) {
	files, err := List(dir)
	if err != nil {
		return nil, err
	}
	docs := make([]domain.Document, 0, len(files))
	for _, f := range files {
		doc, err := LoadFile(f)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func readText(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
