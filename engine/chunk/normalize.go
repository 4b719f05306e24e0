// Package chunk implements the text-to-chunk transformation: whitespace
// normalization, article segmentation, overlapping token windows, and the
// provenance records handed to the embedding/index stages. Everything here
// is pure computation — no I/O, no shared state, safe to run per document
// in parallel.
package chunk

import "strings"

// Normalize canonicalizes line endings, strips trailing spaces per line,
// and collapses runs of three or more newlines to a blank line. All section
// and chunk offsets downstream are byte offsets into the normalized text.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " \t")
	}
	s = strings.Join(lines, "\n")

	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	return s
}
