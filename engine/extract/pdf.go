package extract

import (
	"fmt"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
)

// readPDF extracts the plain text of every page, separated by blank lines.
// A page that fails to decode is skipped rather than failing the document.
func readPDF(path string) (string, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var buf strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if buf.Len() > 0 {
			buf.WriteString("\n\n")
		}
		buf.WriteString(text)
	}
	if buf.Len() == 0 {
		return "", fmt.Errorf("no extractable text")
	}
	return buf.String(), nil
}
