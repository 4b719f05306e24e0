package extract

import (
	"bytes"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// readMarkdown flattens a Markdown file to plain text. Headings become
// plain lines, so an article header written as "## მუხლი 5. ..." still
// sits at line start for the segmenter. Top-level blocks stay in order,
// separated by one blank line.
func readMarkdown(path string) (string, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	var blocks []string
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if t := blockText(n, src); t != "" {
			blocks = append(blocks, t)
		}
	}
	return strings.Join(blocks, "\n\n"), nil
}

// blockText returns the source text of a block node. Leaf blocks carry
// their own line segments; container blocks (lists, quotes) hold none and
// are flattened through their children, one child per line.
func blockText(n ast.Node, src []byte) string {
	if n.Type() != ast.TypeBlock {
		return ""
	}
	var buf bytes.Buffer
	if lines := n.Lines(); lines != nil && lines.Len() > 0 {
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			buf.Write(seg.Value(src))
		}
	} else {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			t := blockText(c, src)
			if t == "" {
				continue
			}
			if buf.Len() > 0 {
				buf.WriteByte('\n')
			}
			buf.WriteString(t)
		}
	}
	return strings.TrimSpace(buf.String())
}
