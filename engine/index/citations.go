package index

import (
	"github.com/NormaAI/norma-mvp/engine/domain"
	"github.com/NormaAI/norma-mvp/engine/graph"
	"github.com/NormaAI/norma-mvp/pkg/artref"
)

// Articles lists the labeled articles of a segmented document in order.
// The first occurrence wins on duplicate numerals.
func Articles(docID string, sections []domain.Section) []graph.Article {
	var out []graph.Article
	seen := make(map[string]bool)
	for _, sec := range sections {
		if sec.Article == "" || seen[sec.Article] {
			continue
		}
		seen[sec.Article] = true
		out = append(out, graph.Article{
			ID:    graph.ArticleID(docID, sec.Article),
			DocID: docID,
			Num:   sec.Article,
			Title: sec.SectionTitle,
		})
	}
	return out
}

// Citations derives CITES edges from in-text references found in labeled
// chunks. A reference that names no law resolves to the containing
// document; self references are dropped (the section header cites its own
// numeral). Duplicate edges keep the highest confidence seen.
func Citations(docID string, chunks []domain.Chunk) []graph.Citation {
	var out []graph.Citation
	at := make(map[string]int)
	for _, c := range chunks {
		if c.Article == "" {
			continue
		}
		for _, ref := range artref.Extract(c.Text) {
			toDoc := ref.Law
			if toDoc == "" {
				toDoc = docID
			}
			if toDoc == docID && ref.Article == c.Article {
				continue
			}
			key := graph.ArticleID(docID, c.Article) + ">" + graph.ArticleID(toDoc, ref.Article)
			if i, dup := at[key]; dup {
				if ref.Confidence > out[i].Confidence {
					out[i].Confidence = ref.Confidence
				}
				continue
			}
			at[key] = len(out)
			out = append(out, graph.Citation{
				FromDocID:  docID,
				FromNum:    c.Article,
				ToDocID:    toDoc,
				ToNum:      ref.Article,
				Confidence: ref.Confidence,
			})
		}
	}
	return out
}
