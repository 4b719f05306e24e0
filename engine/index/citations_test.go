package index

import (
	"testing"

	"github.com/NormaAI/norma-mvp/engine/domain"
)

func TestArticles(t *testing.T) {
	sections := []domain.Section{
		{Article: "", SectionTitle: ""},
		{Article: "1", SectionTitle: "მუხლი 1. ცნება"},
		{Article: "2", SectionTitle: "მუხლი 2. სფერო"},
		{Article: "1", SectionTitle: "მუხლი 1. დუბლიკატი"},
		{Article: "", SectionTitle: "კარი მეორე"},
	}

	arts := Articles("civil-code", sections)
	if len(arts) != 2 {
		t.Fatalf("articles = %+v", arts)
	}
	if arts[0].ID != "civil-code:1" || arts[0].Title != "მუხლი 1. ცნება" {
		t.Errorf("first = %+v", arts[0])
	}
	if arts[1].Num != "2" || arts[1].DocID != "civil-code" {
		t.Errorf("second = %+v", arts[1])
	}
}

func TestCitationsSameLaw(t *testing.T) {
	chunks := []domain.Chunk{
		{DocID: "civil-code", Article: "73", Text: "მუხლი 73. წარმომადგენლობა\nწესები დგინდება 103-ე მუხლის შესაბამისად."},
	}

	cites := Citations("civil-code", chunks)
	if len(cites) != 1 {
		t.Fatalf("citations = %+v", cites)
	}
	c := cites[0]
	if c.FromDocID != "civil-code" || c.FromNum != "73" || c.ToDocID != "civil-code" || c.ToNum != "103" {
		t.Errorf("edge = %+v", c)
	}
	if c.Confidence <= 0 {
		t.Errorf("confidence = %v", c.Confidence)
	}
}

func TestCitationsCrossLaw(t *testing.T) {
	chunks := []domain.Chunk{
		{DocID: "labor-code", Article: "5", Text: "გამოიყენება სამოქალაქო კოდექსის 152-ე მუხლი."},
	}

	cites := Citations("labor-code", chunks)
	if len(cites) != 1 {
		t.Fatalf("citations = %+v", cites)
	}
	if cites[0].ToDocID != "civil-code" || cites[0].ToNum != "152" {
		t.Errorf("edge = %+v", cites[0])
	}
}

func TestCitationsSkipSelf(t *testing.T) {
	chunks := []domain.Chunk{
		{DocID: "civil-code", Article: "73", Text: "მუხლი 73. წარმომადგენლობა"},
	}

	if cites := Citations("civil-code", chunks); len(cites) != 0 {
		t.Fatalf("header self-reference produced edges: %+v", cites)
	}
}

func TestCitationsSkipUnlabeledChunks(t *testing.T) {
	chunks := []domain.Chunk{
		{DocID: "civil-code", Article: "", Text: "პრეამბულა ახსენებს 55-ე მუხლს."},
	}

	if cites := Citations("civil-code", chunks); len(cites) != 0 {
		t.Fatalf("preamble produced edges: %+v", cites)
	}
}

func TestCitationsDedupeKeepsHighestConfidence(t *testing.T) {
	// Overlapping windows repeat the same reference; the second mention is
	// the strong citation form, which should win.
	chunks := []domain.Chunk{
		{DocID: "civil-code", Article: "73", Text: "ვადები დგინდება 103-ე მუხლით."},
		{DocID: "civil-code", Article: "73", Text: "იხილეთ მუხლი 103 დეტალებისთვის."},
	}

	cites := Citations("civil-code", chunks)
	if len(cites) != 1 {
		t.Fatalf("citations = %+v", cites)
	}
	if cites[0].Confidence != 0.90 {
		t.Errorf("confidence = %v, want the citation-form 0.90", cites[0].Confidence)
	}
}
