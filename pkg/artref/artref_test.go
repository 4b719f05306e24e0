package artref

import (
	"testing"
)

func refByArticle(refs []Ref, num string) *Ref {
	for i := range refs {
		if refs[i].Article == num {
			return &refs[i]
		}
	}
	return nil
}

func TestExtractCitationForm(t *testing.T) {
	refs := Extract("ამ ურთიერთობას აწესრიგებს მუხლი 73 და შესაბამისი ნორმები")
	if len(refs) != 1 {
		t.Fatalf("refs = %+v", refs)
	}
	if refs[0].Article != "73" || refs[0].Confidence != 0.90 {
		t.Fatalf("ref = %+v", refs[0])
	}
}

func TestExtractInflectedOrdinal(t *testing.T) {
	refs := Extract("ხელშეკრულების ფორმას ადგენს 152-ე მუხლი")
	if r := refByArticle(refs, "152"); r == nil || r.Confidence != 0.85 {
		t.Fatalf("refs = %+v", refs)
	}
}

func TestExtractMePrefixOrdinal(t *testing.T) {
	refs := Extract("მე-5 მუხლის თანახმად გარიგება ბათილია")
	if r := refByArticle(refs, "5"); r == nil {
		t.Fatalf("refs = %+v", refs)
	}
}

func TestExtractOrdinalList(t *testing.T) {
	refs := Extract("ვრცელდება 152-ე და 153-ე მუხლები")
	r153 := refByArticle(refs, "153")
	r152 := refByArticle(refs, "152")
	if r153 == nil || r152 == nil {
		t.Fatalf("refs = %+v", refs)
	}
	if r153.Confidence != 0.85 {
		t.Fatalf("nearest ordinal confidence = %v", r153.Confidence)
	}
	if r152.Confidence != 0.70 {
		t.Fatalf("list member confidence = %v", r152.Confidence)
	}
}

func TestExtractWithLawName(t *testing.T) {
	refs := Extract("საქართველოს სამოქალაქო კოდექსის 115-ე მუხლი კრძალავს უფლების ბოროტად გამოყენებას")
	r := refByArticle(refs, "115")
	if r == nil {
		t.Fatalf("refs = %+v", refs)
	}
	if r.Law != "civil-code" || r.Confidence != 0.92 {
		t.Fatalf("ref = %+v", *r)
	}
}

func TestExtractLawWithCitationForm(t *testing.T) {
	refs := Extract("იხილეთ სამოქალაქო კოდექსი, მუხლი 319")
	r := refByArticle(refs, "319")
	if r == nil || r.Law != "civil-code" || r.Confidence != 0.95 {
		t.Fatalf("refs = %+v", refs)
	}
}

func TestExtractSuperscriptNumeral(t *testing.T) {
	refs := Extract("პასუხისმგებლობას ითვალისწინებს 49¹-ე მუხლი")
	if r := refByArticle(refs, "49.1"); r == nil {
		t.Fatalf("refs = %+v", refs)
	}
}

func TestExtractDottedNumeral(t *testing.T) {
	refs := Extract("მუხლი 49.1 განსაზღვრავს წესს")
	if r := refByArticle(refs, "49.1"); r == nil {
		t.Fatalf("refs = %+v", refs)
	}
}

func TestExtractEnglishAndRussian(t *testing.T) {
	refs := Extract("see Article 73, а также статья 12")
	if refByArticle(refs, "73") == nil || refByArticle(refs, "12") == nil {
		t.Fatalf("refs = %+v", refs)
	}
}

func TestExtractSelfReferenceIgnored(t *testing.T) {
	if refs := Extract("ამ მუხლის პირველი ნაწილი არ გამოიყენება"); len(refs) != 0 {
		t.Fatalf("self reference produced refs: %+v", refs)
	}
}

func TestExtractEmbeddedWordIgnored(t *testing.T) {
	if refs := Extract("particles 5 and 6"); len(refs) != 0 {
		t.Fatalf("embedded latin word matched: %+v", refs)
	}
	if refs := Extract("სამუხლო ტკივილი 5 დღეა"); len(refs) != 0 {
		t.Fatalf("embedded georgian word matched: %+v", refs)
	}
}

func TestExtractDeduplicates(t *testing.T) {
	refs := Extract("მუხლი 73 მოქმედებს; ეს დგინდება 73-ე მუხლით")
	if len(refs) != 1 {
		t.Fatalf("refs = %+v", refs)
	}
	if refs[0].Confidence != 0.90 {
		t.Fatalf("first mention should win: %+v", refs[0])
	}
}

func TestExtractBest(t *testing.T) {
	best := ExtractBest("ვრცელდება 152-ე და 153-ე მუხლები, ასევე მუხლი 319")
	if best == nil || best.Article != "319" {
		t.Fatalf("best = %+v", best)
	}
	if ExtractBest("არაფერი სამართლებრივი") != nil {
		t.Fatal("best on plain text should be nil")
	}
}

func TestArticlesHelper(t *testing.T) {
	refs := []Ref{
		{Article: "73"},
		{Article: "152"},
		{Article: "73"},
	}
	got := Articles(refs)
	if len(got) != 2 || got[0] != "73" || got[1] != "152" {
		t.Fatalf("Articles = %v", got)
	}
}

func TestExtractEmpty(t *testing.T) {
	if Extract("") != nil {
		t.Fatal("empty text should yield nil")
	}
}

func TestFoldSuperscripts(t *testing.T) {
	tests := []struct{ in, want string }{
		{"49¹", "49.1"},
		{"49¹²", "49.12"},
		{"მუხლი 254³", "მუხლი 254.3"},
		{"no superscripts", "no superscripts"},
	}
	for _, tt := range tests {
		if got := foldSuperscripts(tt.in); got != tt.want {
			t.Errorf("foldSuperscripts(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
