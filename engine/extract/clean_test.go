package extract

import "testing"

func TestCleanDropsFooterLines(t *testing.T) {
	in := "პირველი პუნქტი.\n\nhttp://www.matsne.gov.ge\n040.000.000.05.001.000.223\n\nმეორე პუნქტი."
	got := Clean(in)
	want := "პირველი პუნქტი.\n\nმეორე პუნქტი."
	if got != want {
		t.Fatalf("Clean = %q, want %q", got, want)
	}
}

func TestCleanFooterURLVariants(t *testing.T) {
	variants := []string{
		"http://www.matsne.gov.ge",
		"https://matsne.gov.ge/",
		"www.matsne.gov.ge",
		"matsne.gov.ge",
		"MATSNE.GOV.GE",
	}
	for _, v := range variants {
		got := Clean("a\n" + v + "\nb")
		if got != "a\nb" {
			t.Errorf("Clean with footer %q = %q, want %q", v, got, "a\nb")
		}
	}
}

func TestCleanKeepsShortNumerals(t *testing.T) {
	// Dotted article numbers and years are not barcodes.
	in := "მუხლი 49.1\n2024\n12.5.3"
	if got := Clean(in); got != in {
		t.Fatalf("Clean = %q, want input unchanged", got)
	}
}

func TestCleanFoldsSuperscripts(t *testing.T) {
	tests := []struct{ in, want string }{
		{"მუხლი 49¹", "მუხლი 49.1"},
		{"მუხლი 125¹⁰", "მუხლი 125.10"},
		{"¹ შენიშვნა", "1 შენიშვნა"},
		{"49¹ და 52³", "49.1 და 52.3"},
	}
	for _, tt := range tests {
		if got := Clean(tt.in); got != tt.want {
			t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCleanRejoinsHyphenatedWords(t *testing.T) {
	tests := []struct{ in, want string }{
		{"კანონ­\nმდებლობა", "კანონმდებლობა"},
		{"კანონ‐\nმდებლობა", "კანონმდებლობა"},
		{"სიტყ­ვა", "სიტყვა"},
	}
	for _, tt := range tests {
		if got := Clean(tt.in); got != tt.want {
			t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCleanTrimsAndCollapsesBlanks(t *testing.T) {
	in := "  პირველი  \n\n\n\nმეორე\t\n\n"
	want := "პირველი\n\nმეორე"
	if got := Clean(in); got != want {
		t.Fatalf("Clean = %q, want %q", got, want)
	}
}

func TestCleanEmpty(t *testing.T) {
	if got := Clean(""); got != "" {
		t.Fatalf("Clean(\"\") = %q, want empty", got)
	}
}

func TestCleanFooterBetweenBlanksLeavesOneGap(t *testing.T) {
	in := "ბოლო წინადადება.\n\nmatsne.gov.ge\n040.000.000.05.001.000.223\n\nმუხლი 2. სათაური"
	want := "ბოლო წინადადება.\n\nმუხლი 2. სათაური"
	if got := Clean(in); got != want {
		t.Fatalf("Clean = %q, want %q", got, want)
	}
}
