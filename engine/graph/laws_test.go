package graph

import "testing"

func TestTitleForDoc(t *testing.T) {
	tests := []struct {
		docID, derived, want string
	}{
		{"civil-code", "", "საქართველოს სამოქალაქო კოდექსი"},
		{"civil-code", "სხვა სათაური", "საქართველოს სამოქალაქო კოდექსი"},
		{"unknown-law", "დერივირებული სათაური", "დერივირებული სათაური"},
		{"unknown-law", "", "unknown-law"},
		{"constitution", "", "საქართველოს კონსტიტუცია"},
	}
	for _, tt := range tests {
		if got := TitleForDoc(tt.docID, tt.derived); got != tt.want {
			t.Errorf("TitleForDoc(%q, %q) = %q, want %q", tt.docID, tt.derived, got, tt.want)
		}
	}
}
