package graph

// KnownLaws maps corpus document IDs to official law titles. A Law node
// falls back to this table when its source file yields no usable title
// line. Unlisted documents keep whatever title the indexer derived.
var KnownLaws = map[string]string{
	"civil-code":              "საქართველოს სამოქალაქო კოდექსი",
	"civil-procedure-code":    "საქართველოს სამოქალაქო საპროცესო კოდექსი",
	"criminal-code":           "საქართველოს სისხლის სამართლის კოდექსი",
	"criminal-procedure-code": "საქართველოს სისხლის სამართლის საპროცესო კოდექსი",
	"labor-code":              "საქართველოს შრომის კოდექსი",
	"tax-code":                "საქართველოს საგადასახადო კოდექსი",
	"administrative-code":     "საქართველოს ზოგადი ადმინისტრაციული კოდექსი",
	"constitution":            "საქართველოს კონსტიტუცია",
	"entrepreneurs-law":       "მეწარმეთა შესახებ საქართველოს კანონი",
}

// TitleForDoc resolves the display title for a document: the known-laws
// table wins, then the derived title, then the document ID itself.
func TitleForDoc(docID, derived string) string {
	if t, ok := KnownLaws[docID]; ok {
		return t
	}
	if derived != "" {
		return derived
	}
	return docID
}
