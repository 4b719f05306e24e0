package domain

import (
	"fmt"
	"unicode/utf8"
)

// ValidateDocument checks a Document before chunking. The text must be
// valid UTF-8 so that offset math stays byte-stable end to end.
func ValidateDocument(doc Document) error {
	if doc.DocID == "" {
		return NewValidationError("doc_id", doc.DocID, ErrEmptyDocID)
	}
	if !utf8.ValidString(doc.Text) {
		return NewValidationError("text", doc.DocID, ErrMalformedInput)
	}
	return nil
}

// ValidateWindow checks chunk window parameters. Callers must reject the
// whole run before any section is windowed.
func ValidateWindow(targetTokens, overlapTokens int) error {
	if targetTokens <= 0 {
		return NewValidationError("target_tokens", fmt.Sprint(targetTokens), ErrInvalidWindowConfig)
	}
	if overlapTokens < 0 || overlapTokens >= targetTokens {
		return NewValidationError("overlap_tokens", fmt.Sprint(overlapTokens), ErrInvalidWindowConfig)
	}
	return nil
}
