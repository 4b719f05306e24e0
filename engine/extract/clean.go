package extract

import (
	"regexp"
	"strings"
)

// matsne.gov.ge PDF exports stamp every page with a footer: the site URL on
// one line and the document barcode ("040.000.000.05.001.000.223") on the
// next. Both patterns match a whole trimmed line.
var (
	footerURLRe = regexp.MustCompile(`(?i)^(?:https?://)?(?:www\.)?matsne\.gov\.ge/?$`)
	barcodeRe   = regexp.MustCompile(`^\d{2,3}(?:\.\d{2,3}){5,}$`)
)

var superscripts = map[rune]rune{
	'⁰': '0', '¹': '1', '²': '2', '³': '3', '⁴': '4',
	'⁵': '5', '⁶': '6', '⁷': '7', '⁸': '8', '⁹': '9',
}

// Clean applies the corpus cleanup rules: superscript article indices fold
// to dotted numerals (49¹ becomes 49.1), soft hyphens are removed so broken
// words rejoin, footer and barcode lines are dropped, every line is trimmed,
// and runs of blank lines collapse to one.
func Clean(text string) string {
	if text == "" {
		return ""
	}
	s := foldSuperscripts(text)

	// A hyphen before a newline marks a word split across lines; removing
	// the pair rejoins the halves. Stray soft hyphens go too.
	for _, h := range []string{"­", "‐"} {
		s = strings.ReplaceAll(s, h+"\n", "")
		s = strings.ReplaceAll(s, h, "")
	}

	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	prevBlank := false
	for _, line := range lines {
		t := strings.TrimSpace(line)
		if t == "" {
			if !prevBlank {
				out = append(out, "")
			}
			prevBlank = true
			continue
		}
		if footerURLRe.MatchString(t) || barcodeRe.MatchString(t) {
			continue
		}
		out = append(out, t)
		prevBlank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// foldSuperscripts rewrites superscript numeral suffixes to dotted form.
// The dot is inserted only after a plain digit, so amended article numbers
// like 49¹ become 49.1 while a bare superscript just becomes its digit.
func foldSuperscripts(s string) string {
	if !strings.ContainsFunc(s, func(r rune) bool {
		_, ok := superscripts[r]
		return ok
	}) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	prevDigit, inSuper := false, false
	for _, r := range s {
		if d, ok := superscripts[r]; ok {
			if prevDigit && !inSuper {
				b.WriteByte('.')
			}
			b.WriteRune(d)
			inSuper = true
			prevDigit = false
			continue
		}
		inSuper = false
		prevDigit = r >= '0' && r <= '9'
		b.WriteRune(r)
	}
	return b.String()
}
