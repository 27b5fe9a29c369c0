package dedupe

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// legalSuffixes lists common legal entity suffixes stripped during name
// normalization, lower-cased to match folded input.
var legalSuffixes = []string{
	" llc", " l.l.c.", " l.l.c",
	" inc", " inc.", " incorporated",
	" corp", " corp.", " corporation",
	" ltd", " ltd.", " limited",
	" lp", " l.p.", " l.p",
	" llp", " l.l.p.", " l.l.p",
	" pc", " p.c.", " p.c",
	" pa", " p.a.", " p.a",
	" co", " co.",
	" plc", " p.l.c.",
	" na", " n.a.", " n.a",
	" dba", " d/b/a",
	" pllc",
}

var (
	multiSpaceRe = regexp.MustCompile(`\s{2,}`)
	punctRe      = regexp.MustCompile(`[^a-z0-9 ]+`)

	// Decompose, drop combining marks, recompose. Turns "café" into "cafe".
	diacriticFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// Fold standardizes a free-text field for matching:
//  1. Trim whitespace and lower-case
//  2. Strip diacritics
//  3. Map "&" to "and", drop remaining punctuation
//  4. Collapse runs of spaces
func Fold(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}

	if folded, _, err := transform.String(diacriticFolder, s); err == nil {
		s = folded
	}

	s = strings.ReplaceAll(s, "&", " and ")
	s = punctRe.ReplaceAllString(s, " ")
	s = multiSpaceRe.ReplaceAllString(s, " ")

	return strings.TrimSpace(s)
}

// NormalizeName folds a trade or legal name and strips a trailing legal
// suffix (llc, inc, corp, ...), so "ACME Co." and "acme" compare equal.
func NormalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ""
	}

	// Strip the suffix before folding removes the punctuation that
	// distinguishes "l.l.c." from content words.
	for _, suffix := range legalSuffixes {
		if strings.HasSuffix(name, suffix) {
			name = strings.TrimSuffix(name, suffix)
			break
		}
	}

	return Fold(name)
}

// tokens splits a folded string into its word set.
func tokens(s string) []string {
	return strings.Fields(s)
}
