package IO

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	punctRe    = regexp.MustCompile(`([.!?])`)
	nonLetters = regexp.MustCompile(`[^a-zA-Z.!?]+`)
)

// UnicodeToASCII drops combining marks after canonical decomposition, so
// "está" becomes "esta". Characters without an ASCII base are kept and later
// removed by NormalizeString.
func UnicodeToASCII(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeString lowercases, folds accents, separates . ! ? from the
// preceding word and collapses everything else that is not a letter into
// single spaces.
func NormalizeString(s string) string {
	s = UnicodeToASCII(strings.ToLower(strings.TrimSpace(s)))
	s = punctRe.ReplaceAllString(s, " $1")
	s = nonLetters.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// TokenCount is the number of space-separated tokens, the unit MaxLength is
// expressed in.
func TokenCount(s string) int {
	return len(strings.Split(s, " "))
}
