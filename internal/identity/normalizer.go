// Package identity canonicalizes contestant names so that records from
// different feeds can be joined on a comparable key.
package identity

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var bracketed = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]`)

// letters that do not decompose under NFD
var foldExtra = strings.NewReplacer(
	"ø", "o", "Ø", "O",
	"ł", "l", "Ł", "L",
	"đ", "d", "Đ", "D",
	"æ", "ae", "Æ", "AE",
	"œ", "oe", "Œ", "OE",
	"ß", "ss",
	"ı", "i",
)

// Identity pairs a name as a source supplied it with its normalized key.
type Identity struct {
	Raw string `json:"raw"`
	Key string `json:"key"`
}

// New builds the identity for a raw name.
func New(raw string) Identity {
	return Identity{Raw: raw, Key: Normalize(raw)}
}

// Normalize returns the order-insensitive key for a raw contestant name:
// lower-case ASCII letters only, tokens sorted and joined by single spaces.
// "Scheffler, Scottie", "Scottie Scheffler" and "🇺🇸 Scottie Scheffler (USA)"
// all produce "scheffler scottie".
func Normalize(raw string) string {
	tokens := tokenize(raw)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// tokenize returns the cleaned name tokens in source order.
func tokenize(raw string) []string {
	s := bracketed.ReplaceAllString(raw, " ")
	s = fold(s)
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r == '\'' || r == '’' || r == '.':
			// "O'Hair" -> "ohair", "J.T." -> "jt"
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Fields(b.String())
}

func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return foldExtra.Replace(out)
}
