package chat

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// StripFormatRunes removes Unicode format runes (left-to-right marks,
// zero-width joiners, and similar) that exports embed around attachment names.
func StripFormatRunes(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Cf, r) {
			return -1
		}
		return r
	}, s)
}

// NormalizeName canonicalizes a filename for matching: NFC normalization plus
// format-rune stripping. Archive entries and transcript mentions of the same
// attachment can otherwise disagree on byte representation.
func NormalizeName(name string) string {
	return StripFormatRunes(norm.NFC.String(name))
}
