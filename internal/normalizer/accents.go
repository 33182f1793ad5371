package normalizer

import (
	"strings"
	"unicode/utf8"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

// combining dot above, left behind when İ is decomposed
const dotAbove = "\u0307"

var turkishFolder = strings.NewReplacer(
	"ç", "c", "ğ", "g", "ı", "i", "ş", "s", "ö", "o", "ü", "u",
	"Ç", "c", "Ğ", "g", "İ", "i", "Ş", "s", "Ö", "o", "Ü", "u",
)

// TurkishLower lowercases s without the dotted-I artefacts of a naive
// lowercase: İ becomes plain "i" and stray combining dots are dropped.
// The result is NFC.
func TurkishLower(s string) string {
	if s == "" {
		return s
	}
	s = strings.ReplaceAll(s, "İ", "I")
	s = strings.ReplaceAll(s, dotAbove, "")
	s = strings.ToLower(s)
	return norm.NFC.String(s)
}

// FoldTurkish maps ç ğ ı ş ö ü (either case) to their ASCII base letters.
func FoldTurkish(s string) string {
	return turkishFolder.Replace(s)
}

// FoldASCII transliterates everything to ASCII.
func FoldASCII(s string) string {
	return unidecode.Unidecode(s)
}

// FixMojibake repairs UTF-8 text that was decoded as Latin-1 (or CP1252).
// Only strings carrying the tell-tale Ã/Ä/Å are touched; on any failure the
// input is returned unchanged.
func FixMojibake(s string) string {
	if s == "" || !strings.ContainsAny(s, "ÃÄÅ") {
		return s
	}
	for _, enc := range []encoding.Encoding{charmap.ISO8859_1, charmap.Windows1252} {
		b, err := enc.NewEncoder().Bytes([]byte(s))
		if err != nil {
			continue
		}
		if utf8.Valid(b) {
			return string(b)
		}
	}
	return s
}
