package internal

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// SanitizeFilename makes a filename safe for filesystem and URL use.
// Leading dots are dropped so hidden and relative names cannot be written,
// and every rune other than a letter, digit, '.' or '_' becomes '_'.
func SanitizeFilename(filename string) string {
	// Compose first so "e" + combining accent counts as one letter.
	filename = norm.NFC.String(filename)
	filename = strings.TrimLeft(filename, ".")

	var b strings.Builder
	b.Grow(len(filename))
	for _, r := range filename {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '.', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
