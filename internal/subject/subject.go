// Package subject defines the identity key that partitions all persisted
// state, and the per-subject lock table used to serialize writers.
package subject

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// Normalize returns the identity key for a subject name: NFKC normalized,
// trimmed, internal whitespace collapsed to single spaces and case-folded.
// "  Jane   DOE " and "jane doe" share one key.
func Normalize(name string) string {
	s := norm.NFKC.String(name)
	s = strings.Join(strings.Fields(s), " ")
	return folder.String(s)
}

// FileKey returns a file-name safe form of the subject key. Letters, digits
// and '-' are kept and spaces become '_'. Every other rune, '_' included, is
// escaped as "~XX" (two hex digits) or "~uXXXXXX", so distinct keys never
// share a file name.
func FileKey(name string) string {
	key := Normalize(name)
	if key == "" {
		return "_"
	}
	var b strings.Builder
	b.Grow(len(key))
	for _, r := range key {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		case r < 0x100:
			fmt.Fprintf(&b, "~%02x", r)
		default:
			fmt.Fprintf(&b, "~u%06x", r)
		}
	}
	return b.String()
}
