package keywords

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hyperifyio/goleakscan/internal/knowledge"
)

const (
	maxCandidates   = 50
	minTokenRunes   = 4
	minCandidateHit = 2
)

// Candidates returns frequent terms from the titles and snippets of records:
// purely alphabetic lower-cased tokens of at least four runes, the fifty most
// common (ties by first occurrence), keeping only those seen more than once.
func Candidates(records []knowledge.Record) []string {
	counts := map[string]int{}
	var order []string
	add := func(text string) {
		for _, tok := range tokenize(text) {
			if utf8.RuneCountInString(tok) < minTokenRunes || !isAlpha(tok) {
				continue
			}
			if _, ok := counts[tok]; !ok {
				order = append(order, tok)
			}
			counts[tok]++
		}
	}
	for _, r := range records {
		add(r.Title)
		add(r.Snippet)
	}
	ranked := make([]string, len(order))
	copy(ranked, order)
	sort.SliceStable(ranked, func(i, j int) bool { return counts[ranked[i]] > counts[ranked[j]] })
	if len(ranked) > maxCandidates {
		ranked = ranked[:maxCandidates]
	}
	out := ranked[:0]
	for _, t := range ranked {
		if counts[t] >= minCandidateHit {
			out = append(out, t)
		}
	}
	return out
}

// tokenize splits on anything that is not a letter, digit or apostrophe, so
// "don't" stays one (non-alphabetic) token the way a word tokenizer treats it.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return s != ""
}
