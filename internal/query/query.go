// Package query turns keyword lists into search queries: fixed-size batches,
// OR-combined query strings and the date-restrict token for a timeframe.
package query

import (
	"strconv"
	"strings"
)

// DefaultBatchSize is used when a non-positive batch size is requested.
const DefaultBatchSize = 1

// Batch groups keywords into consecutive batches of at most size entries,
// preserving input order. Batch i covers keywords[i*size:(i+1)*size].
func Batch(keywords []string, size int) [][]string {
	if size <= 0 {
		size = DefaultBatchSize
	}
	out := make([][]string, 0, (len(keywords)+size-1)/size)
	for i := 0; i < len(keywords); i += size {
		end := i + size
		if end > len(keywords) {
			end = len(keywords)
		}
		b := make([]string, end-i)
		copy(b, keywords[i:end])
		out = append(out, b)
	}
	return out
}

// Build joins the phrases of one batch with the OR operator. Phrases are
// passed through verbatim: exact-match quoting and site: restrictions the
// caller already wrote are preserved, and overlapping phrases are not merged.
func Build(batch []string) string {
	return strings.Join(batch, " OR ")
}

// DefaultDateRestrict applies to unrecognized timeframes.
const DefaultDateRestrict = "d30"

// DateRestrict resolves a human timeframe to the search service token.
//
//	"today"         -> "d1"
//	"lifetime"      -> "" (no restriction)
//	"last N days"   -> "dN"
//	"last N weeks"  -> "d(N*7)"
//	"last N months" -> "d(N*30)"
//
// Anything else resolves to DefaultDateRestrict.
func DateRestrict(timeframe string) string {
	tf := strings.ToLower(strings.TrimSpace(timeframe))
	switch tf {
	case "today":
		return "d1"
	case "lifetime":
		return ""
	}
	fields := strings.Fields(tf)
	if len(fields) != 3 || fields[0] != "last" {
		return DefaultDateRestrict
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil || n <= 0 {
		return DefaultDateRestrict
	}
	switch strings.TrimSuffix(fields[2], "s") {
	case "day":
		return "d" + strconv.Itoa(n)
	case "week":
		return "d" + strconv.Itoa(n*7)
	case "month":
		return "d" + strconv.Itoa(n*30)
	}
	return DefaultDateRestrict
}

// WithSubject prefixes the subject name to every keyword that does not
// already mention it. Blank keywords are dropped.
func WithSubject(subject string, keywords []string) []string {
	name := strings.TrimSpace(subject)
	lower := strings.ToLower(name)
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		if lower == "" || strings.Contains(strings.ToLower(kw), lower) {
			out = append(out, kw)
			continue
		}
		out = append(out, name+" "+kw)
	}
	return out
}
