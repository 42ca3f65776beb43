// Package aggregate derives per-domain figures from result URLs.
package aggregate

import (
	"sort"
	"strings"
)

// DomainOf returns the text between the scheme separator "//" and the next
// "/". URLs without a scheme separator are their own bucket, verbatim.
func DomainOf(rawURL string) string {
	i := strings.Index(rawURL, "//")
	if i < 0 {
		return rawURL
	}
	rest := rawURL[i+2:]
	if j := strings.IndexByte(rest, '/'); j >= 0 {
		return rest[:j]
	}
	return rest
}

// Histogram counts URLs per domain.
func Histogram(urls []string) map[string]int {
	out := make(map[string]int)
	for _, u := range urls {
		out[DomainOf(u)]++
	}
	return out
}

// Bucket is one histogram entry.
type Bucket struct {
	Domain string `json:"domain"`
	Count  int    `json:"count"`
}

// Sorted orders a histogram by count descending, then domain ascending.
func Sorted(h map[string]int) []Bucket {
	out := make([]Bucket, 0, len(h))
	for d, c := range h {
		out = append(out, Bucket{Domain: d, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Domain < out[j].Domain
	})
	return out
}

// Domain lists used by the content-type filter. Matching is by substring on
// the URL, which is a routing hint rather than a classification.
var contentTypeDomains = map[string][]string{
	"video": {"youtube.com", "vimeo.com", "tiktok.com", "twitch.tv"},
	"image": {"instagram.com", "imgur.com", "flickr.com", "pinterest.com"},
}

// MatchesContentType reports whether url passes the content-type filter.
// "all", "" and unknown types accept every URL.
func MatchesContentType(url, contentType string) bool {
	domains, ok := contentTypeDomains[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return true
	}
	for _, d := range domains {
		if strings.Contains(url, d) {
			return true
		}
	}
	return false
}
