// Package dedup holds the set of result URLs already known for a subject.
package dedup

import "sync"

// Index is a membership set of URLs. It is loaded once per session from the
// subject's ledger and extended as new results are discovered, so a URL is
// reported as new at most once per session and never again once stored.
type Index struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// New returns an index preloaded with urls.
func New(urls ...string) *Index {
	idx := &Index{seen: make(map[string]struct{}, len(urls))}
	for _, u := range urls {
		idx.seen[u] = struct{}{}
	}
	return idx
}

// Seen reports whether url is already known.
func (i *Index) Seen(url string) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	_, ok := i.seen[url]
	return ok
}

// Add records url as known.
func (i *Index) Add(url string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.seen == nil {
		i.seen = make(map[string]struct{})
	}
	i.seen[url] = struct{}{}
}

// MarkIfNew records url and reports true only if it was not known before.
func (i *Index) MarkIfNew(url string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.seen == nil {
		i.seen = make(map[string]struct{})
	}
	if _, ok := i.seen[url]; ok {
		return false
	}
	i.seen[url] = struct{}{}
	return true
}

// Len returns the number of known URLs.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.seen)
}
