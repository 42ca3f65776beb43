package subject

import "sync"

// Locks is a table of exclusive locks keyed by subject. Entries are reference
// counted and dropped once no goroutine holds or waits for them, so the table
// does not grow with the number of subjects ever seen.
type Locks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Lock acquires the lock for name and returns the matching unlock function.
// Names are keyed by FileKey, the identity their files are stored under.
func (l *Locks) Lock(name string) func() {
	key := FileKey(name)

	l.mu.Lock()
	if l.entries == nil {
		l.entries = make(map[string]*lockEntry)
	}
	e, ok := l.entries[key]
	if !ok {
		e = &lockEntry{}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.entries, key)
		}
		l.mu.Unlock()
	}
}

// Len reports the number of subjects currently locked or awaited.
func (l *Locks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
