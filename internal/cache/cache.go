// Package cache keeps keyword-ranking answers on disk, one directory per
// subject, so repeated learning passes over the same text skip the model.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/hyperifyio/goleakscan/internal/subject"
)

// ErrNotConfigured is returned when the cache has no directory.
var ErrNotConfigured = errors.New("ranking cache not configured")

// Entry is one cached ranking answer. Kind and Phrases hold the parsed form
// so a hit reports the same parse outcome as the original call.
type Entry struct {
	Model    string    `json:"model"`
	Subject  string    `json:"subject"`
	Kind     string    `json:"kind"`
	Phrases  []string  `json:"phrases"`
	Raw      string    `json:"raw"`
	StoredAt time.Time `json:"stored_at"`
}

// RankingCache stores entries under Dir/<subject file key>/<digest>.json.
type RankingCache struct {
	Dir string
	// StrictPerms enforces 0700 on directories and 0600 on entries.
	StrictPerms bool
}

// Key digests the model and the full prompt.
func Key(model, prompt string) string {
	h := sha256.Sum256([]byte(model + "\n\n" + prompt))
	return hex.EncodeToString(h[:])
}

func (c *RankingCache) subjectDir(name string) string {
	return filepath.Join(c.Dir, subject.FileKey(name))
}

func (c *RankingCache) pathFor(name, key string) string {
	return filepath.Join(c.subjectDir(name), key+".json")
}

func (c *RankingCache) configured() error {
	if c == nil || c.Dir == "" {
		return ErrNotConfigured
	}
	return nil
}

func (c *RankingCache) mkdir(dir string) error {
	perm := os.FileMode(0o755)
	if c.StrictPerms {
		perm = 0o700
	}
	if err := os.MkdirAll(dir, perm); err != nil {
		return err
	}
	if c.StrictPerms {
		for _, d := range []string{c.Dir, dir} {
			if info, err := os.Stat(d); err == nil && info.Mode()&0o777 != 0o700 {
				_ = os.Chmod(d, 0o700)
			}
		}
	}
	return nil
}

// Lookup returns the entry stored for a subject and key. A hit refreshes the
// entry's mtime so EnforceLimits evicts least recently used entries first.
// Unreadable entries are removed and reported as misses.
func (c *RankingCache) Lookup(name, key string) (Entry, bool, error) {
	if err := c.configured(); err != nil {
		return Entry{}, false, err
	}
	p := c.pathFor(name, key)
	b, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	var e Entry
	if err := json.Unmarshal(b, &e); err != nil {
		_ = os.Remove(p)
		return Entry{}, false, nil
	}
	now := time.Now()
	_ = os.Chtimes(p, now, now)
	return e, true, nil
}

// Store writes e for a subject and key, replacing any previous entry.
func (c *RankingCache) Store(name, key string, e Entry) error {
	if err := c.configured(); err != nil {
		return err
	}
	dir := c.subjectDir(name)
	if err := c.mkdir(dir); err != nil {
		return err
	}
	e.Subject = name
	if e.StoredAt.IsZero() {
		e.StoredAt = time.Now().UTC()
	}
	b, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	mode := os.FileMode(0o644)
	if c.StrictPerms {
		mode = 0o600
	}
	tmp, err := os.CreateTemp(dir, ".entry-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), mode); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), c.pathFor(name, key))
}

// PurgeSubject drops every cached answer of a subject and returns how many
// entries were removed.
func (c *RankingCache) PurgeSubject(name string) (int, error) {
	if err := c.configured(); err != nil {
		return 0, err
	}
	dir := c.subjectDir(name)
	entries, err := listEntries(dir)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, e := range entries {
		if os.Remove(e.path) == nil {
			removed++
		}
	}
	_ = os.Remove(dir)
	return removed, nil
}
