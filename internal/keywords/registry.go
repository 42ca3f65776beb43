package keywords

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Keyword is the learned state of one phrase.
type Keyword struct {
	Occurrence int    `json:"occurrence"`
	FirstSeen  string `json:"first_seen"`
	LastSeen   string `json:"last_seen"`
}

// Registry maps normalized phrase text to its state.
type Registry map[string]Keyword

// normalizeKeyword is the registry identity of a phrase.
func normalizeKeyword(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// LoadRegistry reads a registry file. A missing file is an empty registry.
func LoadRegistry(path string) (Registry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Registry{}, nil
		}
		return nil, fmt.Errorf("read keyword registry: %w", err)
	}
	reg := Registry{}
	if len(strings.TrimSpace(string(b))) == 0 {
		return reg, nil
	}
	if err := json.Unmarshal(b, &reg); err != nil {
		return nil, fmt.Errorf("decode keyword registry %s: %w", path, err)
	}
	return reg, nil
}

// Save writes the registry atomically.
func (r Registry) Save(path string) error {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write keyword registry: %w", err)
	}
	return nil
}

// Apply records one learning pass. Each distinct phrase counts once per pass;
// empty phrases are skipped. It returns the number of distinct phrases applied.
func (r Registry) Apply(phrases []string, today string) int {
	seen := make(map[string]struct{}, len(phrases))
	for _, p := range phrases {
		k := normalizeKeyword(p)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if kw, ok := r[k]; ok {
			kw.Occurrence++
			kw.LastSeen = today
			r[k] = kw
			continue
		}
		r[k] = Keyword{Occurrence: 1, FirstSeen: today, LastSeen: today}
	}
	return len(seen)
}

// Ranked returns all phrases by occurrence, then earlier first_seen, then
// alphabetically.
func (r Registry) Ranked() []string {
	out := make([]string, 0, len(r))
	for k := range r {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := r[out[i]], r[out[j]]
		if a.Occurrence != b.Occurrence {
			return a.Occurrence > b.Occurrence
		}
		if a.FirstSeen != b.FirstSeen {
			return a.FirstSeen < b.FirstSeen
		}
		return out[i] < out[j]
	})
	return out
}

// Top returns at most n ranked phrases.
func (r Registry) Top(n int) []string {
	ranked := r.Ranked()
	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
