package search

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// FileProvider serves search results from a local JSON file for offline runs
// and tests. The file is an array of {"title", "url", "snippet"} objects.
// Entries must contain ExactTerms (case-insensitive, in title, snippet or url)
// to match; matches are paginated PageSize at a time.
type FileProvider struct {
	Path string
}

func (f *FileProvider) Name() string { return "file" }

func (f *FileProvider) Search(_ context.Context, req Request) ([]Result, error) {
	if strings.TrimSpace(f.Path) == "" {
		return nil, fmt.Errorf("%w: file provider path is empty", ErrNotConfigured)
	}
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, err
	}
	var raw []Result
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.Path, err)
	}
	terms := strings.ToLower(strings.TrimSpace(req.ExactTerms))
	matches := make([]Result, 0, len(raw))
	for _, r := range raw {
		if r.URL == "" {
			continue
		}
		hay := strings.ToLower(r.Title + " " + r.Snippet + " " + r.URL)
		if terms == "" || strings.Contains(hay, terms) {
			matches = append(matches, r)
		}
	}
	start := req.Start() - 1
	if start >= len(matches) {
		return []Result{}, nil
	}
	end := start + PageSize
	if end > len(matches) {
		end = len(matches)
	}
	return matches[start:end], nil
}
