package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// PageSize is the fixed number of results requested per call.
const PageSize = 10

// Result represents a single search hit from any provider.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Request describes one page request against a provider.
type Request struct {
	Query string
	// DateRestrict is the recency token (e.g. "d7"); empty means no restriction.
	DateRestrict string
	// ExactTerms must appear verbatim in every result.
	ExactTerms string
	// Page is 1-based.
	Page int
}

// Start returns the 1-based result offset for the request page.
func (r Request) Start() int {
	p := r.Page
	if p < 1 {
		p = 1
	}
	return (p-1)*PageSize + 1
}

// Provider issues a single search call and returns the page's items. An
// empty, nil-error result means the service has no more results. Items may
// carry an empty URL; callers skip them.
type Provider interface {
	Search(ctx context.Context, req Request) ([]Result, error)
	Name() string
}

// ErrNotConfigured is returned when credentials or endpoints are missing. It
// is reported when a call is attempted, never at construction time.
var ErrNotConfigured = errors.New("search provider not configured")

// APIError is the error envelope returned by the search service.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("search api error %d: %s", e.Code, e.Message)
	}
	return "search api error: " + e.Message
}

// Quota reports whether the envelope signals an exhausted quota.
func (e *APIError) Quota() bool {
	return strings.Contains(strings.ToLower(e.Message), "quota")
}

// IsQuota reports whether err carries a quota-exhausted envelope.
func IsQuota(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Quota()
}
