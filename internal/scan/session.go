// Package scan drives scan sessions end to end and keeps their state.
package scan

import (
	"errors"
	"time"

	"github.com/hyperifyio/goleakscan/internal/knowledge"
)

var (
	// ErrSessionNotFound is returned for unknown session ids.
	ErrSessionNotFound = errors.New("session not found")
	// ErrNotCompleted is returned when results are asked of a session that
	// has not completed.
	ErrNotCompleted = errors.New("session not completed")
	// ErrTerminal is returned when writing to a completed or failed session.
	ErrTerminal = errors.New("session is terminal")
	// ErrInvalidRequest wraps request validation failures.
	ErrInvalidRequest = errors.New("invalid scan request")
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Request starts a scan.
type Request struct {
	Subject   string   `json:"subject"`
	Keywords  []string `json:"keywords"`
	Timeframe string   `json:"timeframe"`
	MaxCalls  int      `json:"max_calls"`
	// ContentType filters the reported matches: all, video or image.
	ContentType string `json:"content_type"`
}

// Results is the payload of a completed session.
type Results struct {
	TotalMatches int                `json:"total_matches"`
	Domains      []string           `json:"domains"`
	Matches      []knowledge.Record `json:"matches"`
}

// Stats is derived per session. Visualization is filled only when a
// Visualizer is configured.
type Stats struct {
	DomainDistribution map[string]int `json:"domain_distribution"`
	Visualization      map[string]any `json:"visualization,omitempty"`
}

// Session is the record of one scan. Stores replace it whole.
type Session struct {
	ID          string     `json:"id"`
	Subject     string     `json:"subject"`
	Status      Status     `json:"status"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	ContentType string     `json:"content_type"`
	MaxCalls    int        `json:"max_calls"`
	Calls       int        `json:"calls"`
	Results     *Results   `json:"results,omitempty"`
	Stats       *Stats     `json:"stats,omitempty"`
	Error       string     `json:"error,omitempty"`
	RowsAdded   int        `json:"rows_added"`
	Keywords    []string   `json:"keywords,omitempty"`
}
