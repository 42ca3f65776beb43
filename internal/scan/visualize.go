package scan

import (
	"context"

	"github.com/hyperifyio/goleakscan/internal/knowledge"
)

// Visualizer produces chart payloads for a finished session. No
// implementation ships with the scanner; sessions leave the payload empty
// unless one is injected.
type Visualizer interface {
	Visualize(ctx context.Context, subject string, matches []knowledge.Record) (map[string]any, error)
}
