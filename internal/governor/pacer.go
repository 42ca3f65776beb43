package governor

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DefaultCallDelay spaces successful calls and DefaultErrorDelay follows
// failed ones; both respect the search service rate limits.
const (
	DefaultCallDelay  = 2 * time.Second
	DefaultErrorDelay = 2 * time.Second
)

// Pacer decides how long to wait between search calls. It is the only place
// a session suspends besides the network calls themselves.
type Pacer struct {
	// Delay is consulted after a successful page.
	Delay backoff.BackOff
	// ErrorDelay is consulted after a failed page.
	ErrorDelay backoff.BackOff
	// Sleep waits for d; nil uses a timer that honors ctx.
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewPacer returns a pacer with constant delays.
func NewPacer(callDelay, errorDelay time.Duration) *Pacer {
	return &Pacer{
		Delay:      constant(callDelay),
		ErrorDelay: constant(errorDelay),
	}
}

// NoDelay returns a pacer that never waits, for tests and offline runs.
func NoDelay() *Pacer {
	return &Pacer{Delay: &backoff.ZeroBackOff{}, ErrorDelay: &backoff.ZeroBackOff{}}
}

func constant(d time.Duration) backoff.BackOff {
	if d <= 0 {
		return &backoff.ZeroBackOff{}
	}
	return backoff.NewConstantBackOff(d)
}

// AfterSuccess waits the inter-call delay.
func (p *Pacer) AfterSuccess(ctx context.Context) error {
	if p == nil {
		return nil
	}
	return p.wait(ctx, p.Delay)
}

// AfterError waits the error backoff delay.
func (p *Pacer) AfterError(ctx context.Context) error {
	if p == nil {
		return nil
	}
	return p.wait(ctx, p.ErrorDelay)
}

func (p *Pacer) wait(ctx context.Context, b backoff.BackOff) error {
	if b == nil {
		return nil
	}
	d := b.NextBackOff()
	if d <= 0 {
		return nil
	}
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
