package budget

import (
	"math"
	"sync"
)

// Calls is the external call budget of one scan session. It is shared by all
// batches of the session and is never reset between them. The zero value has
// no budget; use NewCalls.
type Calls struct {
	mu   sync.Mutex
	max  int
	used int
}

// NewCalls returns a budget allowing at most max calls. Negative values are
// treated as zero.
func NewCalls(max int) *Calls {
	if max < 0 {
		max = 0
	}
	return &Calls{max: max}
}

// Reserve consumes one call and reports whether it was available.
func (c *Calls) Reserve() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.used >= c.max {
		return false
	}
	c.used++
	return true
}

// Refund returns a reserved call that never reached the external service.
func (c *Calls) Refund() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.used > 0 {
		c.used--
	}
}

// Used reports how many calls have been consumed.
func (c *Calls) Used() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used
}

// Max reports the configured budget.
func (c *Calls) Max() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.max
}

// Exhausted reports whether no further calls may be made.
func (c *Calls) Exhausted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used >= c.max
}

// EstimateTokensFromChars converts a character count into an estimated token
// count using a conservative heuristic (~4 chars per token in English). The
// result is always at least 1 when chars > 0.
func EstimateTokensFromChars(charCount int) int {
	if charCount <= 0 {
		return 0
	}
	return int(math.Ceil(float64(charCount) / 4.0))
}

// EstimateTokens returns the estimated token count of a string.
func EstimateTokens(s string) int {
	return EstimateTokensFromChars(len(s))
}

// TruncateToTokens cuts s so that its estimated size does not exceed max
// tokens. The cut never splits a UTF-8 sequence.
func TruncateToTokens(s string, max int) string {
	if max <= 0 {
		return ""
	}
	limit := max * 4
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
