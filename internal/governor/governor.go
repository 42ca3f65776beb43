// Package governor executes the paginated search calls of one keyword batch
// while enforcing the session-wide call budget.
package governor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/goleakscan/internal/budget"
	"github.com/hyperifyio/goleakscan/internal/dedup"
	"github.com/hyperifyio/goleakscan/internal/knowledge"
	"github.com/hyperifyio/goleakscan/internal/search"
)

// DefaultMaxPages caps pagination per batch.
const DefaultMaxPages = 10

// ErrQuotaExhausted reports that the search service refused further calls.
// It is terminal for the whole session.
var ErrQuotaExhausted = errors.New("search quota exhausted")

// StopReason explains why a batch stopped paginating.
type StopReason string

const (
	StopPageCap   StopReason = "page_cap"
	StopBudget    StopReason = "budget"
	StopNoResults StopReason = "no_results"
	StopQuota     StopReason = "quota"
)

// CallObserver receives one outcome per external call ("ok", "error", "quota").
type CallObserver interface {
	SearchCall(outcome string)
}

// Batch is one OR-combined query to execute.
type Batch struct {
	Query        string
	DateRestrict string
	// Subject is sent as the exact-terms constraint on every call.
	Subject string
}

// Result is what a batch produced.
type Result struct {
	Records []knowledge.Record
	Calls   int
	Pages   int
	Stop    StopReason
}

// Governor runs batches for one session. Budget and Index are shared by all
// batches of the session and must not be reset between them.
type Governor struct {
	Provider search.Provider
	Budget   *budget.Calls
	Index    *dedup.Index
	Pacer    *Pacer
	// MaxPages caps pagination; zero means DefaultMaxPages.
	MaxPages int
	Now      func() time.Time
	Observer CallObserver
}

// Run paginates one batch until the page cap, an empty page, budget
// exhaustion or a terminal error. Results gathered before a terminal error are
// returned alongside it.
func (g *Governor) Run(ctx context.Context, b Batch) (Result, error) {
	var res Result
	if g.Provider == nil || g.Budget == nil || g.Index == nil {
		return res, errors.New("governor not configured")
	}
	maxPages := g.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	today := g.now().Format(knowledge.DateLayout)
	logger := log.With().Str("stage", "search").Str("provider", g.Provider.Name()).Str("query", truncate(b.Query, 100)).Logger()

	for page := 1; page <= maxPages; page++ {
		if !g.Budget.Reserve() {
			logger.Info().Int("used", g.Budget.Used()).Int("max", g.Budget.Max()).Msg("search budget reached")
			res.Stop = StopBudget
			return res, nil
		}
		items, err := g.Provider.Search(ctx, search.Request{
			Query:        b.Query,
			DateRestrict: b.DateRestrict,
			ExactTerms:   b.Subject,
			Page:         page,
		})
		if err != nil {
			if errors.Is(err, search.ErrNotConfigured) {
				g.Budget.Refund()
				return res, err
			}
			res.Calls++
			res.Pages = page
			if search.IsQuota(err) {
				g.observe("quota")
				logger.Error().Err(err).Int("page", page).Msg("search quota exhausted")
				res.Stop = StopQuota
				return res, fmt.Errorf("%w: %v", ErrQuotaExhausted, err)
			}
			g.observe("error")
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			logger.Warn().Err(err).Int("page", page).Msg("search call failed; backing off")
			if g.Budget.Exhausted() {
				res.Stop = StopBudget
				return res, nil
			}
			if page < maxPages {
				if err := g.Pacer.AfterError(ctx); err != nil {
					return res, err
				}
			}
			continue
		}
		res.Calls++
		res.Pages = page
		g.observe("ok")

		if len(items) == 0 {
			logger.Debug().Int("page", page).Msg("no more results")
			res.Stop = StopNoResults
			return res, nil
		}
		fresh := 0
		for _, it := range items {
			if it.URL == "" || !g.Index.MarkIfNew(it.URL) {
				continue
			}
			res.Records = append(res.Records, knowledge.Record{
				Title:   it.Title,
				URL:     it.URL,
				Snippet: it.Snippet,
				Query:   b.Query,
				Page:    page,
				Date:    today,
			})
			fresh++
		}
		logger.Debug().Int("page", page).Int("items", len(items)).Int("new", fresh).Msg("page processed")

		if g.Budget.Exhausted() {
			logger.Info().Int("used", g.Budget.Used()).Msg("search budget reached")
			res.Stop = StopBudget
			return res, nil
		}
		if page < maxPages {
			if err := g.Pacer.AfterSuccess(ctx); err != nil {
				return res, err
			}
		}
	}
	res.Stop = StopPageCap
	return res, nil
}

func (g *Governor) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

func (g *Governor) observe(outcome string) {
	if g.Observer != nil {
		g.Observer.SearchCall(outcome)
	}
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
