package scan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/goleakscan/internal/aggregate"
	"github.com/hyperifyio/goleakscan/internal/budget"
	"github.com/hyperifyio/goleakscan/internal/dedup"
	"github.com/hyperifyio/goleakscan/internal/governor"
	"github.com/hyperifyio/goleakscan/internal/keywords"
	"github.com/hyperifyio/goleakscan/internal/knowledge"
	"github.com/hyperifyio/goleakscan/internal/metrics"
	"github.com/hyperifyio/goleakscan/internal/query"
	"github.com/hyperifyio/goleakscan/internal/report"
	"github.com/hyperifyio/goleakscan/internal/search"
)

// Orchestrator runs scan sessions. Each session is one goroutine that
// processes its batches and pages strictly in order.
type Orchestrator struct {
	Provider  search.Provider
	Knowledge *knowledge.Store
	Keywords  *keywords.Engine
	Sessions  Store
	Pacer     *governor.Pacer
	Metrics   *metrics.Metrics
	// Visualizer is optional.
	Visualizer Visualizer
	// DataDir is where reports are written.
	DataDir string
	// MaxPages caps pagination per batch; zero means the governor default.
	MaxPages int
	// BatchSize is the number of keywords OR-combined per query.
	BatchSize int
	Now       func() time.Time

	wg sync.WaitGroup
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func validate(req Request) error {
	if strings.TrimSpace(req.Subject) == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidRequest)
	}
	n := 0
	for _, k := range req.Keywords {
		if strings.TrimSpace(k) != "" {
			n++
		}
	}
	if n == 0 {
		return fmt.Errorf("%w: at least one keyword is required", ErrInvalidRequest)
	}
	if req.MaxCalls <= 0 {
		return fmt.Errorf("%w: max calls must be positive", ErrInvalidRequest)
	}
	return nil
}

func (o *Orchestrator) create(ctx context.Context, req Request) (Session, error) {
	if err := validate(req); err != nil {
		return Session{}, err
	}
	ct := strings.ToLower(strings.TrimSpace(req.ContentType))
	if ct == "" {
		ct = "all"
	}
	s := Session{
		ID:          uuid.NewString(),
		Subject:     strings.TrimSpace(req.Subject),
		Status:      StatusRunning,
		StartTime:   o.now(),
		ContentType: ct,
		MaxCalls:    req.MaxCalls,
	}
	if err := o.Sessions.Create(ctx, s); err != nil {
		return Session{}, err
	}
	o.Metrics.SessionStarted()
	return s, nil
}

// Start validates req, records a running session and scans in the
// background. The session outlives ctx's cancellation.
func (o *Orchestrator) Start(ctx context.Context, req Request) (string, error) {
	s, err := o.create(ctx, req)
	if err != nil {
		return "", err
	}
	taskCtx := context.WithoutCancel(ctx)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.execute(taskCtx, s, req)
	}()
	return s.ID, nil
}

// Run scans synchronously and returns the terminal session.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Session, error) {
	s, err := o.create(ctx, req)
	if err != nil {
		return Session{}, err
	}
	return o.execute(ctx, s, req), nil
}

// Wait blocks until every session started with Start has finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Status returns the current session record.
func (o *Orchestrator) Status(ctx context.Context, id string) (Session, error) {
	return o.Sessions.Get(ctx, id)
}

// Results returns the payload of a completed session.
func (o *Orchestrator) Results(ctx context.Context, id string) (Results, error) {
	s, err := o.Sessions.Get(ctx, id)
	if err != nil {
		return Results{}, err
	}
	if s.Status != StatusCompleted || s.Results == nil {
		return Results{}, fmt.Errorf("%w: %s is %s", ErrNotCompleted, id, s.Status)
	}
	return *s.Results, nil
}

// Stats returns the ledger summary of a subject.
func (o *Orchestrator) Stats(name string) (knowledge.Stats, error) {
	return o.Knowledge.Stats(name)
}

// Export writes the ledger in format and returns its location.
func (o *Orchestrator) Export(name, format string) (string, error) {
	return o.Knowledge.Export(name, format)
}

// Suggest returns up to n keywords for the next scan of a subject.
func (o *Orchestrator) Suggest(name string, n int) ([]string, error) {
	return o.Keywords.Suggest(name, n)
}

// Report renders the ledger as a pdf or docx document and returns its path.
func (o *Orchestrator) Report(name, format string) (string, error) {
	recs, err := o.Knowledge.Load(name)
	if err != nil {
		return "", err
	}
	st, err := o.Knowledge.Stats(name)
	if err != nil {
		return "", err
	}
	reg, err := keywords.LoadRegistry(o.Keywords.RegistryPath(name))
	if err != nil {
		return "", err
	}
	path := report.Path(o.DataDir, name, format)
	r := report.Report{Subject: name, Generated: o.now(), Stats: st, Records: recs, Keywords: reg.Top(10)}
	if err := report.Write(path, format, r); err != nil {
		return "", err
	}
	return path, nil
}

// execute runs the session to a terminal state and stores it. Panics are
// recorded as session errors.
func (o *Orchestrator) execute(ctx context.Context, s Session, req Request) (final Session) {
	logger := log.With().Str("session", s.ID).Str("subject", s.Subject).Logger()
	calls := budget.NewCalls(req.MaxCalls)
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("scan task panicked")
			final = o.finish(ctx, logger, s, calls, fmt.Errorf("internal error: %v", r))
		}
	}()
	err := o.scan(ctx, logger, &s, req, calls)
	return o.finish(ctx, logger, s, calls, err)
}

func (o *Orchestrator) scan(ctx context.Context, logger zerolog.Logger, s *Session, req Request, calls *budget.Calls) error {
	name := s.Subject
	dateRestrict := query.DateRestrict(req.Timeframe)
	batches := query.Batch(query.WithSubject(name, req.Keywords), o.BatchSize)

	known, err := o.Knowledge.URLs(name)
	if err != nil {
		return fmt.Errorf("load ledger urls: %w", err)
	}
	gov := &governor.Governor{
		Provider: o.Provider,
		Budget:   calls,
		Index:    dedup.New(known...),
		Pacer:    o.Pacer,
		MaxPages: o.MaxPages,
		Now:      o.Now,
		Observer: o.Metrics,
	}
	logger.Info().Int("batches", len(batches)).Int("known_urls", len(known)).Str("date_restrict", dateRestrict).Int("budget", req.MaxCalls).Msg("scan started")

	var collected []knowledge.Record
	for i, b := range batches {
		if calls.Exhausted() {
			logger.Info().Int("batch", i).Msg("budget exhausted; skipping remaining batches")
			break
		}
		res, err := gov.Run(ctx, governor.Batch{Query: query.Build(b), DateRestrict: dateRestrict, Subject: name})
		collected = append(collected, res.Records...)
		if err != nil {
			if errors.Is(err, governor.ErrQuotaExhausted) && len(collected) > 0 {
				// Keep what was found before the service refused.
				if added, mergeErr := o.Knowledge.Merge(name, collected); mergeErr != nil {
					logger.Error().Err(mergeErr).Msg("merge after quota failed")
				} else {
					s.RowsAdded = added
					o.Metrics.RowsAdded(added)
				}
			}
			return err
		}
		logger.Debug().Int("batch", i).Int("new", len(res.Records)).Int("calls", res.Calls).Str("stop", string(res.Stop)).Msg("batch done")
	}

	if _, err := o.Knowledge.SaveSnapshot(name, s.ID[:8], collected); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	added, err := o.Knowledge.Merge(name, collected)
	if err != nil {
		return fmt.Errorf("merge: %w", err)
	}
	s.RowsAdded = added
	o.Metrics.RowsAdded(added)

	// Rows another session merged first were already learned from.
	if added > 0 && o.Keywords != nil {
		learned, err := o.Keywords.Learn(ctx, name, collected)
		if err != nil {
			return fmt.Errorf("learn keywords: %w", err)
		}
		s.Keywords = learned
	}

	st, err := o.Knowledge.Stats(name)
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}
	matches := make([]knowledge.Record, 0, len(collected))
	for _, r := range collected {
		if aggregate.MatchesContentType(r.URL, s.ContentType) {
			matches = append(matches, r)
		}
	}
	domains := make([]string, 0, len(st.Domains))
	for _, b := range st.TopDomains() {
		domains = append(domains, b.Domain)
	}
	s.Results = &Results{TotalMatches: len(matches), Domains: domains, Matches: matches}
	s.Stats = &Stats{DomainDistribution: st.Domains}
	if o.Visualizer != nil {
		payload, err := o.Visualizer.Visualize(ctx, name, matches)
		if err != nil {
			logger.Warn().Err(err).Msg("visualization failed")
		} else {
			s.Stats.Visualization = payload
		}
	}
	return nil
}

func (o *Orchestrator) finish(ctx context.Context, logger zerolog.Logger, s Session, calls *budget.Calls, err error) Session {
	end := o.now()
	s.EndTime = &end
	s.Calls = calls.Used()
	if err != nil {
		s.Status = StatusError
		s.Error = err.Error()
		logger.Error().Err(err).Int("calls", s.Calls).Msg("scan failed")
	} else {
		s.Status = StatusCompleted
		logger.Info().Int("calls", s.Calls).Int("matches", s.Results.TotalMatches).Int("added", s.RowsAdded).Msg("scan completed")
	}
	if uerr := o.Sessions.Update(ctx, s); uerr != nil {
		logger.Error().Err(uerr).Msg("store session")
	}
	o.Metrics.SessionFinished(string(s.Status), end.Sub(s.StartTime))
	return s
}
