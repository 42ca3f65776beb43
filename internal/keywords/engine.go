// Package keywords learns which search phrases keep finding content for a
// subject and suggests them for the next scan.
package keywords

import (
	"context"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/goleakscan/internal/knowledge"
	"github.com/hyperifyio/goleakscan/internal/subject"
)

// DefaultSuggestions is returned by Suggest while a subject has no registry.
var DefaultSuggestions = []string{
	"leaked content",
	"onlyfans leaks",
	"private photos",
	"leaked videos",
	"free download",
}

// LearnObserver is told how many distinct phrases each pass applied.
type LearnObserver interface {
	KeywordsLearned(n int)
}

// Engine keeps one registry file per subject under Dir.
type Engine struct {
	Dir      string
	Locks    *subject.Locks
	Ranker   Ranker
	Now      func() time.Time
	Observer LearnObserver
}

// NewEngine returns an engine storing registries under dataDir/knowledge_base.
func NewEngine(dataDir string, locks *subject.Locks, ranker Ranker) *Engine {
	if locks == nil {
		locks = &subject.Locks{}
	}
	return &Engine{Dir: filepath.Join(dataDir, "knowledge_base"), Locks: locks, Ranker: ranker}
}

// RegistryPath returns the registry file of a subject.
func (e *Engine) RegistryPath(name string) string {
	return filepath.Join(e.Dir, subject.FileKey(name)+"_keywords.json")
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Learn runs one learning pass over records and returns every registry
// phrase in rank order. Ranking failures only mean nothing is learned this
// pass; registry read or write failures are returned.
func (e *Engine) Learn(ctx context.Context, name string, records []knowledge.Record) ([]string, error) {
	logger := log.With().Str("stage", "learn").Str("subject", name).Logger()

	prior, err := e.load(name)
	if err != nil {
		return nil, err
	}
	parsed := Parsed{Kind: Empty}
	if len(records) > 0 && e.Ranker != nil {
		cands := Candidates(records)
		logger.Debug().Int("records", len(records)).Int("candidates", len(cands)).Msg("ranking candidates")
		p, err := e.Ranker.Rank(ctx, Request{
			Subject:    name,
			Prior:      prior.Top(maxPriorKeywords),
			Candidates: cands,
			Records:    records,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("ranking failed; nothing learned this pass")
		} else {
			parsed = p
		}
	}
	logger.Info().Str("parse", parsed.Kind.String()).Int("phrases", len(parsed.Phrases)).Msg("ranking parsed")

	defer e.Locks.Lock(name)()
	reg, err := e.load(name)
	if err != nil {
		return nil, err
	}
	if len(parsed.Phrases) == 0 {
		return reg.Ranked(), nil
	}
	n := reg.Apply(parsed.Phrases, e.now().Format(knowledge.DateLayout))
	if err := reg.Save(e.RegistryPath(name)); err != nil {
		return nil, err
	}
	if e.Observer != nil {
		e.Observer.KeywordsLearned(n)
	}
	logger.Info().Int("applied", n).Int("registry", len(reg)).Msg("keyword registry updated")
	return reg.Ranked(), nil
}

// Suggest returns up to n phrases by occurrence, or DefaultSuggestions when
// the subject has nothing learned yet. n <= 0 means 10.
func (e *Engine) Suggest(name string, n int) ([]string, error) {
	if n <= 0 {
		n = 10
	}
	defer e.Locks.Lock(name)()
	reg, err := e.load(name)
	if err != nil {
		return nil, err
	}
	if len(reg) == 0 {
		out := append([]string(nil), DefaultSuggestions...)
		if len(out) > n {
			out = out[:n]
		}
		return out, nil
	}
	return reg.Top(n), nil
}

func (e *Engine) load(name string) (Registry, error) {
	return LoadRegistry(e.RegistryPath(name))
}
