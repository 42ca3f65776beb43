// Package app wires configuration into a ready scan orchestrator.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/goleakscan/internal/cache"
	"github.com/hyperifyio/goleakscan/internal/governor"
	"github.com/hyperifyio/goleakscan/internal/keywords"
	"github.com/hyperifyio/goleakscan/internal/knowledge"
	"github.com/hyperifyio/goleakscan/internal/llm"
	"github.com/hyperifyio/goleakscan/internal/metrics"
	"github.com/hyperifyio/goleakscan/internal/scan"
	"github.com/hyperifyio/goleakscan/internal/search"
	"github.com/hyperifyio/goleakscan/internal/subject"
)

type App struct {
	cfg     Config
	orch    *scan.Orchestrator
	redis   *redis.Client
	ranking *cache.RankingCache
}

// redisPingTimeout bounds the startup connectivity check.
const redisPingTimeout = 5 * time.Second

// New builds the application. reg receives the scan metrics; nil uses the
// default registerer.
func New(ctx context.Context, cfg Config, reg prometheus.Registerer) (*App, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	hc := newHTTPClient(cfg.SearchUA, cfg.Verbose)
	a := &App{cfg: cfg}

	var provider search.Provider
	if strings.TrimSpace(cfg.SearchFile) != "" {
		provider = &search.FileProvider{Path: cfg.SearchFile}
	} else {
		provider = &search.GoogleCSE{
			BaseURL:    cfg.SearchBaseURL,
			APIKey:     cfg.GoogleAPIKey,
			EngineID:   cfg.SearchEngineID,
			HTTPClient: hc,
			UserAgent:  cfg.SearchUA,
		}
	}

	if cfg.CacheDir != "" {
		if cfg.CacheClear {
			_ = cache.ClearDir(cfg.CacheDir)
		}
		if cfg.CacheMaxAge > 0 {
			if n, err := cache.PurgeByAge(cfg.CacheDir, cfg.CacheMaxAge); err == nil && n > 0 {
				log.Info().Int("removed", n).Msg("purged expired cache entries")
			}
		}
		if n, err := cache.EnforceLimits(cfg.CacheDir, cfg.CacheMaxBytes, cfg.CacheMaxCount); err != nil {
			log.Warn().Err(err).Msg("cache limit enforcement failed")
		} else if n > 0 {
			log.Info().Int("removed", n).Int64("max_bytes", cfg.CacheMaxBytes).Int("max_count", cfg.CacheMaxCount).Msg("evicted least recently used cache entries")
		}
	}
	ranker := &keywords.LLMRanker{
		Model:     cfg.LLMModel,
		CacheOnly: cfg.LLMCacheOnly,
		Verbose:   cfg.Verbose,
	}
	if cfg.CacheDir != "" {
		a.ranking = &cache.RankingCache{Dir: cfg.CacheDir, StrictPerms: cfg.CacheStrictPerms}
		ranker.Cache = a.ranking
	}
	if strings.TrimSpace(cfg.LLMModel) != "" {
		client := llm.New(cfg.LLMBaseURL, cfg.LLMAPIKey, hc)
		ranker.Client = client
		preflightModels(ctx, client)
	} else {
		log.Warn().Msg("no LLM model configured; keyword learning will not add phrases")
	}

	var sessions scan.Store = scan.NewMemoryStore()
	if strings.TrimSpace(cfg.RedisURL) != "" {
		rc, err := newRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		a.redis = rc
		rs := scan.NewRedisStore(rc)
		rs.TTL = cfg.SessionTTL
		sessions = rs
	}

	m := metrics.New(reg)
	locks := &subject.Locks{}
	engine := keywords.NewEngine(cfg.DataDir, locks, ranker)
	engine.Observer = m

	a.orch = &scan.Orchestrator{
		Provider:  provider,
		Knowledge: knowledge.New(cfg.DataDir, locks),
		Keywords:  engine,
		Sessions:  sessions,
		Pacer:     governor.NewPacer(cfg.CallDelay, cfg.ErrorDelay),
		Metrics:   m,
		DataDir:   cfg.DataDir,
		MaxPages:  cfg.MaxPages,
		BatchSize: cfg.BatchSize,
	}
	return a, nil
}

// Orchestrator returns the configured orchestrator.
func (a *App) Orchestrator() *scan.Orchestrator { return a.orch }

// ForgetRankings drops the cached ranking answers of a subject so its next
// learning pass asks the model again.
func (a *App) ForgetRankings(name string) (int, error) {
	if a.ranking == nil {
		return 0, cache.ErrNotConfigured
	}
	return a.ranking.PurgeSubject(name)
}

// Close waits for running sessions and releases connections.
func (a *App) Close() {
	a.orch.Wait()
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

func newRedisClient(ctx context.Context, rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// preflightModels logs whether the model endpoint answers. It never fails.
func preflightModels(ctx context.Context, client llm.ModelLister) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	models, err := client.ListModels(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("LLM model list failed; continuing")
		return
	}
	if len(models.Models) > 0 {
		log.Info().Int("count", len(models.Models)).Msg("LLM models available")
	} else {
		log.Warn().Msg("LLM returned zero models")
	}
}
