package app

import (
	"errors"
	"strings"
	"time"
)

// Config holds runtime configuration for the application.
type Config struct {
	// Search
	SearchBaseURL  string
	GoogleAPIKey   string
	SearchEngineID string
	SearchFile     string
	SearchUA       string

	// LLM
	LLMBaseURL   string
	LLMModel     string
	LLMAPIKey    string
	LLMCacheOnly bool

	// Storage
	DataDir          string
	CacheDir         string
	CacheMaxAge      time.Duration
	CacheClear       bool
	CacheStrictPerms bool
	// CacheMaxBytes and CacheMaxCount bound the ranking cache; zero disables.
	CacheMaxBytes int64
	CacheMaxCount int
	RedisURL         string
	SessionTTL       time.Duration

	// Pacing and limits
	CallDelay  time.Duration
	ErrorDelay time.Duration
	MaxPages   int
	BatchSize  int

	Verbose bool
}

const (
	defaultDataDir    = "data"
	defaultCacheDir   = ".goleakscan-cache"
	defaultSearchUA   = "goleakscan/1.0 (+https://github.com/hyperifyio/goleakscan)"
	defaultMaxPages   = 10
	defaultBatchSize  = 1
	defaultCallDelay  = 2 * time.Second
	defaultErrorDelay = 2 * time.Second
	defaultSessionTTL = 24 * time.Hour
)

// ApplyDefaults fills every field still at its zero value.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}
	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = defaultCacheDir
	}
	if cfg.SearchUA == "" {
		cfg.SearchUA = defaultSearchUA
	}
	if cfg.MaxPages == 0 {
		cfg.MaxPages = defaultMaxPages
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.CallDelay == 0 {
		cfg.CallDelay = defaultCallDelay
	}
	if cfg.ErrorDelay == 0 {
		cfg.ErrorDelay = defaultErrorDelay
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = defaultSessionTTL
	}
}

// ValidateConfig checks limits. Credentials are not required here; a missing
// key fails the first search call of a session instead.
func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.DataDir) == "" {
		return errors.New("config: data dir is required")
	}
	if cfg.MaxPages < 0 || cfg.BatchSize < 0 {
		return errors.New("config: negative limits are not allowed")
	}
	if cfg.CacheMaxBytes < 0 || cfg.CacheMaxCount < 0 {
		return errors.New("config: negative cache limits are not allowed")
	}
	if cfg.CallDelay < 0 || cfg.ErrorDelay < 0 || cfg.CacheMaxAge < 0 || cfg.SessionTTL < 0 {
		return errors.New("config: negative durations are not allowed")
	}
	return nil
}
