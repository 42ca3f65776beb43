package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvToConfig populates unset fields of cfg from environment variables.
// Explicit cfg values take precedence over env.
func ApplyEnvToConfig(cfg *Config) {
	if cfg == nil {
		return
	}
	setStr := func(dst *string, key string) {
		if *dst == "" {
			*dst = strings.TrimSpace(os.Getenv(key))
		}
	}
	setStr(&cfg.GoogleAPIKey, "GOOGLE_API_KEY")
	setStr(&cfg.SearchEngineID, "SEARCH_ENGINE_ID")
	setStr(&cfg.SearchBaseURL, "SEARCH_BASE_URL")
	setStr(&cfg.SearchFile, "SEARCH_FILE")
	setStr(&cfg.LLMBaseURL, "LLM_BASE_URL")
	setStr(&cfg.LLMModel, "LLM_MODEL")
	setStr(&cfg.LLMAPIKey, "LLM_API_KEY")
	setStr(&cfg.DataDir, "DATA_DIR")
	setStr(&cfg.CacheDir, "CACHE_DIR")
	setStr(&cfg.RedisURL, "REDIS_URL")

	// Durations accept Go syntax ("1500ms") or plain seconds ("2").
	setDur := func(dst *time.Duration, key string) {
		if *dst != 0 {
			return
		}
		s := strings.TrimSpace(os.Getenv(key))
		if s == "" {
			return
		}
		if d, err := time.ParseDuration(s); err == nil {
			*dst = d
			return
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 {
			*dst = time.Duration(f * float64(time.Second))
		}
	}
	setDur(&cfg.CallDelay, "CALL_DELAY")
	setDur(&cfg.ErrorDelay, "ERROR_DELAY")
	setDur(&cfg.CacheMaxAge, "CACHE_MAX_AGE")

	if cfg.CacheMaxBytes == 0 {
		if n, err := strconv.ParseInt(strings.TrimSpace(os.Getenv("CACHE_MAX_BYTES")), 10, 64); err == nil && n > 0 {
			cfg.CacheMaxBytes = n
		}
	}
	if cfg.CacheMaxCount == 0 {
		if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv("CACHE_MAX_COUNT"))); err == nil && n > 0 {
			cfg.CacheMaxCount = n
		}
	}

	setBool := func(dst *bool, key string) {
		if *dst {
			return
		}
		switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
		case "1", "true", "yes", "on":
			*dst = true
		}
	}
	setBool(&cfg.Verbose, "VERBOSE")
	setBool(&cfg.LLMCacheOnly, "LLM_CACHE_ONLY")
	setBool(&cfg.CacheStrictPerms, "CACHE_STRICT_PERMS")
}
