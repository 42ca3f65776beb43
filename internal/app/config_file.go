package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig represents the single-file configuration schema.
type FileConfig struct {
	Search struct {
		BaseURL  string `yaml:"base" json:"base"`
		Key      string `yaml:"key" json:"key"`
		EngineID string `yaml:"engineID" json:"engineID"`
		File     string `yaml:"file" json:"file"`
		UA       string `yaml:"ua" json:"ua"`
	} `yaml:"search" json:"search"`

	LLM struct {
		BaseURL   string `yaml:"base" json:"base"`
		Model     string `yaml:"model" json:"model"`
		APIKey    string `yaml:"key" json:"key"`
		CacheOnly bool   `yaml:"cacheOnly" json:"cacheOnly"`
	} `yaml:"llm" json:"llm"`

	DataDir string `yaml:"dataDir" json:"dataDir"`

	Cache struct {
		Dir         string        `yaml:"dir" json:"dir"`
		MaxAge      time.Duration `yaml:"maxAge" json:"maxAge"`
		Clear       bool          `yaml:"clear" json:"clear"`
		StrictPerms bool          `yaml:"strictPerms" json:"strictPerms"`
		MaxBytes    int64         `yaml:"maxBytes" json:"maxBytes"`
		MaxCount    int           `yaml:"maxCount" json:"maxCount"`
	} `yaml:"cache" json:"cache"`

	Redis struct {
		URL        string        `yaml:"url" json:"url"`
		SessionTTL time.Duration `yaml:"sessionTTL" json:"sessionTTL"`
	} `yaml:"redis" json:"redis"`

	Pacing struct {
		CallDelay  time.Duration `yaml:"callDelay" json:"callDelay"`
		ErrorDelay time.Duration `yaml:"errorDelay" json:"errorDelay"`
	} `yaml:"pacing" json:"pacing"`

	Max struct {
		Pages     int `yaml:"pages" json:"pages"`
		BatchSize int `yaml:"batchSize" json:"batchSize"`
	} `yaml:"max" json:"max"`

	Verbose bool `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays values from fc into fields of cfg that are still
// zero, so flags and environment keep precedence over the file.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	setStr := func(dst *string, v string) {
		if *dst == "" && v != "" {
			*dst = v
		}
	}
	setDur := func(dst *time.Duration, v time.Duration) {
		if *dst == 0 && v > 0 {
			*dst = v
		}
	}
	setInt := func(dst *int, v int) {
		if *dst == 0 && v > 0 {
			*dst = v
		}
	}

	setStr(&cfg.SearchBaseURL, fc.Search.BaseURL)
	setStr(&cfg.GoogleAPIKey, fc.Search.Key)
	setStr(&cfg.SearchEngineID, fc.Search.EngineID)
	setStr(&cfg.SearchFile, fc.Search.File)
	setStr(&cfg.SearchUA, fc.Search.UA)

	setStr(&cfg.LLMBaseURL, fc.LLM.BaseURL)
	setStr(&cfg.LLMModel, fc.LLM.Model)
	setStr(&cfg.LLMAPIKey, fc.LLM.APIKey)
	cfg.LLMCacheOnly = cfg.LLMCacheOnly || fc.LLM.CacheOnly

	setStr(&cfg.DataDir, fc.DataDir)
	setStr(&cfg.CacheDir, fc.Cache.Dir)
	setDur(&cfg.CacheMaxAge, fc.Cache.MaxAge)
	cfg.CacheClear = cfg.CacheClear || fc.Cache.Clear
	cfg.CacheStrictPerms = cfg.CacheStrictPerms || fc.Cache.StrictPerms
	if cfg.CacheMaxBytes == 0 && fc.Cache.MaxBytes > 0 {
		cfg.CacheMaxBytes = fc.Cache.MaxBytes
	}
	setInt(&cfg.CacheMaxCount, fc.Cache.MaxCount)

	setStr(&cfg.RedisURL, fc.Redis.URL)
	setDur(&cfg.SessionTTL, fc.Redis.SessionTTL)

	setDur(&cfg.CallDelay, fc.Pacing.CallDelay)
	setDur(&cfg.ErrorDelay, fc.Pacing.ErrorDelay)
	setInt(&cfg.MaxPages, fc.Max.Pages)
	setInt(&cfg.BatchSize, fc.Max.BatchSize)

	cfg.Verbose = cfg.Verbose || fc.Verbose
}
