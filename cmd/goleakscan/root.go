package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hyperifyio/goleakscan/internal/app"
)

// options carries the persistent flags. Zero values mean "not set" so that
// environment, config file and defaults can fill them in that order.
type options struct {
	cfg         app.Config
	configFile  string
	envFiles    []string
	metricsAddr string

	registry *prometheus.Registry
	metrics  *http.Server
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "goleakscan",
		Short:         "Scan search results for leaked content about a subject",
		Long:          `goleakscan runs budgeted search scans for a subject, keeps a deduplicated ledger of discovered URLs and learns new search phrases from the results.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.prepare(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return opts.shutdown(cmd.Context())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	f := root.PersistentFlags()
	c := &opts.cfg
	f.StringVar(&opts.configFile, "config", "", "Path to YAML or JSON config file")
	f.StringSliceVar(&opts.envFiles, "env-file", []string{".env"}, "Dotenv files to load; later files override earlier ones")
	f.StringVar(&opts.metricsAddr, "metrics.addr", "", "Serve Prometheus metrics on this address while the command runs")

	f.StringVar(&c.SearchBaseURL, "search.base", "", "Custom Search API base URL")
	f.StringVar(&c.GoogleAPIKey, "search.key", "", "Custom Search API key")
	f.StringVar(&c.SearchEngineID, "search.engineID", "", "Custom Search engine id")
	f.StringVar(&c.SearchFile, "search.file", "", "Path to JSON file for offline file-based search provider")
	f.StringVar(&c.SearchUA, "search.ua", "", "Custom User-Agent for search requests")

	f.StringVar(&c.LLMBaseURL, "llm.base", "", "OpenAI-compatible base URL")
	f.StringVar(&c.LLMModel, "llm.model", "", "Model name used for keyword ranking")
	f.StringVar(&c.LLMAPIKey, "llm.key", "", "API key for OpenAI-compatible server")
	f.BoolVar(&c.LLMCacheOnly, "llm.cacheOnly", false, "Serve keyword ranking from cache only")

	f.StringVar(&c.DataDir, "data.dir", "", "Data directory for ledgers, registries, exports and reports")
	f.StringVar(&c.CacheDir, "cache.dir", "", "LLM response cache directory")
	f.DurationVar(&c.CacheMaxAge, "cache.maxAge", 0, "Purge cache entries older than this; 0 disables")
	f.BoolVar(&c.CacheClear, "cache.clear", false, "Clear cache directory before run")
	f.BoolVar(&c.CacheStrictPerms, "cache.strictPerms", false, "Restrict cache permissions (0700 dirs, 0600 files)")
	f.Int64Var(&c.CacheMaxBytes, "cache.maxBytes", 0, "Evict least recently used cache entries above this total size; 0 disables")
	f.IntVar(&c.CacheMaxCount, "cache.maxCount", 0, "Evict least recently used cache entries above this count; 0 disables")

	f.StringVar(&c.RedisURL, "redis.url", "", "Store sessions in Redis at this URL instead of memory")
	f.DurationVar(&c.SessionTTL, "redis.sessionTTL", 0, "Expiry of session records in Redis")

	f.DurationVar(&c.CallDelay, "pacing.callDelay", 0, "Delay between search calls")
	f.DurationVar(&c.ErrorDelay, "pacing.errorDelay", 0, "Base delay after a failed search call")
	f.IntVar(&c.MaxPages, "max.pages", 0, "Maximum result pages per query")
	f.IntVar(&c.BatchSize, "max.batchSize", 0, "Keywords combined per query")

	f.BoolVarP(&c.Verbose, "verbose", "v", false, "Verbose logging")

	root.AddCommand(
		newScanCmd(opts),
		newSuggestCmd(opts),
		newStatsCmd(opts),
		newExportCmd(opts),
		newReportCmd(opts),
		newForgetCmd(opts),
	)
	return root
}

// prepare resolves configuration and starts the optional metrics listener.
func (o *options) prepare(ctx context.Context) error {
	if err := app.LoadEnvFiles(o.envFiles...); err != nil {
		return err
	}
	app.ApplyEnvToConfig(&o.cfg)
	if strings.TrimSpace(o.configFile) != "" {
		fc, err := app.LoadConfigFile(o.configFile)
		if err != nil {
			return err
		}
		app.ApplyFileConfig(&o.cfg, fc)
	}
	app.ApplyDefaults(&o.cfg)
	if err := app.ValidateConfig(o.cfg); err != nil {
		return err
	}

	if o.cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	o.registry = prometheus.NewRegistry()
	if o.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(o.registry, promhttp.HandlerOpts{}))
		o.metrics = &http.Server{Addr: o.metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := o.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Str("addr", o.metricsAddr).Msg("metrics listener failed")
			}
		}()
		log.Info().Str("addr", o.metricsAddr).Msg("serving metrics")
	}
	return nil
}

func (o *options) shutdown(ctx context.Context) error {
	if o.metrics == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	err := o.metrics.Shutdown(ctx)
	o.metrics = nil
	return err
}

// open builds the application for a subcommand. Callers must Close it.
func (o *options) open(ctx context.Context) (*app.App, error) {
	return app.New(ctx, o.cfg, o.registry)
}
