package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/execbrief/internal/app"
	"github.com/hyperifyio/execbrief/internal/cache"
	"github.com/hyperifyio/execbrief/internal/gate"
	"github.com/hyperifyio/execbrief/internal/selection"
)

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var (
		sourcesPath string
		dataDir     string
		outDir      string
		cacheDir    string
		cacheClear  bool
		cacheStrict bool
		cacheMaxAge time.Duration
		mode        string
		profile     string
		autoOpen    bool
		dryRun      bool
		verbose     bool

		minTotal        int
		minFrontier     int
		allowDegraded   bool
		frontierFloor   int
		forceFallback   bool
		minEvents       int
		maxEvents       int
		minProduct      int
		minTech         int
		minBusiness     int
		hydrateWorkers  int
		hydrateTimeout  time.Duration
		politenessDelay time.Duration
		maxHydrate      int

		llmProvider string
		llmBaseURL  string
		llmModel    string
		llmKey      string
	)

	def := app.DefaultConfig()

	flag.StringVar(&sourcesPath, "sources", def.SourcesPath, "Path to sources YAML")
	flag.StringVar(&dataDir, "data.dir", def.DataDir, "Directory for the Z0 pool and known-good snapshots")
	flag.StringVar(&outDir, "out.dir", def.OutDir, "Directory for deliverables, meta files and archives")
	flag.StringVar(&cacheDir, "cache.dir", os.Getenv("CACHE_DIR"), "HTTP and LLM cache directory; empty disables caching")
	flag.BoolVar(&cacheClear, "cache.clear", false, "Clear the cache directory before the run")
	flag.BoolVar(&cacheStrict, "cache.strictPerms", false, "Restrict cache permissions (0700 dirs, 0600 files)")
	flag.DurationVar(&cacheMaxAge, "cache.maxAge", 0, "Purge cache entries older than this before the run (0 disables)")
	flag.StringVar(&mode, "mode", string(def.Mode), "Run mode: manual | daily | demo | brief")
	flag.StringVar(&profile, "profile", "", "Run profile: production | calibration")
	flag.BoolVar(&autoOpen, "auto-open", false, "Open the deck after an OK run")
	flag.BoolVar(&dryRun, "dry-run", false, "Preview the run plan; no hydration fetches, render, or gates")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")

	flag.IntVar(&minTotal, "z0.minTotal", 0, "Minimum collected items before supply fallback (0 = env or default)")
	flag.IntVar(&minFrontier, "z0.minFrontier85", 0, "Minimum frontier>=85 items in 72h before supply fallback (0 = env or default)")
	flag.BoolVar(&allowDegraded, "z0.allowDegraded", false, "Permit the degraded frontier floor instead of failing over")
	flag.IntVar(&frontierFloor, "z0.frontier85Fallback", 0, "Degraded frontier floor used with -z0.allowDegraded (0 = env or default)")
	flag.BoolVar(&forceFallback, "force-fallback", false, "Force restore from the known-good snapshot regardless of floors")
	flag.IntVar(&minEvents, "select.minEvents", 0, "Minimum selected events before sparse_day (0 = env or default)")
	flag.IntVar(&maxEvents, "select.maxEvents", 0, "Deck event cap (0 = mode default)")
	flag.IntVar(&minProduct, "select.minProduct", 0, "Product bucket minimum (0 = env or default)")
	flag.IntVar(&minTech, "select.minTech", 0, "Tech bucket minimum (0 = env or default)")
	flag.IntVar(&minBusiness, "select.minBusiness", 0, "Business bucket minimum (0 = env or default)")
	flag.IntVar(&hydrateWorkers, "hydrate.workers", def.HydrateWorkers, "Concurrent fulltext fetch workers")
	flag.DurationVar(&hydrateTimeout, "hydrate.timeout", def.HydrateTimeout, "Per-request fulltext fetch timeout")
	flag.DurationVar(&politenessDelay, "hydrate.delay", def.PolitenessDelay, "Per-host delay between fulltext fetches")
	flag.IntVar(&maxHydrate, "hydrate.max", def.MaxHydrate, "Maximum hydration candidates per run")

	flag.StringVar(&llmProvider, "llm.provider", "", "LLM provider: none | openai_compatible")
	flag.StringVar(&llmBaseURL, "llm.base", "", "OpenAI-compatible base URL")
	flag.StringVar(&llmModel, "llm.model", "", "Model name for narrative composition")
	flag.StringVar(&llmKey, "llm.key", "", "API key for the OpenAI-compatible server")
	flag.Parse()

	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	m, err := gate.ParseMode(mode)
	if err != nil {
		log.Error().Err(err).Msg("invalid mode")
		os.Exit(1)
	}

	cfg := def
	cfg.SourcesPath = sourcesPath
	cfg.DataDir = dataDir
	cfg.OutDir = outDir
	cfg.CacheDir = cacheDir
	cfg.CacheStrictPerms = cacheStrict
	cfg.Mode = m
	cfg.RunProfile = profile
	cfg.AutoOpen = autoOpen
	cfg.DryRun = dryRun
	cfg.MinTotalItems = minTotal
	cfg.MinFrontier85In72h = minFrontier
	cfg.AllowDegraded = allowDegraded
	cfg.Frontier85Fallback = frontierFloor
	cfg.ForceFallback = forceFallback
	cfg.HydrateWorkers = hydrateWorkers
	cfg.HydrateTimeout = hydrateTimeout
	cfg.PolitenessDelay = politenessDelay
	cfg.MaxHydrate = maxHydrate
	// Quotas start from the flag values, all zero when unspecified, so
	// the env overlay and fillDefaults can layer beneath them.
	cfg.Quotas = selection.Quotas{
		MinEvents:   minEvents,
		MinProduct:  minProduct,
		MinTech:     minTech,
		MinBusiness: minBusiness,
	}
	cfg.LLM.Provider = llmProvider
	cfg.LLM.BaseURL = llmBaseURL
	cfg.LLM.Model = llmModel
	cfg.LLM.APIKey = llmKey

	app.ApplyEnvToConfig(&cfg)
	fillDefaults(&cfg, def)
	if maxEvents > 0 {
		cfg.Quotas.MaxEvents = maxEvents
	}

	if cfg.CacheDir != "" {
		if cacheClear {
			if err := cache.ClearDir(cfg.CacheDir); err != nil {
				log.Warn().Err(err).Msg("cache clear failed")
			}
		} else if cacheMaxAge > 0 {
			if n, err := cache.PurgeHTTPCacheByAge(cfg.CacheDir, cacheMaxAge); err == nil && n > 0 {
				log.Info().Int("removed", n).Msg("purged stale http cache entries")
			}
			if n, err := cache.PurgeLLMCacheByAge(cfg.CacheDir, cacheMaxAge); err == nil && n > 0 {
				log.Info().Int("removed", n).Msg("purged stale llm cache entries")
			}
		}
	}

	if err := run(cfg); err != nil {
		// Gate rejections exit 2 so schedulers can tell a rejected brief
		// from an operational error; NOT_READY artifacts carry the detail.
		log.Error().Err(err).Msg("run failed")
		if errors.Is(err, app.ErrRunFailed) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// fillDefaults restores defaults for numeric fields the flags left at
// zero and env did not supply. Zero stays meaningful as "unset" through
// the whole flags > env > default chain.
func fillDefaults(cfg *app.Config, def app.Config) {
	if cfg.MinTotalItems == 0 {
		cfg.MinTotalItems = def.MinTotalItems
	}
	if cfg.MinFrontier85In72h == 0 {
		cfg.MinFrontier85In72h = def.MinFrontier85In72h
	}
	if cfg.Frontier85Fallback == 0 {
		cfg.Frontier85Fallback = def.Frontier85Fallback
	}
	if cfg.Quotas.MinEvents == 0 {
		cfg.Quotas.MinEvents = def.Quotas.MinEvents
	}
	if cfg.Quotas.MaxEvents == 0 {
		cfg.Quotas.MaxEvents = def.Quotas.MaxEvents
	}
	if cfg.Quotas.MinProduct == 0 {
		cfg.Quotas.MinProduct = def.Quotas.MinProduct
	}
	if cfg.Quotas.MinTech == 0 {
		cfg.Quotas.MinTech = def.Quotas.MinTech
	}
	if cfg.Quotas.MinBusiness == 0 {
		cfg.Quotas.MinBusiness = def.Quotas.MinBusiness
	}
	if cfg.RunProfile == "" {
		cfg.RunProfile = def.RunProfile
	}
}

func run(cfg app.Config) error {
	a, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	return a.Run(context.Background())
}
