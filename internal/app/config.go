package app

import (
	"time"

	"github.com/hyperifyio/execbrief/internal/gate"
	"github.com/hyperifyio/execbrief/internal/llm"
	"github.com/hyperifyio/execbrief/internal/selection"
)

// Config holds runtime configuration for one pipeline run.
type Config struct {
	SourcesPath      string // sources YAML
	DataDir          string // data/raw/z0
	OutDir           string // outputs
	CacheDir         string // HTTP and LLM caches; empty disables caching
	CacheStrictPerms bool

	Mode       gate.Mode
	RunProfile string // calibration | production
	AutoOpen   bool   // open the deliverable after an OK run
	DryRun     bool   // stop before rendering and gates

	// Collection floors.
	MinTotalItems      int // Z0_MIN_TOTAL_ITEMS
	MinFrontier85In72h int // Z0_MIN_FRONTIER85_72H
	AllowDegraded      bool
	Frontier85Fallback int // Z0_MIN_FRONTIER85_72H_FALLBACK
	ForceFallback      bool

	// Selection quotas.
	Quotas selection.Quotas

	// Hydration.
	HydrateWorkers  int
	HydrateTimeout  time.Duration
	PolitenessDelay time.Duration
	MaxHydrate      int // cap on hydration candidates per run

	LLM llm.Config
}

// DefaultConfig returns the production defaults; flags and env refine it.
func DefaultConfig() Config {
	return Config{
		SourcesPath:        "sources.yaml",
		DataDir:            "data/raw/z0",
		OutDir:             "outputs",
		Mode:               gate.ModeManual,
		RunProfile:         "production",
		MinTotalItems:      800,
		MinFrontier85In72h: 10,
		Frontier85Fallback: 4,
		Quotas:             selection.DefaultQuotas(),
		HydrateWorkers:     3,
		HydrateTimeout:     15 * time.Second,
		PolitenessDelay:    500 * time.Millisecond,
		MaxHydrate:         30,
	}
}
