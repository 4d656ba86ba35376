package app

import (
	"os"
	"strconv"
	"strings"
)

// ApplyEnvToConfig populates unset fields of cfg from environment
// variables. Explicit cfg values (flags) take precedence over env.
func ApplyEnvToConfig(cfg *Config) {
	if cfg == nil {
		return
	}

	setInt := func(dst *int, key string, unset int) {
		if *dst != unset {
			return
		}
		if s := strings.TrimSpace(os.Getenv(key)); s != "" {
			if n, err := strconv.Atoi(s); err == nil && n >= 0 {
				*dst = n
			}
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

	setInt(&cfg.MinTotalItems, "Z0_MIN_TOTAL_ITEMS", 0)
	setInt(&cfg.MinFrontier85In72h, "Z0_MIN_FRONTIER85_72H", 0)
	setBool(&cfg.AllowDegraded, "Z0_ALLOW_DEGRADED")
	setInt(&cfg.Frontier85Fallback, "Z0_MIN_FRONTIER85_72H_FALLBACK", 0)

	setInt(&cfg.Quotas.MinEvents, "EXEC_MIN_EVENTS", 0)
	setInt(&cfg.Quotas.MinProduct, "EXEC_MIN_PRODUCT", 0)
	setInt(&cfg.Quotas.MinTech, "EXEC_MIN_TECH", 0)
	setInt(&cfg.Quotas.MinBusiness, "EXEC_MIN_BUSINESS", 0)

	if cfg.RunProfile == "" {
		cfg.RunProfile = os.Getenv("RUN_PROFILE")
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = os.Getenv("LLM_PROVIDER")
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = os.Getenv("LLM_BASE_URL")
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("LLM_API_KEY")
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = os.Getenv("LLM_MODEL")
	}

	if cfg.CacheDir == "" {
		cfg.CacheDir = os.Getenv("CACHE_DIR")
	}
	setBool(&cfg.DryRun, "DRY_RUN")
	setBool(&cfg.ForceFallback, "FORCE_SUPPLY_FALLBACK")
}
