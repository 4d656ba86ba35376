package app

import (
	"testing"
)

func TestApplyEnvToConfig_FillsUnsetFields(t *testing.T) {
	t.Setenv("Z0_MIN_TOTAL_ITEMS", "500")
	t.Setenv("Z0_MIN_FRONTIER85_72H", "7")
	t.Setenv("Z0_ALLOW_DEGRADED", "true")
	t.Setenv("Z0_MIN_FRONTIER85_72H_FALLBACK", "3")
	t.Setenv("EXEC_MIN_EVENTS", "4")
	t.Setenv("EXEC_MIN_PRODUCT", "1")
	t.Setenv("RUN_PROFILE", "calibration")
	t.Setenv("LLM_PROVIDER", "openai_compatible")
	t.Setenv("LLM_MODEL", "test-model")
	t.Setenv("CACHE_DIR", "/tmp/brief-cache")
	t.Setenv("DRY_RUN", "1")

	var cfg Config
	ApplyEnvToConfig(&cfg)

	if cfg.MinTotalItems != 500 {
		t.Fatalf("MinTotalItems = %d, want 500", cfg.MinTotalItems)
	}
	if cfg.MinFrontier85In72h != 7 {
		t.Fatalf("MinFrontier85In72h = %d, want 7", cfg.MinFrontier85In72h)
	}
	if !cfg.AllowDegraded {
		t.Fatalf("AllowDegraded not set from env")
	}
	if cfg.Frontier85Fallback != 3 {
		t.Fatalf("Frontier85Fallback = %d, want 3", cfg.Frontier85Fallback)
	}
	if cfg.Quotas.MinEvents != 4 || cfg.Quotas.MinProduct != 1 {
		t.Fatalf("quotas = %+v, want MinEvents 4, MinProduct 1", cfg.Quotas)
	}
	if cfg.RunProfile != "calibration" {
		t.Fatalf("RunProfile = %q", cfg.RunProfile)
	}
	if cfg.LLM.Provider != "openai_compatible" || cfg.LLM.Model != "test-model" {
		t.Fatalf("LLM = %+v", cfg.LLM)
	}
	if cfg.CacheDir != "/tmp/brief-cache" {
		t.Fatalf("CacheDir = %q", cfg.CacheDir)
	}
	if !cfg.DryRun {
		t.Fatalf("DryRun not set from env")
	}
}

func TestApplyEnvToConfig_FlagsWinOverEnv(t *testing.T) {
	t.Setenv("Z0_MIN_TOTAL_ITEMS", "500")
	t.Setenv("RUN_PROFILE", "calibration")
	t.Setenv("LLM_MODEL", "env-model")

	cfg := Config{
		MinTotalItems: 900,
		RunProfile:    "production",
	}
	cfg.LLM.Model = "flag-model"
	ApplyEnvToConfig(&cfg)

	if cfg.MinTotalItems != 900 {
		t.Fatalf("env overwrote flag value: MinTotalItems = %d", cfg.MinTotalItems)
	}
	if cfg.RunProfile != "production" {
		t.Fatalf("env overwrote flag value: RunProfile = %q", cfg.RunProfile)
	}
	if cfg.LLM.Model != "flag-model" {
		t.Fatalf("env overwrote flag value: LLM.Model = %q", cfg.LLM.Model)
	}
}

func TestApplyEnvToConfig_IgnoresGarbage(t *testing.T) {
	t.Setenv("Z0_MIN_TOTAL_ITEMS", "not-a-number")
	t.Setenv("Z0_ALLOW_DEGRADED", "maybe")

	var cfg Config
	ApplyEnvToConfig(&cfg)

	if cfg.MinTotalItems != 0 {
		t.Fatalf("garbage int accepted: %d", cfg.MinTotalItems)
	}
	if cfg.AllowDegraded {
		t.Fatalf("garbage bool accepted")
	}
}

func TestApplyEnvToConfig_NilConfig(t *testing.T) {
	ApplyEnvToConfig(nil) // must not panic
}
