package main

import (
	"testing"

	"github.com/hyperifyio/execbrief/internal/app"
	"github.com/hyperifyio/execbrief/internal/selection"
)

// layer mirrors main's config assembly for the quota fields: flags first
// (zero when unspecified), then env, then defaults.
func layer(flags selection.Quotas) app.Config {
	def := app.DefaultConfig()
	cfg := def
	cfg.Quotas = flags
	app.ApplyEnvToConfig(&cfg)
	fillDefaults(&cfg, def)
	return cfg
}

func TestQuotaEnvFillsUnsetFlags(t *testing.T) {
	t.Setenv("EXEC_MIN_PRODUCT", "5")
	t.Setenv("EXEC_MIN_TECH", "4")
	t.Setenv("EXEC_MIN_BUSINESS", "3")

	cfg := layer(selection.Quotas{})
	if cfg.Quotas.MinProduct != 5 || cfg.Quotas.MinTech != 4 || cfg.Quotas.MinBusiness != 3 {
		t.Fatalf("env quotas not applied: %+v", cfg.Quotas)
	}
}

func TestQuotaFlagWinsOverEnv(t *testing.T) {
	t.Setenv("EXEC_MIN_PRODUCT", "5")

	cfg := layer(selection.Quotas{MinProduct: 1})
	if cfg.Quotas.MinProduct != 1 {
		t.Fatalf("MinProduct = %d, want the flag value 1", cfg.Quotas.MinProduct)
	}
}

func TestQuotaDefaultsRestoredWithoutEnv(t *testing.T) {
	cfg := layer(selection.Quotas{})
	def := app.DefaultConfig()
	if cfg.Quotas.MinEvents != def.Quotas.MinEvents ||
		cfg.Quotas.MaxEvents != def.Quotas.MaxEvents ||
		cfg.Quotas.MinProduct != def.Quotas.MinProduct ||
		cfg.Quotas.MinTech != def.Quotas.MinTech ||
		cfg.Quotas.MinBusiness != def.Quotas.MinBusiness {
		t.Fatalf("defaults not restored: %+v", cfg.Quotas)
	}
}
