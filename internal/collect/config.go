// Package collect implements the Z0 collector: it pulls candidate items
// from configured sources, resolves publish dates, and computes the
// frontier score used downstream as the coarse novelty/quality signal.
package collect

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Source is one configured feed endpoint. Platform selects the parser.
type Source struct {
	Name       string  `yaml:"name"`
	Platform   string  `yaml:"platform"` // rss | atom | jsonfeed | api | html | file
	URL        string  `yaml:"url"`
	Reputation float64 `yaml:"reputation"` // 0..1, defaults to 0.5
	Lang       string  `yaml:"lang"`
}

// SourcesConfig is the YAML document listing all sources for a run.
type SourcesConfig struct {
	Sources []Source `yaml:"sources"`
}

var knownPlatforms = map[string]struct{}{
	"rss": {}, "atom": {}, "jsonfeed": {}, "api": {}, "html": {}, "file": {},
}

// LoadSources reads and validates the sources YAML file.
func LoadSources(path string) (SourcesConfig, error) {
	var cfg SourcesConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read sources config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse sources config: %w", err)
	}
	for i := range cfg.Sources {
		s := &cfg.Sources[i]
		s.Platform = strings.ToLower(strings.TrimSpace(s.Platform))
		if s.Name == "" {
			return cfg, fmt.Errorf("source %d: missing name", i)
		}
		if s.URL == "" {
			return cfg, fmt.Errorf("source %q: missing url", s.Name)
		}
		if _, ok := knownPlatforms[s.Platform]; !ok {
			return cfg, fmt.Errorf("source %q: unknown platform %q", s.Name, s.Platform)
		}
		if s.Reputation <= 0 {
			s.Reputation = 0.5
		}
		if s.Reputation > 1 {
			s.Reputation = 1
		}
	}
	if len(cfg.Sources) == 0 {
		return cfg, fmt.Errorf("sources config %q lists no sources", path)
	}
	return cfg, nil
}
