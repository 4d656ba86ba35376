package collect

import (
	"strings"
	"time"

	"github.com/hyperifyio/execbrief/internal/item"
)

// Frontier score weights. The score is a 0–100 composite of recency,
// importance keywords, source reputation, and release-signal bonuses.
const (
	frontierRecencyMax    = 50.0
	frontierImportanceMax = 25.0
	frontierReputationMax = 15.0
	frontierReleaseBonus  = 10.0

	// canonicalBodyPrefix bounds how much body text counts as canonical for
	// bonus triggers; signals buried deep in the body do not score.
	canonicalBodyPrefix = 280
)

// importanceKeywords each add a fixed increment up to frontierImportanceMax.
var importanceKeywords = []string{
	"launch", "release", "announce", "acquisition", "funding", "raises",
	"breakthrough", "open source", "open-source", "benchmark", "regulation",
	"partnership", "ipo", "lawsuit", "outage", "security", "model",
}

// releaseSignals mark concrete product/business release language that earns
// the flat release bonus.
var releaseSignals = []string{
	"generally available", "general availability", "now available", "ships",
	"rolls out", "unveils", "introduces", "version ", "v2", "v3", "beta",
	"series a", "series b", "series c", "acquires", "to acquire",
}

// FrontierScore computes the composite score for one item at a reference
// time. Deterministic: same item and clock produce the same score.
func FrontierScore(it item.RawItem, reputation float64, now time.Time) float64 {
	score := recencyComponent(now.Sub(it.PublishedAt))

	canonical := strings.ToLower(it.Title + " " + prefix(it.Body, canonicalBodyPrefix))
	var imp float64
	for _, kw := range importanceKeywords {
		if strings.Contains(canonical, kw) {
			imp += 5
		}
	}
	if imp > frontierImportanceMax {
		imp = frontierImportanceMax
	}
	score += imp

	if reputation < 0 {
		reputation = 0
	}
	if reputation > 1 {
		reputation = 1
	}
	score += reputation * frontierReputationMax

	for _, sig := range releaseSignals {
		if strings.Contains(canonical, sig) {
			score += frontierReleaseBonus
			break
		}
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

// recencyComponent decays stepwise with item age.
func recencyComponent(age time.Duration) float64 {
	switch {
	case age < 0:
		// Future-dated items are treated as just published.
		return frontierRecencyMax
	case age <= 6*time.Hour:
		return frontierRecencyMax
	case age <= 24*time.Hour:
		return 40
	case age <= 48*time.Hour:
		return 28
	case age <= 72*time.Hour:
		return 18
	default:
		return 8
	}
}

func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r)
}
