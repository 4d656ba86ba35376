// Package score computes the per-item scoring dimensions and applies the
// event gate that promotes items to event candidates.
package score

import (
	"strings"
	"unicode"

	"github.com/hyperifyio/execbrief/internal/classify"
	"github.com/hyperifyio/execbrief/internal/extract"
	"github.com/hyperifyio/execbrief/internal/item"
)

// Weights of the final score. Kept as named constants so the mean is
// auditable against meta output.
const (
	weightNovelty     = 0.35
	weightUtility     = 0.30
	weightHeat        = 0.20
	weightFeasibility = 0.15
)

// Score holds the per-item dimensions, each in [0,10].
type Score struct {
	ItemID      string  `json:"item_id"`
	Novelty     float64 `json:"novelty"`
	Utility     float64 `json:"utility"`
	Heat        float64 `json:"heat"`
	Feasibility float64 `json:"feasibility"`
	Final       float64 `json:"final_score"`
	DupRisk     float64 `json:"dup_risk"`
	AdFlag      bool    `json:"ad_flag"`
}

// Inputs collects everything scoring reads for one item.
type Inputs struct {
	Item           item.RawItem
	DupCount       int // later duplicates collapsed into this item
	HydrationOK    bool
	Classification classify.Result
}

// Compute derives all dimensions deterministically from the inputs.
func Compute(in Inputs) Score {
	s := Score{ItemID: in.Item.ID}

	// Novelty tracks the frontier score (0–100 → 0–10).
	s.Novelty = clamp10(in.Item.Frontier / 10)

	// Utility rewards concrete, quotable substance: length, digits, quotes.
	body := in.Item.Body
	s.Utility = clamp10(lengthComponent(len(body)) + digitDensity(body)*3 + quoteBonus(body))

	// Heat: syndication breadth is the strongest public-attention proxy we
	// have without external signals.
	s.Heat = clamp10(float64(in.DupCount)*2.5 + in.Item.Frontier/20)

	// Feasibility: can we actually evidence this item downstream.
	s.Feasibility = 3
	if in.HydrationOK || len(body) >= extract.MinFulltextLen {
		s.Feasibility += 4
	}
	s.Feasibility += in.Classification.Confidence * 3
	s.Feasibility = clamp10(s.Feasibility)

	s.Final = clamp10(weightNovelty*s.Novelty + weightUtility*s.Utility +
		weightHeat*s.Heat + weightFeasibility*s.Feasibility)

	s.DupRisk = dupRisk(in.DupCount)
	s.AdFlag = IsAd(in.Item.Title, body)
	return s
}

// dupRisk maps the fingerprint neighborhood size into [0,1]. One collapsed
// duplicate is normal syndication; risk grows past that.
func dupRisk(dupCount int) float64 {
	if dupCount <= 1 {
		return float64(dupCount) * 0.2
	}
	r := 0.2 + float64(dupCount-1)*0.25
	if r > 1 {
		r = 1
	}
	return r
}

func lengthComponent(n int) float64 {
	switch {
	case n >= 4000:
		return 4
	case n >= 1500:
		return 3
	case n >= extract.MinFulltextLen:
		return 2
	case n > 0:
		return 1
	default:
		return 0
	}
}

// digitDensity returns the fraction of tokens carrying digits, capped at 1.
// Numbers with units are the raw material for anchors.
func digitDensity(text string) float64 {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0
	}
	var n int
	for _, f := range fields {
		for _, r := range f {
			if unicode.IsDigit(r) {
				n++
				break
			}
		}
	}
	d := float64(n) / float64(len(fields)) * 10
	if d > 1 {
		d = 1
	}
	return d
}

func quoteBonus(text string) float64 {
	if strings.Contains(text, "“") || strings.Count(text, `"`) >= 2 {
		return 2
	}
	return 0
}

func clamp10(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}
