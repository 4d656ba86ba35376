package score

import (
	"github.com/hyperifyio/execbrief/internal/extract"
	"github.com/hyperifyio/execbrief/internal/item"
)

// GatePolicy configures event promotion thresholds.
type GatePolicy struct {
	MinScore   float64 // default 6.0
	MaxDupRisk float64 // default 0.45
}

// DefaultGatePolicy matches the production profile.
func DefaultGatePolicy() GatePolicy {
	return GatePolicy{MinScore: 6.0, MaxDupRisk: 0.45}
}

// GateReason explains one rejection; empty means the item passed.
type GateReason string

const (
	ReasonScore      GateReason = "final_score_below_min"
	ReasonDupRisk    GateReason = "dup_risk_above_max"
	ReasonAd         GateReason = "ad_flag"
	ReasonLang       GateReason = "language_not_allowed"
	ReasonNoFulltext GateReason = "fulltext_unavailable"
)

// EventGate decides whether a scored item may become an event. Pass
// requires: score floor, dup-risk ceiling, no ad flag, allowed language,
// and available fulltext (long original body or successful hydration).
func EventGate(it item.RawItem, s Score, hydrationOK bool, langAllowed bool, p GatePolicy) (bool, GateReason) {
	switch {
	case s.Final < p.MinScore:
		return false, ReasonScore
	case s.DupRisk > p.MaxDupRisk:
		return false, ReasonDupRisk
	case s.AdFlag:
		return false, ReasonAd
	case !langAllowed:
		return false, ReasonLang
	case len(it.Body) < extract.MinFulltextLen && !hydrationOK:
		return false, ReasonNoFulltext
	}
	return true, ""
}
