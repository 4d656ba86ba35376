// Package gate evaluates the run's hard and soft gates over a snapshot
// of pipeline state. Every gate emits one evidence file through the meta
// writer; hard-gate FAIL fails the run.
package gate

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/hyperifyio/execbrief/internal/hydrate"
	"github.com/hyperifyio/execbrief/internal/meta"
	"github.com/hyperifyio/execbrief/internal/rewrite"
	"github.com/hyperifyio/execbrief/internal/selection"
	"github.com/hyperifyio/execbrief/internal/supply"
)

// Verdict is one gate's outcome.
type Verdict string

const (
	Pass   Verdict = "PASS"
	Fail   Verdict = "FAIL"
	WarnOK Verdict = "WARN-OK"
	Skip   Verdict = "SKIP"
)

// Mode selects per-run strictness.
type Mode string

const (
	ModeManual Mode = "manual" // strict
	ModeDaily  Mode = "daily"  // strict, no UI open
	ModeDemo   Mode = "demo"   // bucket quotas tolerated as WARN-OK
	ModeBrief  Mode = "brief"  // shorter deck, stricter factual density
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeManual, ModeDaily, ModeDemo, ModeBrief:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// Gate names, hard then soft.
const (
	PoolSufficiency    = "POOL_SUFFICIENCY_HARD"
	ShowcaseReady      = "SHOWCASE_READY_HARD"
	ExecNewsQuality    = "EXEC_NEWS_QUALITY_HARD"
	ExecZhNarrative    = "EXEC_ZH_NARRATIVE_WITH_QUOTE_HARD"
	FaithfulZhNews     = "FAITHFUL_ZH_NEWS"
	NewsroomZh         = "NEWSROOM_ZH"
	NewsAnchorGate     = "NEWS_ANCHOR_GATE"
	ExecDeliverable    = "EXEC_DELIVERABLE_DOCX_PPTX_HARD"
	ExecTextBanScan    = "EXEC_TEXT_BAN_SCAN"
	ExecKpiBuckets     = "EXEC_KPI_BUCKETS"
	FulltextHydration  = "FULLTEXT_HYDRATION"
	LongformEvidence   = "LONGFORM_EVIDENCE"
	GenericPhraseAudit = "GENERIC_PHRASE_AUDIT"
	PptxMediaAudit     = "PPTX_MEDIA_AUDIT"
	SupplyResilience   = "SUPPLY_RESILIENCE"
)

// Result is one gate's summary; the same record is persisted as the
// gate's meta file together with gate-specific detail fields.
type Result struct {
	Name    string   `json:"gate"`
	Verdict Verdict  `json:"gate_result"`
	Hard    bool     `json:"hard"`
	Reasons []string `json:"reasons,omitempty"`
}

// State is the read-only run snapshot the gates evaluate.
type State struct {
	Mode      Mode
	SparseDay bool

	Events           []selection.Event
	AISelected       int // deck events drawn from the event-gate pool
	StrictFulltextOK int // selected events backed by accepted fulltext
	FulltextLen      func(itemID string) int

	RewriteMeta rewrite.Meta
	Hydration   hydrate.Summary
	Fallback    supply.FallbackResult
	Backfill    selection.BackfillMeta

	Quotas selection.Quotas

	RenderRequested bool
	DeckPath        string
	DocPath         string
	RenderedText    string

	HydrationAttempted bool
}

// Engine runs the gate set and persists evidence.
type Engine struct {
	Meta *meta.Writer // nil skips persistence, used by tests
}

// floor is the selected-events hard minimum for the mode. Brief decks
// are allowed to run one event shorter.
func floor(m Mode) int {
	if m == ModeBrief {
		return 5
	}
	return 6
}

// Evaluate runs every gate in declaration order and returns the per-gate
// results plus the run verdict: FAIL iff any hard gate failed.
func (e *Engine) Evaluate(st State) ([]Result, Verdict) {
	type gateFn struct {
		name string
		hard bool
		fn   func(State) (Verdict, []string, any)
	}
	gates := []gateFn{
		{PoolSufficiency, true, poolSufficiency},
		{ShowcaseReady, true, showcaseReady},
		{ExecNewsQuality, true, execNewsQuality},
		{ExecZhNarrative, true, execZhNarrative},
		{FaithfulZhNews, true, faithfulZhNews},
		{NewsroomZh, true, newsroomZh},
		{NewsAnchorGate, true, newsAnchor},
		{ExecDeliverable, true, execDeliverable},
		{ExecTextBanScan, true, execTextBanScan},
		{ExecKpiBuckets, true, execKpiBuckets},
		{FulltextHydration, false, fulltextHydration},
		{LongformEvidence, false, longformEvidence},
		{GenericPhraseAudit, false, genericPhraseAudit},
		{PptxMediaAudit, false, pptxMediaAudit},
		{SupplyResilience, false, supplyResilience},
	}

	results := make([]Result, 0, len(gates))
	verdict := Pass
	for _, g := range gates {
		v, reasons, detail := g.fn(st)
		r := Result{Name: g.name, Verdict: v, Hard: g.hard, Reasons: reasons}
		results = append(results, r)
		if g.hard && v == Fail {
			verdict = Fail
		}
		if e.Meta != nil {
			record := map[string]any{
				"gate":        r.Name,
				"gate_result": r.Verdict,
				"hard":        r.Hard,
			}
			if len(r.Reasons) > 0 {
				record["reasons"] = r.Reasons
			}
			if detail != nil {
				record["detail"] = detail
			}
			if err := e.Meta.Write(g.name, record); err != nil {
				// A broken meta writer is itself a hard failure: verifiers
				// depend on the evidence files existing.
				verdict = Fail
				results[len(results)-1].Reasons = append(r.Reasons, "meta write: "+err.Error())
			}
		}
	}
	return results, verdict
}

func poolSufficiency(st State) (Verdict, []string, any) {
	need := floor(st.Mode)
	detail := map[string]int{
		"final_selected_events": len(st.Events),
		"strict_fulltext_ok":    st.StrictFulltextOK,
		"required_events":       need,
	}
	var reasons []string
	if len(st.Events) < need {
		reasons = append(reasons, fmt.Sprintf("final_selected_events %d < %d", len(st.Events), need))
	}
	if st.StrictFulltextOK < 4 {
		reasons = append(reasons, fmt.Sprintf("strict_fulltext_ok %d < 4", st.StrictFulltextOK))
	}
	if len(reasons) > 0 {
		return Fail, reasons, detail
	}
	return Pass, nil, detail
}

// showcaseReady counts only AI-selected events; backfilled deck slots
// do not satisfy the showcase floor outside demo mode.
func showcaseReady(st State) (Verdict, []string, any) {
	need := floor(st.Mode)
	detail := map[string]int{"deck_events": len(st.Events), "ai_selected": st.AISelected}
	if st.AISelected >= need {
		return Pass, nil, detail
	}
	if st.Mode == ModeDemo && st.Backfill.Triggered && len(st.Events) > 0 {
		return Pass, []string{"demo-supplemented deck"}, detail
	}
	return Fail, []string{fmt.Sprintf("deck has %d AI-selected events, need %d", st.AISelected, need)}, detail
}

// execNewsQuality requires two verbatim quotes per event, each clearing
// the anchor floor, bound into Q1 and Q2, with a quote source present.
func execNewsQuality(st State) (Verdict, []string, any) {
	var reasons []string
	for _, ev := range st.Events {
		a1 := wrappedSpan(ev.Q1)
		a2 := wrappedSpan(ev.Q2)
		switch {
		case a1 == "" || a2 == "":
			reasons = append(reasons, ev.ItemID+": missing bound quote")
		case a1 == a2:
			reasons = append(reasons, ev.ItemID+": q1 and q2 reuse one quote")
		case !quoteStrong(a1) || !quoteStrong(a2):
			reasons = append(reasons, ev.ItemID+": quote below 20-char/4-word floor")
		case ev.Source == "":
			reasons = append(reasons, ev.ItemID+": quote source missing")
		}
	}
	if len(reasons) > 0 {
		return Fail, reasons, nil
	}
	return Pass, nil, map[string]int{"events_checked": len(st.Events)}
}

// execZhNarrative checks the Chinese frame around each bound quote.
func execZhNarrative(st State) (Verdict, []string, any) {
	var reasons []string
	allPass := true
	for _, ev := range st.Events {
		for _, q := range []struct{ name, s string }{{"q1", ev.Q1}, {"q2", ev.Q2}} {
			span := wrappedSpan(q.s)
			if span == "" {
				allPass = false
				reasons = append(reasons, ev.ItemID+": "+q.name+" has no quote window")
				continue
			}
			window := strings.Replace(q.s, "「"+span+"」", "", 1)
			if rewrite.ZhRatio(window) < 0.5 {
				allPass = false
				reasons = append(reasons, ev.ItemID+": "+q.name+" frame is not Chinese")
			}
		}
	}
	detail := map[string]bool{"all_pass": allPass}
	if !allPass {
		return Fail, reasons, detail
	}
	return Pass, nil, detail
}

func faithfulZhNews(st State) (Verdict, []string, any) {
	effectiveMin := floor(st.Mode)
	if st.SparseDay && len(st.Events) < effectiveMin {
		effectiveMin = len(st.Events)
	}
	m := st.RewriteMeta
	detail := map[string]any{
		"applied_count":        m.AppliedCount,
		"effective_min":        effectiveMin,
		"quote_coverage_ratio": m.QuoteCoverageRatio,
		"ellipsis_hits_total":  m.EllipsisHitsTotal,
	}
	var reasons []string
	if m.AppliedCount < effectiveMin {
		reasons = append(reasons, fmt.Sprintf("applied_count %d < %d", m.AppliedCount, effectiveMin))
	}
	if m.QuoteCoverageRatio < 0.90 {
		reasons = append(reasons, fmt.Sprintf("quote_coverage_ratio %.2f < 0.90", m.QuoteCoverageRatio))
	}
	if m.EllipsisHitsTotal != 0 {
		reasons = append(reasons, fmt.Sprintf("ellipsis_hits_total %d != 0", m.EllipsisHitsTotal))
	}
	if len(reasons) > 0 {
		return Fail, reasons, detail
	}
	return Pass, nil, detail
}

func newsroomZh(st State) (Verdict, []string, any) {
	m := st.RewriteMeta
	detail := map[string]float64{"avg_zh_ratio": m.AvgZhRatio, "min_zh_ratio": m.MinZhRatio}
	var reasons []string
	if m.AvgZhRatio < 0.35 {
		reasons = append(reasons, fmt.Sprintf("avg_zh_ratio %.2f < 0.35", m.AvgZhRatio))
	}
	if m.MinZhRatio < 0.20 {
		reasons = append(reasons, fmt.Sprintf("min_zh_ratio %.2f < 0.20", m.MinZhRatio))
	}
	if len(reasons) > 0 {
		return Fail, reasons, detail
	}
	return Pass, nil, detail
}

func newsAnchor(st State) (Verdict, []string, any) {
	if len(st.Events) == 0 {
		return Skip, []string{"no events"}, nil
	}
	missing := 0
	for _, ev := range st.Events {
		if len(ev.Anchors) == 0 {
			missing++
		}
	}
	coverage := float64(len(st.Events)-missing) / float64(len(st.Events))
	detail := map[string]any{"anchor_coverage_ratio": coverage, "anchor_missing_count": missing}
	if coverage >= 0.90 || missing <= 1 {
		return Pass, nil, detail
	}
	return Fail, []string{fmt.Sprintf("anchor coverage %.2f with %d missing", coverage, missing)}, detail
}

func execDeliverable(st State) (Verdict, []string, any) {
	if !st.RenderRequested {
		return Skip, []string{"render not requested"}, nil
	}
	var reasons []string
	for _, p := range []string{st.DeckPath, st.DocPath} {
		info, err := os.Stat(p)
		if err != nil {
			reasons = append(reasons, p+": missing")
			continue
		}
		if info.Size() == 0 {
			reasons = append(reasons, p+": empty")
		}
	}
	if len(reasons) > 0 {
		return Fail, reasons, nil
	}
	return Pass, nil, map[string]string{"deck": st.DeckPath, "doc": st.DocPath}
}

func execTextBanScan(st State) (Verdict, []string, any) {
	var reasons []string
	if phrase, hit := rewrite.ScanBanned(st.RenderedText); hit {
		reasons = append(reasons, "rendered text contains banned phrase: "+phrase)
	}
	for _, ev := range st.Events {
		if phrase, hit := rewrite.ScanBanned(ev.Q1 + ev.Q2 + ev.Q3 + ev.Proof); hit {
			reasons = append(reasons, ev.ItemID+": banned phrase: "+phrase)
		}
	}
	if len(reasons) > 0 {
		return Fail, reasons, nil
	}
	return Pass, nil, nil
}

// execKpiBuckets enforces the bucket minima. Demo mode and sparse brief
// days downgrade a shortfall to WARN-OK.
func execKpiBuckets(st State) (Verdict, []string, any) {
	counts := map[selection.Bucket]int{}
	for _, ev := range st.Events {
		counts[ev.Bucket]++
	}
	var reasons []string
	quotas := []struct {
		b    selection.Bucket
		want int
	}{
		{selection.BucketProduct, st.Quotas.MinProduct},
		{selection.BucketTech, st.Quotas.MinTech},
		{selection.BucketBusiness, st.Quotas.MinBusiness},
	}
	for _, q := range quotas {
		if counts[q.b] < q.want {
			reasons = append(reasons, fmt.Sprintf("bucket %s has %d, need %d", q.b, counts[q.b], q.want))
		}
	}
	detail := map[string]int{
		"product":  counts[selection.BucketProduct],
		"tech":     counts[selection.BucketTech],
		"business": counts[selection.BucketBusiness],
		"other":    counts[selection.BucketOther],
	}
	if len(reasons) == 0 {
		return Pass, nil, detail
	}
	if st.Mode == ModeDemo || (st.Mode == ModeBrief && st.SparseDay) {
		return WarnOK, reasons, detail
	}
	return Fail, reasons, detail
}

func fulltextHydration(st State) (Verdict, []string, any) {
	if !st.HydrationAttempted {
		return Skip, []string{"hydration not attempted"}, nil
	}
	detail := map[string]any{
		"attempted":      st.Hydration.Attempted,
		"ok":             st.Hydration.OKCount,
		"coverage_ratio": st.Hydration.CoverageRatio,
	}
	// The absolute-count branch keeps small pools honest: four accepted
	// fulltexts are enough evidence even when the ratio looks poor.
	if st.Hydration.CoverageRatio >= 0.60 || st.Hydration.OKCount >= 4 {
		return Pass, nil, detail
	}
	return WarnOK, []string{fmt.Sprintf("hydration coverage %.2f < 0.60 and ok_count %d < 4",
		st.Hydration.CoverageRatio, st.Hydration.OKCount)}, detail
}

func longformEvidence(st State) (Verdict, []string, any) {
	if st.FulltextLen == nil || len(st.Events) == 0 {
		return Skip, []string{"no fulltext index"}, nil
	}
	longform := 0
	for _, ev := range st.Events {
		if st.FulltextLen(ev.ItemID) >= 1500 {
			longform++
		}
	}
	detail := map[string]int{"longform_events": longform}
	if longform == 0 {
		return WarnOK, []string{"no event backed by longform fulltext"}, detail
	}
	return Pass, nil, detail
}

// genericPhraseAudit flags advisory filler that is discouraged but not
// hard-banned.
var genericPhrases = []string{"业内人士认为", "或将", "有望进一步", "this could signal", "experts suggest"}

func genericPhraseAudit(st State) (Verdict, []string, any) {
	var reasons []string
	for _, ev := range st.Events {
		combined := strings.ToLower(ev.Q1 + ev.Q2 + ev.Q3 + ev.Proof)
		for _, p := range genericPhrases {
			if strings.Contains(combined, strings.ToLower(p)) {
				reasons = append(reasons, ev.ItemID+": generic phrase: "+p)
			}
		}
	}
	if len(reasons) > 0 {
		return WarnOK, reasons, nil
	}
	return Pass, nil, nil
}

func pptxMediaAudit(st State) (Verdict, []string, any) {
	if !st.RenderRequested {
		return Skip, []string{"render not requested"}, nil
	}
	info, err := os.Stat(st.DeckPath)
	if err != nil {
		return WarnOK, []string{"deck not present for audit"}, nil
	}
	const maxDeckBytes = 20 << 20
	detail := map[string]int64{"deck_bytes": info.Size()}
	if info.Size() > maxDeckBytes {
		return WarnOK, []string{fmt.Sprintf("deck is %d bytes, above audit ceiling", info.Size())}, detail
	}
	return Pass, nil, detail
}

func supplyResilience(st State) (Verdict, []string, any) {
	detail := map[string]any{
		"fallback_used":      st.Fallback.FallbackUsed,
		"reason":             st.Fallback.Reason,
		"snapshot_age_hours": st.Fallback.SnapshotAgeHours,
	}
	if st.Fallback.FallbackUsed {
		return WarnOK, []string{"run served from known-good snapshot: " + st.Fallback.Reason}, detail
	}
	return Pass, nil, detail
}

// wrappedSpan returns the first 「…」-wrapped span in s, or empty.
func wrappedSpan(s string) string {
	start := strings.Index(s, "「")
	if start < 0 {
		return ""
	}
	rest := s[start+len("「"):]
	end := strings.Index(rest, "」")
	if end < 0 {
		return ""
	}
	return rest[:end]
}

func quoteStrong(span string) bool {
	return utf8.RuneCountInString(span) >= 20 && len(strings.Fields(span)) >= 4
}
