// Package dedupe suppresses duplicate items and applies the ordered
// pre-scoring filter stages, recording per-reason drop counts for audit.
package dedupe

import (
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"

	"github.com/hyperifyio/execbrief/internal/item"
)

// DropReason names one filter stage for the top_drop_reasons audit list.
type DropReason string

const (
	DropDupURL         DropReason = "dup_canonical_url"
	DropDupContent     DropReason = "dup_content_fingerprint"
	DropLang           DropReason = "language_not_allowed"
	DropAge            DropReason = "older_than_horizon"
	DropBodyLen        DropReason = "body_too_short"
	DropOffTopic       DropReason = "off_topic"
)

// Summary is the FilterSummary audit record. KeptTotal counts the items
// that survive scoring into a selection pool and EventGatePassTotal the
// subset clearing the event gate; the orchestrator fills both once the
// event gate has run, before the meta is persisted.
//
// AfterFilterTotal is a deprecated alias of AfterFilterTotalRaw kept for
// meta compatibility; consumers must read KeptTotal.
type Summary struct {
	DedupTotal          int              `json:"dedup_total"`
	AfterFilterTotalRaw int              `json:"after_filter_total_raw"`
	AfterFilterTotal    int              `json:"after_filter_total"` // Deprecated: alias of AfterFilterTotalRaw.
	KeptTotal           int              `json:"kept_total"`
	EventGatePassTotal  int              `json:"event_gate_pass_total"`
	TopDropReasons      []DropCount      `json:"top_drop_reasons"`
	dropCounts          map[DropReason]int
}

// DropCount pairs a reason with how many items it removed.
type DropCount struct {
	Reason DropReason `json:"reason"`
	Count  int        `json:"count"`
}

func (s *Summary) drop(r DropReason) {
	if s.dropCounts == nil {
		s.dropCounts = map[DropReason]int{}
	}
	s.dropCounts[r]++
}

// finalizeDrops sorts drop reasons by count desc, reason asc for stable meta.
func (s *Summary) finalizeDrops() {
	s.TopDropReasons = s.TopDropReasons[:0]
	for r, c := range s.dropCounts {
		s.TopDropReasons = append(s.TopDropReasons, DropCount{Reason: r, Count: c})
	}
	sort.Slice(s.TopDropReasons, func(i, j int) bool {
		if s.TopDropReasons[i].Count != s.TopDropReasons[j].Count {
			return s.TopDropReasons[i].Count > s.TopDropReasons[j].Count
		}
		return s.TopDropReasons[i].Reason < s.TopDropReasons[j].Reason
	})
}

// Policy configures the filter stages.
type Policy struct {
	LangAllow     []string // two-letter codes; empty allows everything
	MaxAge        time.Duration
	MinBodyLen    int
	TopicKeywords []string // at least one must appear in title or body
	Now           time.Time
}

// Result carries the surviving items plus dup-risk neighborhoods: for each
// kept item id, how many later duplicates collapsed into it.
type Result struct {
	Items     []item.RawItem
	DupCounts map[string]int
	Summary   Summary
}

// Process deduplicates (canonical URL equality, then content fingerprint)
// and applies the filter stages in order: language, age, body length, topic.
// Items must already be in canonical (published desc, id asc) order; the
// earlier-seen item wins a duplicate pair.
func Process(items []item.RawItem, p Policy) Result {
	res := Result{DupCounts: map[string]int{}}
	now := p.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	// Dedup pass.
	byURL := map[string]string{}     // canonical URL -> winner id
	byContent := map[string]string{} // content fingerprint -> winner id
	deduped := make([]item.RawItem, 0, len(items))
	for _, it := range items {
		if winner, ok := byURL[it.CanonicalURL]; ok {
			res.DupCounts[winner]++
			res.Summary.drop(DropDupURL)
			continue
		}
		fp := item.ContentFingerprint(it.Title, it.Body)
		if winner, ok := byContent[fp]; ok {
			res.DupCounts[winner]++
			res.Summary.drop(DropDupContent)
			continue
		}
		byURL[it.CanonicalURL] = it.ID
		byContent[fp] = it.ID
		deduped = append(deduped, it)
	}
	res.Summary.DedupTotal = len(deduped)

	// Filter stages, in order, each recorded by count.
	allow := normalizeLangs(p.LangAllow)
	kept := make([]item.RawItem, 0, len(deduped))
	for _, it := range deduped {
		switch {
		case len(allow) > 0 && !langAllowed(it.Lang, allow):
			res.Summary.drop(DropLang)
		case p.MaxAge > 0 && now.Sub(it.PublishedAt) > p.MaxAge:
			res.Summary.drop(DropAge)
		case p.MinBodyLen > 0 && len(it.Body) < p.MinBodyLen && !it.NeedsFulltext:
			res.Summary.drop(DropBodyLen)
		case len(p.TopicKeywords) > 0 && !onTopic(it, p.TopicKeywords):
			res.Summary.drop(DropOffTopic)
		default:
			kept = append(kept, it)
		}
	}
	res.Items = kept
	res.Summary.AfterFilterTotalRaw = len(kept)
	res.Summary.AfterFilterTotal = len(kept)
	res.Summary.finalizeDrops()
	log.Debug().Int("in", len(items)).Int("deduped", len(deduped)).Int("filtered", len(kept)).
		Msg("dedupe and filter complete")
	return res
}

// normalizeLangs reduces allowlist entries to base language subtags so
// "en-US" and "en" compare equal.
func normalizeLangs(codes []string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, c := range codes {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if tag, err := language.Parse(c); err == nil {
			base, _ := tag.Base()
			out[base.String()] = struct{}{}
		} else {
			out[strings.ToLower(c)] = struct{}{}
		}
	}
	return out
}

func langAllowed(lang string, allow map[string]struct{}) bool {
	if strings.TrimSpace(lang) == "" {
		return false
	}
	if tag, err := language.Parse(lang); err == nil {
		base, _ := tag.Base()
		_, ok := allow[base.String()]
		return ok
	}
	_, ok := allow[strings.ToLower(lang)]
	return ok
}

func onTopic(it item.RawItem, keywords []string) bool {
	hay := strings.ToLower(it.Title + " " + it.Body)
	for _, kw := range keywords {
		if strings.Contains(hay, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
