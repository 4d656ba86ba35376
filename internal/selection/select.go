// Package selection turns event-gate passers into the day's Events,
// honoring per-bucket minima with tiered backfill when a bucket runs dry.
// Selection is a total order: identical inputs yield identical output.
package selection

import (
	"sort"

	"github.com/hyperifyio/execbrief/internal/classify"
	"github.com/hyperifyio/execbrief/internal/item"
	"github.com/hyperifyio/execbrief/internal/score"
)

// Pool tiers, in relaxation order. Backfill walks primary to extra to
// general and records where each selection came from.
type Pool string

const (
	PoolPrimary Pool = "primary_pool"
	PoolExtra   Pool = "extra_pool"
	PoolGeneral Pool = "backfill"
)

// Candidate is one item eligible for selection, carrying everything the
// comparator and the renderer need.
type Candidate struct {
	Item     item.RawItem
	Score    score.Score
	Category classify.Result
	Entities []string
	Bucket   Bucket
	Pool     Pool
}

// Event is one selected story as it flows to the rewriter and renderers.
// The rewriter fills Anchors, Q1, Q2, Q3, Proof and ZhRatio.
type Event struct {
	ItemID   string   `json:"item_id"`
	Bucket   Bucket   `json:"bucket"`
	Title    string   `json:"title"`
	URL      string   `json:"url"`
	Source   string   `json:"source"`
	Origin   Pool     `json:"origin"`
	Entities []string `json:"entities,omitempty"`
	Anchors  []string `json:"anchors,omitempty"`
	Q1       string   `json:"q1,omitempty"`
	Q2       string   `json:"q2,omitempty"`
	Q3       string   `json:"q3,omitempty"`
	Proof    string   `json:"proof,omitempty"`
	ZhRatio  float64  `json:"zh_ratio,omitempty"`
}

// Quotas are the per-run selection targets.
type Quotas struct {
	MinEvents   int // floor before sparse_day; default 6
	MaxEvents   int // deck cap; 10 in brief mode, 12 otherwise
	MinProduct  int
	MinTech     int
	MinBusiness int
}

// DefaultQuotas returns the production selection targets.
func DefaultQuotas() Quotas {
	return Quotas{MinEvents: 6, MaxEvents: 12, MinProduct: 2, MinTech: 2, MinBusiness: 2}
}

func (q Quotas) minFor(b Bucket) int {
	switch b {
	case BucketProduct:
		return q.MinProduct
	case BucketTech:
		return q.MinTech
	case BucketBusiness:
		return q.MinBusiness
	}
	return 0
}

// BackfillMeta records one run's backfill activity for the gate engine.
type BackfillMeta struct {
	Triggered      bool           `json:"triggered"`
	CandidateCount int            `json:"candidate_count"`
	SelectedIDs    []string       `json:"selected_ids"`
	OriginCounts   map[string]int `json:"origin_counts"`
}

// Outcome is the full result of one selection pass.
type Outcome struct {
	Selected  []Candidate
	SparseDay bool
	Backfill  BackfillMeta
}

// Less is the selection total order: higher frontier first, then more
// recent, then shorter canonical URL, then id. Every ordered stage in
// selection sorts with this comparator.
func Less(a, b Candidate) bool {
	if a.Item.Frontier != b.Item.Frontier {
		return a.Item.Frontier > b.Item.Frontier
	}
	if !a.Item.PublishedAt.Equal(b.Item.PublishedAt) {
		return a.Item.PublishedAt.After(b.Item.PublishedAt)
	}
	if len(a.Item.CanonicalURL) != len(b.Item.CanonicalURL) {
		return len(a.Item.CanonicalURL) < len(b.Item.CanonicalURL)
	}
	return a.Item.ID < b.Item.ID
}

func sortCandidates(cs []Candidate) {
	sort.SliceStable(cs, func(i, j int) bool { return Less(cs[i], cs[j]) })
}

// Select picks the day's events from the tiered pools. The primary pool
// holds event-gate passers; extra and general hold progressively relaxed
// fallbacks the caller prepared. Pool tags on the inputs are overwritten.
func Select(primary, extra, general []Candidate, q Quotas) Outcome {
	primary = tagged(primary, PoolPrimary)
	extra = tagged(extra, PoolExtra)
	general = tagged(general, PoolGeneral)
	sortCandidates(primary)
	sortCandidates(extra)
	sortCandidates(general)

	taken := map[string]bool{}
	var selected []Candidate

	take := func(c Candidate) {
		taken[c.Item.ID] = true
		selected = append(selected, c)
	}
	bucketCount := func(b Bucket) int {
		n := 0
		for _, c := range selected {
			if c.Bucket == b {
				n++
			}
		}
		return n
	}
	nextIn := func(pool []Candidate, b Bucket) (Candidate, bool) {
		for _, c := range pool {
			if !taken[c.Item.ID] && (b == "" || c.Bucket == b) {
				return c, true
			}
		}
		return Candidate{}, false
	}

	// Round-robin the quota buckets over the primary pool until every
	// minimum is met or the pool has nothing left for the short buckets.
	for {
		progress := false
		for _, b := range quotaBuckets {
			if bucketCount(b) >= q.minFor(b) || len(selected) >= q.MaxEvents {
				continue
			}
			if c, ok := nextIn(primary, b); ok {
				take(c)
				progress = true
			}
		}
		if !progress {
			break
		}
	}

	// Fill toward the floor with the best remaining passers of any bucket.
	for len(selected) < q.MinEvents {
		c, ok := nextIn(primary, "")
		if !ok {
			break
		}
		take(c)
	}

	// Tiered backfill for buckets still short, then for the overall floor.
	bf := BackfillMeta{OriginCounts: map[string]int{string(PoolPrimary): len(selected)}}
	for _, tier := range [][]Candidate{extra, general} {
		for _, b := range quotaBuckets {
			for bucketCount(b) < q.minFor(b) && len(selected) < q.MaxEvents {
				c, ok := nextIn(tier, b)
				if !ok {
					break
				}
				bf.Triggered = true
				take(c)
			}
		}
		for len(selected) < q.MinEvents {
			c, ok := nextIn(tier, "")
			if !ok {
				break
			}
			bf.Triggered = true
			take(c)
		}
	}
	if bf.Triggered {
		bf.CandidateCount = len(extra) + len(general)
		for _, c := range selected {
			if c.Pool != PoolPrimary {
				bf.SelectedIDs = append(bf.SelectedIDs, c.Item.ID)
				bf.OriginCounts[string(c.Pool)]++
			}
		}
	}

	// Top up toward the cap from the primary pool only; backfill tiers
	// never contribute beyond the minima.
	for len(selected) < q.MaxEvents {
		c, ok := nextIn(primary, "")
		if !ok {
			break
		}
		take(c)
	}

	sortCandidates(selected)
	return Outcome{
		Selected:  selected,
		SparseDay: len(selected) < q.MinEvents,
		Backfill:  bf,
	}
}

// Events converts the selected candidates into the Event records the
// rewriter and renderers consume.
func Events(selected []Candidate) []Event {
	evs := make([]Event, 0, len(selected))
	for _, c := range selected {
		evs = append(evs, Event{
			ItemID:   c.Item.ID,
			Bucket:   c.Bucket,
			Title:    c.Item.Title,
			URL:      c.Item.CanonicalURL,
			Source:   c.Item.SourceName,
			Origin:   c.Pool,
			Entities: c.Entities,
		})
	}
	return evs
}

func tagged(cs []Candidate, p Pool) []Candidate {
	out := make([]Candidate, len(cs))
	for i, c := range cs {
		c.Pool = p
		out[i] = c
	}
	return out
}
