// Package hydrate fetches article fulltext for items whose collected body is
// too short to score. It is the pipeline's only concurrent stage: a bounded
// worker pool constrained orthogonally by a per-host politeness ledger.
package hydrate

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/hyperifyio/execbrief/internal/extract"
	"github.com/hyperifyio/execbrief/internal/fetch"
	"github.com/hyperifyio/execbrief/internal/item"
	"github.com/hyperifyio/execbrief/internal/robots"
)

// Status classifies one hydration attempt.
type Status string

const (
	StatusOK                Status = "ok"
	StatusTimeout           Status = "timeout"
	StatusHTTPError         Status = "http_error"
	StatusBlocked           Status = "blocked"
	StatusExtractEmpty      Status = "extract_empty"
	StatusExtractLowQuality Status = "extract_low_quality"
	StatusConnectionError   Status = "connection_error"
	StatusSkippedPolicy     Status = "skipped_policy"
)

// Result is the immutable outcome for one item. Exactly one Result exists
// per attempted item; hydration failure never drops the item itself.
type Result struct {
	ItemID      string `json:"item_id"`
	Status      Status `json:"status"`
	Fulltext    string `json:"-"`
	FulltextLen int    `json:"fulltext_len"`
	FinalURL    string `json:"final_url,omitempty"`
	Retries     int    `json:"retries"`
}

// Summary feeds the FULLTEXT_HYDRATION gate.
type Summary struct {
	Attempted     int            `json:"attempted"`
	OKCount       int            `json:"fulltext_ok_count"`
	CoverageRatio float64        `json:"coverage_ratio"`
	ByStatus      map[Status]int `json:"by_status"`
}

// Getter is the fetch surface used per URL; tests inject it.
type Getter interface {
	Get(ctx context.Context, url string) fetch.Outcome
}

// RobotsChecker gates article fetches per robots.txt; nil allows all.
type RobotsChecker interface {
	Check(ctx context.Context, pageURL string) robots.Verdict
}

// maxCrawlDelay caps a host-requested crawl delay so one hostile
// robots.txt cannot stall the whole run.
const maxCrawlDelay = 10 * time.Second

// Policy bounds the hydrator. Workers is the global concurrency limit;
// PolitenessDelay is the per-host end-to-start gap. The two are independent
// constraints and must not be conflated.
type Policy struct {
	Workers         int           // default 3
	PolitenessDelay time.Duration // default 500ms
	DomainBlocklist []string
}

// hostState serializes requests to one hostname and remembers when the last
// one finished. The mutex gives a fair FIFO-ish queue per host without
// blocking other hosts.
type hostState struct {
	mu      sync.Mutex
	lastEnd time.Time
}

// Hydrator runs hydration over a candidate list.
type Hydrator struct {
	Client Getter
	Robots RobotsChecker
	Policy Policy

	mu    sync.Mutex
	hosts map[string]*hostState
}

func (h *Hydrator) host(name string) *hostState {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.hosts == nil {
		h.hosts = map[string]*hostState{}
	}
	s, ok := h.hosts[name]
	if !ok {
		s = &hostState{}
		h.hosts[name] = s
	}
	return s
}

// Hydrate fetches and extracts fulltext for every candidate, returning one
// Result per input in input order regardless of completion order. A
// cancelled ctx abandons pending fetches; already-running ones finish or
// time out and their partial results are still recorded.
func (h *Hydrator) Hydrate(ctx context.Context, candidates []item.RawItem) ([]Result, Summary) {
	workers := h.Policy.Workers
	if workers <= 0 {
		workers = 3
	}
	delay := h.Policy.PolitenessDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	blocked := map[string]struct{}{}
	for _, d := range h.Policy.DomainBlocklist {
		blocked[d] = struct{}{}
	}

	results := make([]Result, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range candidates {
		it := candidates[i]
		results[i] = Result{ItemID: it.ID}
		if _, deny := blocked[item.Host(it.URL)]; deny {
			results[i].Status = StatusSkippedPolicy
			continue
		}
		idx := i
		g.Go(func() error {
			results[idx] = h.fetchOne(gctx, it, delay)
			return nil
		})
	}
	_ = g.Wait()

	sum := Summary{Attempted: len(candidates), ByStatus: map[Status]int{}}
	for _, r := range results {
		sum.ByStatus[r.Status]++
		if r.Status == StatusOK {
			sum.OKCount++
		}
	}
	if sum.Attempted > 0 {
		sum.CoverageRatio = float64(sum.OKCount) / float64(sum.Attempted)
	}
	log.Info().Int("attempted", sum.Attempted).Int("ok", sum.OKCount).
		Float64("coverage", sum.CoverageRatio).Msg("hydration complete")
	return results, sum
}

func (h *Hydrator) fetchOne(ctx context.Context, it item.RawItem, delay time.Duration) Result {
	res := Result{ItemID: it.ID}
	if ctx.Err() != nil {
		res.Status = StatusTimeout
		return res
	}

	if h.Robots != nil {
		v := h.Robots.Check(ctx, it.URL)
		if !v.Allowed {
			res.Status = StatusSkippedPolicy
			return res
		}
		if v.CrawlDelay > delay {
			delay = v.CrawlDelay
			if delay > maxCrawlDelay {
				delay = maxCrawlDelay
			}
		}
	}

	hs := h.host(item.Host(it.URL))
	hs.mu.Lock()
	// Politeness: gap measured from the end of the previous request to this
	// host, held under the host lock so no other request jumps the queue.
	if wait := delay - time.Since(hs.lastEnd); wait > 0 && !hs.lastEnd.IsZero() {
		select {
		case <-ctx.Done():
			hs.mu.Unlock()
			res.Status = StatusTimeout
			return res
		case <-time.After(wait):
		}
	}
	out := h.Client.Get(ctx, it.URL)
	hs.lastEnd = time.Now()
	hs.mu.Unlock()

	res.Retries = out.Retries
	res.FinalURL = out.FinalURL
	switch out.Class {
	case fetch.ClassTimeout:
		res.Status = StatusTimeout
		return res
	case fetch.ClassBlocked:
		res.Status = StatusBlocked
		return res
	case fetch.ClassHTTPError:
		res.Status = StatusHTTPError
		return res
	case fetch.ClassConnection:
		res.Status = StatusConnectionError
		return res
	}

	doc := extract.Best(out.Body)
	text := doc.Text
	switch {
	case len(text) == 0:
		res.Status = StatusExtractEmpty
	case !extract.Acceptable(text):
		res.Status = StatusExtractLowQuality
		res.FulltextLen = len(text)
	default:
		res.Status = StatusOK
		res.Fulltext = text
		res.FulltextLen = len(text)
	}
	return res
}

// Apply merges results back into the item list: an item's body is replaced
// only when hydration succeeded and produced strictly longer text. Returns
// the merged list (input order preserved) and a lookup of results by id.
func Apply(items []item.RawItem, results []Result) ([]item.RawItem, map[string]Result) {
	byID := make(map[string]Result, len(results))
	for _, r := range results {
		byID[r.ItemID] = r
	}
	out := make([]item.RawItem, len(items))
	for i, it := range items {
		if r, ok := byID[it.ID]; ok && r.Status == StatusOK && len(r.Fulltext) > len(it.Body) {
			it.Body = r.Fulltext
			it.NeedsFulltext = false
		}
		out[i] = it
	}
	return out, byID
}
