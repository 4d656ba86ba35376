package collect

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/execbrief/internal/extract"
	"github.com/hyperifyio/execbrief/internal/fetch"
	"github.com/hyperifyio/execbrief/internal/item"
)

// Getter is the minimal fetch surface the collector needs; tests inject it.
type Getter interface {
	Get(ctx context.Context, url string) fetch.Outcome
}

// Meta is the CollectionMeta audit record for one Z0 pass.
type Meta struct {
	GeneratedAt             time.Time      `json:"generated_at"`
	TotalItems              int            `json:"total_items"`
	FrontierGE70            int            `json:"frontier_ge_70"`
	FrontierGE85            int            `json:"frontier_ge_85"`
	FrontierGE70Last72h     int            `json:"frontier_ge_70_72h"`
	FrontierGE85Last72h     int            `json:"frontier_ge_85_72h"`
	ByPlatform              map[string]int `json:"by_platform"`
	FrontierHistogram       []int          `json:"frontier_histogram"` // 10 buckets of width 10
	PublishedAtSourceCounts map[string]int `json:"published_at_source_counts"`
	SourceErrors            map[string]string `json:"source_errors,omitempty"`
}

// Collector drives one Z0 pass over the configured sources.
type Collector struct {
	Getter Getter
	// Now is the run clock; zero means time.Now. Fixed in tests for
	// deterministic frontier scores.
	Now time.Time
	// MaxItemsPerSource caps how many items one source may contribute.
	// Zero means 200.
	MaxItemsPerSource int
}

func (c *Collector) now() time.Time {
	if c.Now.IsZero() {
		return time.Now().UTC()
	}
	return c.Now.UTC()
}

// Collect fetches every source, parses per platform, deduplicates by id,
// computes frontier scores, and returns the pooled items with audit meta.
// Source failures are recorded in the meta, never raised; one dead feed
// must not sink the pool.
func (c *Collector) Collect(ctx context.Context, cfg SourcesConfig) ([]item.RawItem, Meta, error) {
	now := c.now()
	meta := Meta{
		GeneratedAt:             now,
		ByPlatform:              map[string]int{},
		FrontierHistogram:       make([]int, 10),
		PublishedAtSourceCounts: map[string]int{},
		SourceErrors:            map[string]string{},
	}
	perSource := c.MaxItemsPerSource
	if perSource <= 0 {
		perSource = 200
	}

	seen := map[string]struct{}{}
	var pool []item.RawItem
	for _, src := range cfg.Sources {
		if ctx.Err() != nil {
			return nil, meta, ctx.Err()
		}
		items, err := c.collectSource(ctx, src, now)
		if err != nil {
			log.Warn().Err(err).Str("source", src.Name).Msg("source collection failed")
			meta.SourceErrors[src.Name] = err.Error()
			continue
		}
		if len(items) > perSource {
			items = items[:perSource]
		}
		for _, it := range items {
			if _, dup := seen[it.ID]; dup {
				continue
			}
			seen[it.ID] = struct{}{}
			it.Frontier = FrontierScore(it, src.Reputation, now)
			pool = append(pool, it)
			meta.ByPlatform[src.Platform]++
			meta.PublishedAtSourceCounts[it.DateSource]++
		}
	}

	item.Sort(pool)
	meta.TotalItems = len(pool)
	for _, it := range pool {
		bucket := int(it.Frontier) / 10
		if bucket > 9 {
			bucket = 9
		}
		meta.FrontierHistogram[bucket]++
		recent := now.Sub(it.PublishedAt) <= 72*time.Hour
		if it.Frontier >= 70 {
			meta.FrontierGE70++
			if recent {
				meta.FrontierGE70Last72h++
			}
		}
		if it.Frontier >= 85 {
			meta.FrontierGE85++
			if recent {
				meta.FrontierGE85Last72h++
			}
		}
	}
	log.Info().Int("total", meta.TotalItems).Int("frontier_ge_85_72h", meta.FrontierGE85Last72h).
		Msg("collection complete")
	return pool, meta, nil
}

func (c *Collector) collectSource(ctx context.Context, src Source, now time.Time) ([]item.RawItem, error) {
	if src.Platform == "file" {
		return readItemsFile(src, now)
	}
	if c.Getter == nil {
		return nil, fmt.Errorf("no fetch client configured")
	}
	out := c.Getter.Get(ctx, src.URL)
	if out.Class != fetch.ClassOK {
		return nil, fmt.Errorf("fetch %s: %w", src.URL, out.Err)
	}
	switch src.Platform {
	case "rss", "atom", "jsonfeed":
		return parseFeed(src, out.Body, now)
	case "api":
		return parseAPI(src, out.Body, now)
	case "html":
		return parseHTMLIndex(src, out.Body, now)
	default:
		return nil, fmt.Errorf("unknown platform %q", src.Platform)
	}
}

// parseFeed handles RSS, Atom, and JSON Feed via gofeed's format sniffing.
func parseFeed(src Source, body []byte, now time.Time) ([]item.RawItem, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	feedTime := feed.PublishedParsed
	if feedTime == nil {
		feedTime = feed.UpdatedParsed
	}
	items := make([]item.RawItem, 0, len(feed.Items))
	for _, fi := range feed.Items {
		if fi == nil || strings.TrimSpace(fi.Link) == "" {
			continue
		}
		itemTime := fi.PublishedParsed
		if itemTime == nil {
			itemTime = fi.UpdatedParsed
		}
		published, dateSource := resolveDate(itemTime, feedTime, "", now)
		text := strings.TrimSpace(fi.Content)
		if text == "" {
			text = strings.TrimSpace(fi.Description)
		}
		items = append(items, newItem(src, fi.Link, fi.Title, text, published, dateSource))
	}
	return items, nil
}

// apiItem is the JSON shape accepted from api-platform endpoints.
type apiItem struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Body        string `json:"body"`
	PublishedAt string `json:"published_at"`
	Lang        string `json:"lang"`
}

func parseAPI(src Source, body []byte, now time.Time) ([]item.RawItem, error) {
	var raw []apiItem
	if err := json.Unmarshal(body, &raw); err != nil {
		// Accept the {"items": [...]} envelope too.
		var wrapped struct {
			Items []apiItem `json:"items"`
		}
		if err2 := json.Unmarshal(body, &wrapped); err2 != nil {
			return nil, fmt.Errorf("parse api response: %w", err)
		}
		raw = wrapped.Items
	}
	items := make([]item.RawItem, 0, len(raw))
	for _, a := range raw {
		if strings.TrimSpace(a.URL) == "" {
			continue
		}
		var itemTime *time.Time
		if t, ok := parseLooseDate(a.PublishedAt); ok {
			itemTime = &t
		}
		published, dateSource := resolveDate(itemTime, nil, "", now)
		it := newItem(src, a.URL, a.Title, a.Body, published, dateSource)
		if a.Lang != "" {
			it.Lang = strings.ToLower(a.Lang)
		}
		items = append(items, it)
	}
	return items, nil
}

// parseHTMLIndex harvests story links from a listing page. Link text is the
// working title; bodies hydrate later. The page's own meta date seeds the
// ladder's html rung for all harvested links.
func parseHTMLIndex(src Source, body []byte, now time.Time) ([]item.RawItem, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html index: %w", err)
	}
	base, err := url.Parse(src.URL)
	if err != nil {
		return nil, fmt.Errorf("parse source url: %w", err)
	}
	metaDate := extract.MetaContent(body, metaDateKeys...)

	const maxLinks = 30
	var items []item.RawItem
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		title := strings.TrimSpace(s.Text())
		// Headline links carry real sentence-length text; chrome does not.
		if len(title) < 20 {
			return true
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return true
		}
		abs := base.ResolveReference(ref)
		if abs.Host == "" || (abs.Scheme != "http" && abs.Scheme != "https") {
			return true
		}
		published, dateSource := resolveDate(nil, nil, metaDate, now)
		it := newItem(src, abs.String(), title, "", published, dateSource)
		it.NeedsFulltext = true
		items = append(items, it)
		return len(items) < maxLinks
	})
	return items, nil
}

// readItemsFile loads a JSONL pool, one RawItem per line. Used by the file
// platform for offline runs and fixtures; the snapshot format is identical.
func readItemsFile(src Source, now time.Time) ([]item.RawItem, error) {
	f, err := os.Open(src.URL)
	if err != nil {
		return nil, fmt.Errorf("open items file: %w", err)
	}
	defer f.Close()
	var items []item.RawItem
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 256*1024), 4*1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var it item.RawItem
		if err := json.Unmarshal(line, &it); err != nil {
			return nil, fmt.Errorf("parse items file line: %w", err)
		}
		if it.CanonicalURL == "" {
			it.CanonicalURL = item.CanonicalURL(it.URL)
		}
		if it.ID == "" {
			it.ID = item.NewID(it.CanonicalURL, it.Title)
		}
		if it.SourceName == "" {
			it.SourceName = src.Name
		}
		if it.DateSource == "" {
			it.DateSource = DateSourceItem
		}
		if it.PublishedAt.IsZero() {
			it.PublishedAt = now
			it.DateSource = DateSourceNow
		}
		it.NeedsFulltext = len(it.Body) < extract.MinFulltextLen
		items = append(items, it)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read items file: %w", err)
	}
	return items, nil
}

func newItem(src Source, rawURL, title, body string, published time.Time, dateSource string) item.RawItem {
	canonical := item.CanonicalURL(rawURL)
	lang := strings.ToLower(src.Lang)
	if lang == "" {
		lang = "en"
	}
	return item.RawItem{
		ID:            item.NewID(canonical, title),
		SourceName:    src.Name,
		Platform:      src.Platform,
		URL:           rawURL,
		CanonicalURL:  canonical,
		Title:         strings.TrimSpace(title),
		Body:          body,
		PublishedAt:   published,
		Lang:          lang,
		DateSource:    dateSource,
		NeedsFulltext: len(body) < extract.MinFulltextLen,
	}
}
