package collect

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hyperifyio/execbrief/internal/fetch"
	"github.com/hyperifyio/execbrief/internal/item"
)

// fakeGetter serves canned bodies by URL.
type fakeGetter struct {
	bodies map[string]string
}

func (f *fakeGetter) Get(_ context.Context, url string) fetch.Outcome {
	body, ok := f.bodies[url]
	if !ok {
		return fetch.Outcome{Class: fetch.ClassHTTPError, Err: fmt.Errorf("unexpected status: 404")}
	}
	return fetch.Outcome{Class: fetch.ClassOK, Body: []byte(body), FinalURL: url, Status: 200}
}

const rssFixture = `<?xml version="1.0"?>
<rss version="2.0"><channel>
  <title>Feed</title>
  <pubDate>Wed, 19 Aug 2026 08:00:00 +0000</pubDate>
  <item>
    <title>Vendor launches new model</title>
    <link>https://news.example.com/a?utm_source=rss</link>
    <description>The vendor announced a new model release today.</description>
    <pubDate>Thu, 20 Aug 2026 09:00:00 +0000</pubDate>
  </item>
  <item>
    <title>Undated story</title>
    <link>https://news.example.com/b</link>
    <description>No pubDate on this one.</description>
  </item>
</channel></rss>`

func testClock() time.Time {
	return time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
}

func TestCollect_RSSDateLadderAndMeta(t *testing.T) {
	g := &fakeGetter{bodies: map[string]string{"https://feed.example.com/rss": rssFixture}}
	c := &Collector{Getter: g, Now: testClock()}
	cfg := SourcesConfig{Sources: []Source{{Name: "news", Platform: "rss", URL: "https://feed.example.com/rss", Reputation: 0.8}}}

	items, meta, err := c.Collect(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	if meta.TotalItems != 2 || meta.ByPlatform["rss"] != 2 {
		t.Fatalf("meta totals wrong: %+v", meta)
	}
	if meta.PublishedAtSourceCounts[DateSourceItem] != 1 || meta.PublishedAtSourceCounts[DateSourceFeed] != 1 {
		t.Fatalf("date ladder counts = %v", meta.PublishedAtSourceCounts)
	}
	// Canonicalization strips the utm parameter.
	for _, it := range items {
		if strings.Contains(it.CanonicalURL, "utm_source") {
			t.Fatalf("tracking param survived canonicalization: %s", it.CanonicalURL)
		}
	}
}

func TestCollect_SourceFailureIsRecordedNotRaised(t *testing.T) {
	g := &fakeGetter{bodies: map[string]string{"https://feed.example.com/rss": rssFixture}}
	c := &Collector{Getter: g, Now: testClock()}
	cfg := SourcesConfig{Sources: []Source{
		{Name: "dead", Platform: "rss", URL: "https://gone.example.com/rss", Reputation: 0.5},
		{Name: "news", Platform: "rss", URL: "https://feed.example.com/rss", Reputation: 0.8},
	}}
	items, meta, err := c.Collect(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("healthy source items lost: %d", len(items))
	}
	if _, ok := meta.SourceErrors["dead"]; !ok {
		t.Fatalf("dead source error not recorded: %v", meta.SourceErrors)
	}
}

func TestCollect_APIPlatform(t *testing.T) {
	api := `{"items":[{"title":"T","url":"https://api.example.com/story","body":"Body text","published_at":"2026-08-20T10:00:00Z","lang":"en"}]}`
	g := &fakeGetter{bodies: map[string]string{"https://api.example.com/v1/news": api}}
	c := &Collector{Getter: g, Now: testClock()}
	cfg := SourcesConfig{Sources: []Source{{Name: "api", Platform: "api", URL: "https://api.example.com/v1/news", Reputation: 0.6}}}
	items, _, err := c.Collect(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(items) != 1 || items[0].Title != "T" || items[0].DateSource != DateSourceItem {
		t.Fatalf("unexpected api items: %+v", items)
	}
}

func TestCollect_HTMLIndexHarvestsHeadlineLinks(t *testing.T) {
	page := `<html><head>
	  <meta property="article:published_time" content="2026-08-20T08:30:00Z">
	</head><body>
	  <a href="/story/one">A headline long enough to count as a story link</a>
	  <a href="/nav">Nav</a>
	</body></html>`
	g := &fakeGetter{bodies: map[string]string{"https://site.example.com/news": page}}
	c := &Collector{Getter: g, Now: testClock()}
	cfg := SourcesConfig{Sources: []Source{{Name: "site", Platform: "html", URL: "https://site.example.com/news", Reputation: 0.4}}}
	items, meta, err := c.Collect(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1 (short links skipped)", len(items))
	}
	if items[0].URL != "https://site.example.com/story/one" {
		t.Fatalf("relative link not resolved: %s", items[0].URL)
	}
	if !items[0].NeedsFulltext {
		t.Fatalf("html item should need fulltext")
	}
	if meta.PublishedAtSourceCounts[DateSourceHTMLMeta] != 1 {
		t.Fatalf("html meta date rung not used: %v", meta.PublishedAtSourceCounts)
	}
}

func TestCollect_FilePlatformRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pool.jsonl")
	line := `{"source_name":"snap","platform":"rss","url":"https://news.example.com/x","title":"Snapshot story","body":"text","published_at":"2026-08-20T07:00:00Z","lang":"en"}`
	if err := os.WriteFile(path, []byte(line+"\n\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c := &Collector{Now: testClock()}
	cfg := SourcesConfig{Sources: []Source{{Name: "file", Platform: "file", URL: path, Reputation: 0.5}}}
	items, _, err := c.Collect(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(items) != 1 || items[0].ID == "" || items[0].CanonicalURL == "" {
		t.Fatalf("file item not normalized: %+v", items)
	}
}

func TestFrontierScore_BonusOnlyFromCanonicalFields(t *testing.T) {
	now := testClock()
	base := item.RawItem{Title: "Quiet infrastructure note", PublishedAt: now.Add(-2 * time.Hour)}
	deep := base
	deep.Body = strings.Repeat("filler ", 60) + "generally available"
	lead := base
	lead.Body = "The product is generally available today. " + strings.Repeat("filler ", 60)

	sDeep := FrontierScore(deep, 0.5, now)
	sLead := FrontierScore(lead, 0.5, now)
	if sLead <= sDeep {
		t.Fatalf("release signal outside canonical prefix scored: deep=%f lead=%f", sDeep, sLead)
	}
}

func TestFrontierScore_RecencyDecays(t *testing.T) {
	now := testClock()
	fresh := item.RawItem{Title: "t", PublishedAt: now.Add(-time.Hour)}
	stale := item.RawItem{Title: "t", PublishedAt: now.Add(-100 * time.Hour)}
	if FrontierScore(fresh, 0.5, now) <= FrontierScore(stale, 0.5, now) {
		t.Fatalf("recency did not decay")
	}
}

func TestLoadSources_Validation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sources.yaml")
	good := "sources:\n  - name: a\n    platform: rss\n    url: https://a.example/feed\n"
	if err := os.WriteFile(path, []byte(good), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadSources(path)
	if err != nil {
		t.Fatalf("LoadSources: %v", err)
	}
	if cfg.Sources[0].Reputation != 0.5 {
		t.Fatalf("default reputation not applied: %f", cfg.Sources[0].Reputation)
	}

	bad := "sources:\n  - name: a\n    platform: carrier-pigeon\n    url: https://a.example\n"
	if err := os.WriteFile(path, []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSources(path); err == nil {
		t.Fatalf("unknown platform accepted")
	}
}
