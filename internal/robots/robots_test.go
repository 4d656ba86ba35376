package robots

import (
	"context"
	"testing"
	"time"

	"github.com/hyperifyio/execbrief/internal/fetch"
)

// fakeGetter serves canned robots bodies by URL and counts fetches.
type fakeGetter struct {
	bodies map[string]string
	status int
	calls  int
}

func (f *fakeGetter) Get(_ context.Context, url string) fetch.Outcome {
	f.calls++
	body, ok := f.bodies[url]
	if !ok {
		return fetch.Outcome{Status: 404}
	}
	status := f.status
	if status == 0 {
		status = 200
	}
	return fetch.Outcome{Status: status, Body: []byte(body)}
}

const newsRobots = `# news site
User-agent: *
Disallow: /private/
Disallow: /search
Allow: /private/press/
Crawl-delay: 2

User-agent: badbot
Disallow: /
`

func newsChecker(t *testing.T) (*Checker, *fakeGetter) {
	t.Helper()
	g := &fakeGetter{bodies: map[string]string{
		"https://news.example.com/robots.txt": newsRobots,
	}}
	return &Checker{Getter: g, UserAgent: "execbrief/1.0"}, g
}

func TestCheck_DisallowedPath(t *testing.T) {
	c, _ := newsChecker(t)
	v := c.Check(context.Background(), "https://news.example.com/private/report.html")
	if v.Allowed {
		t.Fatalf("disallowed path was allowed")
	}
}

func TestCheck_MoreSpecificAllowWins(t *testing.T) {
	c, _ := newsChecker(t)
	v := c.Check(context.Background(), "https://news.example.com/private/press/launch.html")
	if !v.Allowed {
		t.Fatalf("specific allow lost to broader disallow")
	}
}

func TestCheck_CrawlDelaySurfaces(t *testing.T) {
	c, _ := newsChecker(t)
	v := c.Check(context.Background(), "https://news.example.com/stories/1")
	if !v.Allowed {
		t.Fatalf("clean path blocked")
	}
	if v.CrawlDelay != 2*time.Second {
		t.Fatalf("crawl delay = %v, want 2s", v.CrawlDelay)
	}
}

func TestCheck_NamedAgentGroupWins(t *testing.T) {
	g := &fakeGetter{bodies: map[string]string{
		"https://news.example.com/robots.txt": newsRobots,
	}}
	c := &Checker{Getter: g, UserAgent: "badbot/2.0"}
	v := c.Check(context.Background(), "https://news.example.com/stories/1")
	if v.Allowed {
		t.Fatalf("named agent group did not override wildcard")
	}
}

func TestCheck_MissingRobotsAllows(t *testing.T) {
	g := &fakeGetter{bodies: map[string]string{}}
	c := &Checker{Getter: g, UserAgent: "execbrief/1.0"}
	v := c.Check(context.Background(), "https://bare.example.com/story")
	if !v.Allowed {
		t.Fatalf("missing robots.txt must allow")
	}
}

func TestCheck_CachesPerHost(t *testing.T) {
	c, g := newsChecker(t)
	for i := 0; i < 5; i++ {
		c.Check(context.Background(), "https://news.example.com/stories/1")
	}
	if g.calls != 1 {
		t.Fatalf("robots fetched %d times, want 1", g.calls)
	}
}

func TestCheck_CacheExpires(t *testing.T) {
	c, g := newsChecker(t)
	c.TTL = time.Minute
	clock := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	c.Check(context.Background(), "https://news.example.com/stories/1")
	clock = clock.Add(2 * time.Minute)
	c.Check(context.Background(), "https://news.example.com/stories/1")
	if g.calls != 2 {
		t.Fatalf("expired rules not refetched: calls = %d", g.calls)
	}
}

func TestCheck_BadURLBlocked(t *testing.T) {
	c, _ := newsChecker(t)
	for _, u := range []string{"ftp://news.example.com/x", "://bad", ""} {
		if v := c.Check(context.Background(), u); v.Allowed {
			t.Fatalf("unfetchable url %q allowed", u)
		}
	}
}

func TestMatch_Patterns(t *testing.T) {
	cases := []struct {
		pattern, path string
		want          bool
	}{
		{"/private/", "/private/x", true},
		{"/private/", "/privates", false},
		{"/*.pdf$", "/docs/report.pdf", true},
		{"/*.pdf$", "/docs/report.pdfx", false},
		{"/search", "/search?q=ai", true},
		{"/", "/anything", true},
	}
	for _, tc := range cases {
		if got := match(tc.pattern, tc.path); got != tc.want {
			t.Fatalf("match(%q, %q) = %v, want %v", tc.pattern, tc.path, got, tc.want)
		}
	}
}
