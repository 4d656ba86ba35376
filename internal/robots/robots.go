// Package robots evaluates robots.txt for the fulltext hydrator. Article
// pages are fetched from arbitrary news hosts, so every fetch first asks
// the host's robots.txt whether our agent may read the path and whether
// the host requests a longer crawl delay than our own politeness gap.
package robots

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/execbrief/internal/fetch"
)

// Getter is the fetch surface the checker needs; tests inject it. The
// production client deduplicates robots.txt requests through its HTTP
// cache, so one host costs one fetch per cache lifetime.
type Getter interface {
	Get(ctx context.Context, url string) fetch.Outcome
}

// Verdict is the answer for one page URL.
type Verdict struct {
	Allowed    bool
	CrawlDelay time.Duration // zero when the host sets none
}

// Checker fetches, parses and caches per-host robots rules.
type Checker struct {
	Getter    Getter
	UserAgent string
	// TTL bounds how long parsed rules are reused. Zero means 30 minutes.
	TTL time.Duration

	mu    sync.Mutex
	hosts map[string]hostEntry
	// now is the cache clock; nil means time.Now. Fixed in tests.
	now func() time.Time
}

type hostEntry struct {
	rules  rules
	expiry time.Time
}

type rules struct {
	groups []group
}

type group struct {
	agents     []string
	allow      []string
	disallow   []string
	crawlDelay time.Duration
}

// Check resolves the robots verdict for pageURL. An unreachable or
// missing robots.txt allows the fetch; only an explicit disallow for our
// agent blocks it.
func (c *Checker) Check(ctx context.Context, pageURL string) Verdict {
	u, err := url.Parse(pageURL)
	if err != nil || u.Hostname() == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return Verdict{Allowed: false}
	}

	r, err := c.hostRules(ctx, u)
	if err != nil {
		log.Debug().Err(err).Str("host", u.Hostname()).Msg("robots unavailable, allowing")
		return Verdict{Allowed: true}
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	g, ok := r.groupFor(c.UserAgent)
	if !ok {
		return Verdict{Allowed: true}
	}
	return Verdict{Allowed: g.allows(path), CrawlDelay: g.crawlDelay}
}

func (c *Checker) hostRules(ctx context.Context, u *url.URL) (rules, error) {
	key := u.Scheme + "://" + u.Host
	nowFn := c.now
	if nowFn == nil {
		nowFn = time.Now
	}

	c.mu.Lock()
	if ent, ok := c.hosts[key]; ok && nowFn().Before(ent.expiry) {
		c.mu.Unlock()
		return ent.rules, nil
	}
	c.mu.Unlock()

	out := c.Getter.Get(ctx, key+"/robots.txt")
	if out.Err != nil {
		return rules{}, out.Err
	}
	if out.Status < 200 || out.Status > 299 {
		return rules{}, fmt.Errorf("robots status %d", out.Status)
	}
	r := parse(string(out.Body))

	ttl := c.TTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	c.mu.Lock()
	if c.hosts == nil {
		c.hosts = map[string]hostEntry{}
	}
	c.hosts[key] = hostEntry{rules: r, expiry: nowFn().Add(ttl)}
	c.mu.Unlock()
	return r, nil
}

func parse(text string) rules {
	var groups []group
	cur := group{}
	dirty := false
	flush := func() {
		if dirty {
			groups = append(groups, cur)
		}
		cur = group{}
		dirty = false
	}
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.TrimSpace(val)
		switch key {
		case "user-agent":
			// A user-agent line after directives starts a new group.
			if len(cur.allow)+len(cur.disallow) > 0 || cur.crawlDelay > 0 {
				flush()
			}
			cur.agents = append(cur.agents, strings.ToLower(val))
			dirty = true
		case "allow":
			cur.allow = append(cur.allow, val)
			dirty = true
		case "disallow":
			cur.disallow = append(cur.disallow, val)
			dirty = true
		case "crawl-delay":
			if d, err := time.ParseDuration(val + "s"); err == nil && d > 0 {
				cur.crawlDelay = d
				dirty = true
			}
		}
	}
	flush()
	return rules{groups: groups}
}

// groupFor picks the group with the longest agent token contained in our
// user agent; the wildcard group loses to any named match.
func (r rules) groupFor(userAgent string) (group, bool) {
	ua := strings.ToLower(userAgent)
	best := -1
	bestScore := -1
	for i, g := range r.groups {
		for _, agent := range g.agents {
			var score int
			switch {
			case agent == "*":
				score = 0
			case agent != "" && strings.Contains(ua, agent):
				score = len(agent)
			default:
				continue
			}
			if score > bestScore {
				bestScore = score
				best = i
			}
		}
	}
	if best < 0 {
		return group{}, false
	}
	return r.groups[best], true
}

// allows applies the most specific matching directive; on a specificity
// tie Allow wins. No matching directive means allowed.
func (g group) allows(path string) bool {
	bestScore := -1
	bestAllow := true
	consider := func(patterns []string, isAllow bool) {
		for _, p := range patterns {
			if p == "" || !match(p, path) {
				continue
			}
			score := len(strings.ReplaceAll(strings.TrimSuffix(p, "$"), "*", ""))
			if score > bestScore || (score == bestScore && isAllow && !bestAllow) {
				bestScore = score
				bestAllow = isAllow
			}
		}
	}
	consider(g.disallow, false)
	consider(g.allow, true)
	return bestScore < 0 || bestAllow
}

// match implements robots pattern semantics: anchored at the start, '*'
// matches any run, trailing '$' anchors the end.
func match(pattern, path string) bool {
	anchored := strings.HasSuffix(pattern, "$")
	p := strings.TrimSuffix(pattern, "$")
	var b strings.Builder
	b.WriteString("^")
	for _, r := range p {
		if r == '*' {
			b.WriteString(".*")
		} else {
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	if anchored {
		b.WriteString("$")
	}
	re, err := regexp.Compile(b.String())
	if err != nil {
		return false
	}
	return re.MatchString(path)
}
