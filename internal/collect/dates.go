package collect

import (
	"strings"
	"time"
)

// Date-resolution ladder rungs, recorded per item for audit.
const (
	DateSourceItem     = "item_published"
	DateSourceFeed     = "feed_pubdate"
	DateSourceHTMLMeta = "html_meta"
	DateSourceNow      = "now_utc"
)

// metaDateKeys are the meta tags consulted on the html rung, in order.
var metaDateKeys = []string{
	"article:published_time", "datePublished", "og:published_time", "date",
}

var dateLayouts = []string{
	time.RFC3339, time.RFC1123Z, time.RFC1123,
	"2006-01-02T15:04:05Z0700", "2006-01-02 15:04:05", "2006-01-02",
}

// parseLooseDate parses the date formats feeds and meta tags actually emit.
func parseLooseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// resolveDate walks the ladder: explicit item time, feed-level time, a
// meta-tag string, then now. The returned source names the rung used.
func resolveDate(itemTime, feedTime *time.Time, metaRaw string, now time.Time) (time.Time, string) {
	if itemTime != nil && !itemTime.IsZero() {
		return itemTime.UTC(), DateSourceItem
	}
	if feedTime != nil && !feedTime.IsZero() {
		return feedTime.UTC(), DateSourceFeed
	}
	if t, ok := parseLooseDate(metaRaw); ok {
		return t, DateSourceHTMLMeta
	}
	return now.UTC(), DateSourceNow
}
