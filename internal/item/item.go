// Package item holds the canonical item representation shared by every
// pipeline stage: identity, URL canonicalization, and fingerprints.
package item

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

// RawItem is the canonical representation of one collected candidate.
// It is created by the collector and never mutated afterwards, except
// that hydration may replace Body with longer extracted fulltext.
type RawItem struct {
	ID           string    `json:"id"`
	SourceName   string    `json:"source_name"`
	Platform     string    `json:"platform"`
	URL          string    `json:"url"`
	CanonicalURL string    `json:"canonical_url"`
	Title        string    `json:"title"`
	Body         string    `json:"body"`
	PublishedAt  time.Time `json:"published_at"`
	Lang         string    `json:"lang"`

	// Frontier is the composite 0–100 recency/importance/reputation score.
	Frontier float64 `json:"frontier"`
	// DateSource records which rung of the date-resolution ladder produced
	// PublishedAt; collected into published_at_source_counts for audit.
	DateSource string `json:"date_source,omitempty"`
	// NeedsFulltext marks items whose body is too short to score on and
	// should be hydrated from the article URL.
	NeedsFulltext bool `json:"needs_fulltext,omitempty"`
}

// NewID derives a stable item id from the canonical URL and title. The id is
// reproducible across runs so snapshots and dedup stay aligned.
func NewID(canonicalURL, title string) string {
	h := sha256.Sum256([]byte(canonicalURL + "\n" + strings.TrimSpace(title)))
	return hex.EncodeToString(h[:12])
}

// Sort orders items by (published_at desc, id asc). Every stage whose output
// depends on input order sorts with this first so runs are reproducible.
func Sort(items []RawItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].PublishedAt.Equal(items[j].PublishedAt) {
			return items[i].PublishedAt.After(items[j].PublishedAt)
		}
		return items[i].ID < items[j].ID
	})
}
