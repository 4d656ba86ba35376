package rewrite

import (
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

// ZhRatio returns CJK characters divided by total non-space characters.
// Fullwidth Latin forms fold to their narrow equivalents first so they do
// not masquerade as CJK text.
func ZhRatio(s string) float64 {
	folded := width.Fold.String(s)
	var cjk, total int
	for _, r := range folded {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.Is(unicode.Han, r) {
			cjk++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(cjk) / float64(total)
}

// Banned output phrases. Ellipsis in any form and hollow advisory
// boilerplate are refused at generation time and re-scanned by the gate
// engine over the rendered text.
var bannedPhrases = []string{
	"…",
	"...",
	"Evidence summary: sources=",
	"值得关注",
	"拭目以待",
	"让我们期待",
	"总而言之",
	"综上所述",
	"不容小觑",
	"in conclusion, it remains to be seen",
	"stay tuned",
	"only time will tell",
}

// BannedPhrases exposes the stoplist for rendered-text scans.
func BannedPhrases() []string {
	out := make([]string, len(bannedPhrases))
	copy(out, bannedPhrases)
	return out
}

// ScanBanned returns the first banned phrase found in s, if any.
func ScanBanned(s string) (string, bool) {
	lower := strings.ToLower(s)
	for _, p := range bannedPhrases {
		if strings.Contains(lower, strings.ToLower(p)) {
			return p, true
		}
	}
	return "", false
}

// CountEllipsis counts ellipsis occurrences, the one ban tracked as its
// own meta counter.
func CountEllipsis(s string) int {
	return strings.Count(s, "…") + strings.Count(s, "...")
}
