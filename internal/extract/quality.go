package extract

import (
	"strings"
	"unicode"
)

// MinFulltextLen is the floor below which extracted text never counts as a
// successful hydration.
const MinFulltextLen = 400

// MaxJunkRatio is the highest tolerated junk-character ratio for extracted
// text to pass the quality gate.
const MaxJunkRatio = 0.30

// navTokens are short menu words whose repetition marks navigation residue.
var navTokens = map[string]struct{}{
	"home": {}, "menu": {}, "login": {}, "signin": {}, "signup": {},
	"subscribe": {}, "search": {}, "next": {}, "previous": {}, "more": {},
	"share": {}, "comments": {},
}

// JunkRatio measures how much of the text is noise: control characters,
// URL-only lines, and repeated navigation tokens. Ratio is junk runes over
// total runes; empty text is all junk.
func JunkRatio(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 1
	}
	var total, junk int
	navSeen := map[string]int{}
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		runes := len([]rune(line)) + 1
		total += runes
		if trimmed == "" {
			continue
		}
		if isURLOnly(trimmed) {
			junk += runes
			continue
		}
		lower := strings.ToLower(trimmed)
		if _, ok := navTokens[lower]; ok {
			navSeen[lower]++
			// The first sighting may be legitimate prose; repeats are chrome.
			if navSeen[lower] > 1 {
				junk += runes
			}
			continue
		}
		for _, r := range line {
			if unicode.IsControl(r) && r != '\n' && r != '\t' {
				junk++
			}
		}
	}
	if total == 0 {
		return 1
	}
	return float64(junk) / float64(total)
}

// Acceptable reports whether text passes the hydration quality gate.
func Acceptable(text string) bool {
	return len(text) >= MinFulltextLen && JunkRatio(text) < MaxJunkRatio
}

func isURLOnly(line string) bool {
	f := strings.Fields(line)
	if len(f) == 0 {
		return false
	}
	for _, w := range f {
		if !strings.HasPrefix(w, "http://") && !strings.HasPrefix(w, "https://") && !strings.HasPrefix(w, "www.") {
			return false
		}
	}
	return true
}
