package rewrite

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Anchor is a literal substring of the source fulltext, strong enough to
// bind a Chinese sentence to its English evidence. Every anchor satisfies
// the floor of four words and twenty characters.
type Anchor struct {
	Text string
	Kind string // quoted, numeric, proper
	pos  int    // first byte offset in the source text
}

const (
	anchorMinWords = 4
	anchorMinChars = 20
	anchorMaxChars = 160
	maxAnchors     = 8
)

var quotedSpanRe = regexp.MustCompile(`["\x{201C}]([^"\x{201C}\x{201D}]{20,160})["\x{201D}]`)

// unitWords strengthen a numeric sentence into an anchor candidate.
var unitWords = []string{
	"million", "billion", "percent", "%", "users", "employees", "customers",
	"parameters", "tokens", "gb", "tb", "watts", "tflops", "nm", "mw", "gw",
	"downloads", "devices", "units", "quarter", "year-over-year",
}

// MineAnchors extracts ranked anchor candidates from fulltext. Quoted
// spans rank above numeric sentences, which rank above proper-noun
// sentences; ties resolve by position so ranking is deterministic.
func MineAnchors(text string) []Anchor {
	type scored struct {
		a      Anchor
		weight int
	}
	var found []scored
	seen := map[string]bool{}

	add := func(span string, pos int, kind string, weight int) {
		span = strings.TrimSpace(span)
		if !anchorEligible(span) || seen[strings.ToLower(span)] {
			return
		}
		seen[strings.ToLower(span)] = true
		found = append(found, scored{Anchor{Text: span, Kind: kind, pos: pos}, weight})
	}

	for _, m := range quotedSpanRe.FindAllStringSubmatchIndex(text, -1) {
		add(text[m[2]:m[3]], m[2], "quoted", 3)
	}

	for _, s := range splitSentences(text) {
		if utf8.RuneCountInString(s.text) > anchorMaxChars {
			continue
		}
		lower := strings.ToLower(s.text)
		if strings.ContainsFunc(s.text, unicode.IsDigit) && containsAny(lower, unitWords) {
			add(s.text, s.pos, "numeric", 2)
			continue
		}
		if hasProperNounRun(s.text) {
			add(s.text, s.pos, "proper", 1)
		}
	}

	sort.SliceStable(found, func(i, j int) bool {
		if found[i].weight != found[j].weight {
			return found[i].weight > found[j].weight
		}
		return found[i].a.pos < found[j].a.pos
	})
	if len(found) > maxAnchors {
		found = found[:maxAnchors]
	}
	out := make([]Anchor, len(found))
	for i, f := range found {
		out[i] = f.a
	}
	return out
}

func anchorEligible(span string) bool {
	if strings.Contains(span, "…") || strings.Contains(span, "...") {
		return false
	}
	return len(strings.Fields(span)) >= anchorMinWords &&
		utf8.RuneCountInString(span) >= anchorMinChars &&
		utf8.RuneCountInString(span) <= anchorMaxChars
}

type sentence struct {
	text string
	pos  int
}

// splitSentences yields trimmed sentence spans that remain literal
// substrings of the input, which anchor verification depends on.
func splitSentences(text string) []sentence {
	var out []sentence
	start := 0
	flush := func(end int) {
		raw := text[start:end]
		trimmed := strings.TrimSpace(raw)
		if trimmed != "" {
			out = append(out, sentence{text: trimmed, pos: start + strings.Index(raw, trimmed)})
		}
		start = end + 1
	}
	for i, r := range text {
		switch r {
		case '.', '!', '?', '\n':
			flush(i)
		}
	}
	if start < len(text) {
		raw := text[start:]
		trimmed := strings.TrimSpace(raw)
		if trimmed != "" {
			out = append(out, sentence{text: trimmed, pos: start + strings.Index(raw, trimmed)})
		}
	}
	return out
}

// hasProperNounRun reports two or more consecutive capitalized words that
// do not open the sentence, a cheap proper-noun phrase signal.
func hasProperNounRun(s string) bool {
	fields := strings.Fields(s)
	run := 0
	for i, f := range fields {
		r, _ := utf8.DecodeRuneInString(f)
		if unicode.IsUpper(r) && i > 0 {
			run++
			if run >= 2 {
				return true
			}
		} else {
			run = 0
		}
	}
	return false
}

func containsAny(hay string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(hay, n) {
			return true
		}
	}
	return false
}
