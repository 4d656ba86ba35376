// Package entity extracts ranked named entities from item text using
// stopword-aware token statistics; no model, reproducible by construction.
package entity

import (
	"sort"
	"strings"
	"unicode"
)

// MaxEntities caps the ranked list.
const MaxEntities = 8

// Entity is one ranked candidate.
type Entity struct {
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
	TypeHint string  `json:"type_hint,omitempty"` // acronym | phrase | term
}

// Extract returns up to MaxEntities candidates scored by
// title_count*3 + body_count, case-insensitively deduplicated, scores
// descending (name ascending on ties for determinism).
func Extract(title, body string) []Entity {
	counts := map[string]*candidate{}
	harvest(title, 3, counts)
	harvest(body, 1, counts)

	out := make([]Entity, 0, len(counts))
	for _, c := range counts {
		out = append(out, Entity{Name: c.display, Score: c.score, TypeHint: c.hint})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > MaxEntities {
		out = out[:MaxEntities]
	}
	return out
}

type candidate struct {
	display string
	score   float64
	hint    string
}

// harvest tokenizes text, merges multi-word Title-Case runs, and adds
// weighted counts into the shared candidate map keyed case-insensitively.
func harvest(text string, weight float64, counts map[string]*candidate) {
	tokens := tokenize(text)
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if tok == "" {
			continue
		}
		// Acronyms pass regardless of casing heuristics.
		if _, ok := acronymAllowlist[strings.ToUpper(tok)]; ok && strings.ToUpper(tok) == tok {
			add(counts, strings.ToUpper(tok), weight, "acronym")
			continue
		}
		if norm, ok := countryAbbrev[strings.ToLower(tok)]; ok {
			add(counts, norm, weight, "acronym")
			continue
		}
		if !isTitleCase(tok) {
			continue
		}
		if isStopword(tok) {
			continue
		}
		// Merge a run of consecutive Title-Case tokens into one phrase.
		j := i
		phrase := []string{stripPossessive(tok)}
		for j+1 < len(tokens) && isTitleCase(tokens[j+1]) && !isStopword(tokens[j+1]) {
			j++
			phrase = append(phrase, stripPossessive(tokens[j]))
		}
		name := strings.Join(phrase, " ")
		hint := "term"
		if len(phrase) > 1 {
			hint = "phrase"
		}
		add(counts, name, weight, hint)
		i = j
	}
}

func add(counts map[string]*candidate, name string, weight float64, hint string) {
	key := strings.ToLower(name)
	c, ok := counts[key]
	if !ok {
		c = &candidate{display: name, hint: hint}
		counts[key] = c
	}
	c.score += weight
}

func tokenize(text string) []string {
	// Dots and apostrophes stay inside tokens ("U.S.", "OpenAI's");
	// everything else non-alphanumeric splits.
	return strings.FieldsFunc(text, func(r rune) bool {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
		return r != '.' && r != '\'' && r != '’'
	})
}

func isTitleCase(tok string) bool {
	tok = strings.TrimSuffix(tok, ".")
	r := []rune(tok)
	if len(r) < 2 {
		return false
	}
	if _, zh := zhStopwords[tok]; zh {
		return false
	}
	return unicode.IsUpper(r[0]) && !allUpper(tok)
}

func allUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

func isStopword(tok string) bool {
	_, en := enStopwords[strings.ToLower(strings.TrimSuffix(tok, "."))]
	if en {
		return true
	}
	_, zh := zhStopwords[tok]
	return zh
}

// stripPossessive removes English possessive suffixes from a token.
func stripPossessive(tok string) string {
	for _, suf := range []string{"'s", "’s", "'", "’"} {
		if strings.HasSuffix(tok, suf) {
			return strings.TrimSuffix(tok, suf)
		}
	}
	return tok
}
