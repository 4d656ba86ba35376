// Package classify assigns each item exactly one of eleven closed
// categories via weighted keyword voting. Rule-based and reproducible:
// identical inputs always produce the identical label and confidence.
package classify

import (
	"sort"
	"strings"
)

// Category is one label of the closed set.
type Category string

const (
	Technology   Category = "technology"
	Startups     Category = "startups_funding"
	AI           Category = "ai"
	Finance      Category = "finance"
	Policy       Category = "policy_regulation"
	Security     Category = "security"
	Health       Category = "health_biomed"
	Climate      Category = "climate_energy"
	Consumer     Category = "consumer_electronics"
	Gaming       Category = "gaming_entertainment"
	General      Category = "general"
)

// Categories lists the closed set in stable order.
var Categories = []Category{
	Technology, Startups, AI, Finance, Policy, Security,
	Health, Climate, Consumer, Gaming, General,
}

// Result is the classification for one item.
type Result struct {
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"` // score_margin / total_score
}

type weightedKeyword struct {
	kw     string
	weight float64
}

// keywordVotes maps each category to its voting keywords. Title hits count
// double; weights favor unambiguous markers over generic ones.
var keywordVotes = map[Category][]weightedKeyword{
	AI: {
		{"artificial intelligence", 3}, {" ai ", 2}, {"machine learning", 3},
		{"large language model", 3}, {"llm", 2}, {"neural", 2}, {"gpt", 2},
		{"chatbot", 2}, {"inference", 1}, {"training run", 2}, {"agentic", 2},
		{"foundation model", 3}, {"transformer", 1},
	},
	Startups: {
		{"startup", 3}, {"seed round", 3}, {"series a", 3}, {"series b", 3},
		{"series c", 3}, {"venture capital", 3}, {"raises", 2}, {"valuation", 2},
		{"founder", 2}, {"accelerator", 2}, {"funding round", 3},
	},
	Finance: {
		{"earnings", 3}, {"revenue", 2}, {"stock", 2}, {"shares", 2},
		{"market cap", 2}, {"ipo", 2}, {"quarterly", 2}, {"profit", 2},
		{"dividend", 3}, {"acquisition", 2}, {"merger", 2},
	},
	Policy: {
		{"regulation", 3}, {"regulator", 3}, {"lawmaker", 3}, {"antitrust", 3},
		{"legislation", 3}, {"compliance", 2}, {"ban", 1}, {"export control", 3},
		{"ruling", 2}, {"lawsuit", 2}, {"congress", 2}, {"parliament", 2},
	},
	Security: {
		{"vulnerability", 3}, {"exploit", 3}, {"breach", 3}, {"ransomware", 3},
		{"malware", 3}, {"phishing", 3}, {"zero-day", 3}, {"cve-", 3},
		{"patch", 1}, {"attacker", 2}, {"infosec", 3},
	},
	Health: {
		{"clinical", 3}, {"fda", 2}, {"drug", 2}, {"biotech", 3},
		{"genomic", 3}, {"patient", 2}, {"diagnosis", 2}, {"vaccine", 3},
		{"medical", 2}, {"trial results", 3},
	},
	Climate: {
		{"climate", 3}, {"carbon", 2}, {"renewable", 3}, {"solar", 2},
		{"battery", 1}, {"emissions", 3}, {"grid", 1}, {"nuclear", 2},
		{"geothermal", 3}, {"energy storage", 3},
	},
	Consumer: {
		{"smartphone", 3}, {"wearable", 3}, {"headset", 2}, {"laptop", 2},
		{"tablet", 2}, {"earbuds", 3}, {"smart home", 3}, {"handset", 3},
		{"teardown", 2},
	},
	Gaming: {
		{"game studio", 3}, {"gaming", 2}, {"console", 2}, {"esports", 3},
		{"streaming service", 2}, {"box office", 3}, {"playstation", 3},
		{"xbox", 3}, {"nintendo", 3}, {"gamer", 2},
	},
	Technology: {
		{"chip", 2}, {"semiconductor", 3}, {"cloud", 1}, {"data center", 2},
		{"datacenter", 2}, {"open source", 2}, {"software", 1}, {"developer", 1},
		{"infrastructure", 1}, {"quantum", 2}, {"robotics", 2}, {"api", 1},
	},
}

// Classify votes keywords over title (double weight) and body and returns
// the argmax category with confidence = (top − runnerUp) / total. When no
// keyword fires the item is General with zero confidence.
func Classify(title, body string) Result {
	titleHay := " " + strings.ToLower(title) + " "
	bodyHay := " " + strings.ToLower(body) + " "

	scores := map[Category]float64{}
	var total float64
	for cat, kws := range keywordVotes {
		for _, wk := range kws {
			v := float64(strings.Count(titleHay, wk.kw))*2 + float64(strings.Count(bodyHay, wk.kw))
			if v > 0 {
				scores[cat] += v * wk.weight
			}
		}
		total += scores[cat]
	}
	if total == 0 {
		return Result{Category: General, Confidence: 0}
	}

	type scored struct {
		cat   Category
		score float64
	}
	ranked := make([]scored, 0, len(scores))
	for c, s := range scores {
		ranked = append(ranked, scored{c, s})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].cat < ranked[j].cat
	})
	top := ranked[0]
	var runnerUp float64
	if len(ranked) > 1 {
		runnerUp = ranked[1].score
	}
	return Result{Category: top.cat, Confidence: (top.score - runnerUp) / total}
}
