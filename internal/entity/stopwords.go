package entity

// enStopwords are English function words excluded from entity candidates.
var enStopwords = map[string]struct{}{
	"a": {}, "about": {}, "above": {}, "after": {}, "again": {}, "against": {},
	"all": {}, "also": {}, "am": {}, "an": {}, "and": {}, "any": {}, "are": {},
	"as": {}, "at": {}, "be": {}, "because": {}, "been": {}, "before": {},
	"being": {}, "below": {}, "between": {}, "both": {}, "but": {}, "by": {},
	"can": {}, "could": {}, "did": {}, "do": {}, "does": {}, "doing": {},
	"down": {}, "during": {}, "each": {}, "few": {}, "for": {}, "from": {},
	"further": {}, "had": {}, "has": {}, "have": {}, "having": {}, "he": {},
	"her": {}, "here": {}, "hers": {}, "him": {}, "his": {}, "how": {},
	"i": {}, "if": {}, "in": {}, "into": {}, "is": {}, "it": {}, "its": {},
	"just": {}, "may": {}, "me": {}, "might": {}, "more": {}, "most": {},
	"must": {}, "my": {}, "new": {}, "no": {}, "nor": {}, "not": {}, "now": {},
	"of": {}, "off": {}, "on": {}, "once": {}, "only": {}, "or": {},
	"other": {}, "our": {}, "out": {}, "over": {}, "own": {}, "per": {},
	"said": {}, "same": {}, "she": {}, "should": {}, "since": {}, "so": {},
	"some": {}, "such": {}, "than": {}, "that": {}, "the": {}, "their": {},
	"them": {}, "then": {}, "there": {}, "these": {}, "they": {}, "this": {},
	"those": {}, "through": {}, "to": {}, "too": {}, "under": {}, "until": {},
	"up": {}, "upon": {}, "us": {}, "very": {}, "was": {}, "we": {},
	"were": {}, "what": {}, "when": {}, "where": {}, "which": {}, "while": {},
	"who": {}, "whom": {}, "why": {}, "will": {}, "with": {}, "would": {},
	"you": {}, "your": {}, "yours": {}, "today": {}, "yesterday": {},
	"week": {}, "month": {}, "year": {}, "says": {}, "say": {}, "report": {},
	"reports": {}, "according": {},
}

// zhStopwords are common CJK function words excluded from candidates.
var zhStopwords = map[string]struct{}{
	"的": {}, "了": {}, "和": {}, "是": {}, "在": {}, "与": {}, "及": {},
	"或": {}, "被": {}, "将": {}, "对": {}, "为": {}, "等": {}, "并": {},
	"也": {}, "有": {}, "从": {}, "以": {}, "其": {}, "该": {}, "此": {},
	"但": {}, "而": {}, "于": {}, "就": {}, "都": {}, "还": {}, "这": {},
	"那": {}, "已": {}, "个": {}, "们": {}, "中": {}, "上": {}, "下": {},
}

// acronymAllowlist recognizes known all-caps entities so they survive the
// Title-Case heuristic.
var acronymAllowlist = map[string]struct{}{
	"AI": {}, "AGI": {}, "API": {}, "AWS": {}, "CEO": {}, "CTO": {},
	"EU": {}, "FDA": {}, "FTC": {}, "GPU": {}, "GPT": {}, "IPO": {},
	"LLM": {}, "ML": {}, "NASA": {}, "NLP": {}, "NPU": {}, "NVIDIA": {},
	"OECD": {}, "SEC": {}, "TPU": {}, "TSMC": {}, "UK": {}, "UN": {},
	"US": {}, "USA": {},
}

// countryAbbrev normalizes country shorthand to one canonical form so
// "U.S." and "US" count as the same entity.
var countryAbbrev = map[string]string{
	"u.s.": "US", "u.s": "US", "us": "US", "usa": "US", "u.s.a.": "US",
	"u.k.": "UK", "uk": "UK", "e.u.": "EU", "eu": "EU",
}
