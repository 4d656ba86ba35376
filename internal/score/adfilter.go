package score

import "regexp"

// adPatterns mark promotional or sponsored copy. A single hit sets ad_flag;
// the event gate then excludes the item outright.
var adPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bsponsored\b`),
	regexp.MustCompile(`(?i)\badvertorial\b`),
	regexp.MustCompile(`(?i)\bpaid\s+partnership\b`),
	regexp.MustCompile(`(?i)\bpromo\s*code\b`),
	regexp.MustCompile(`(?i)\buse\s+code\s+[A-Z0-9]{3,}\b`),
	regexp.MustCompile(`(?i)\blimited\s+time\s+offer\b`),
	regexp.MustCompile(`(?i)\bdiscount\s+link\b`),
	regexp.MustCompile(`(?i)\baffiliate\s+link`),
	regexp.MustCompile(`(?i)\bshop\s+now\b`),
	regexp.MustCompile(`(?i)\bbuy\s+now\s+and\s+save\b`),
}

// IsAd reports whether title or body matches any banned promotional phrase.
func IsAd(title, body string) bool {
	for _, re := range adPatterns {
		if re.MatchString(title) || re.MatchString(body) {
			return true
		}
	}
	return false
}
