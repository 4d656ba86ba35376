package item

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// fingerprintTokens is how many leading body tokens participate in the
// content fingerprint. Enough to catch syndicated copies, short enough that
// appended boilerplate does not defeat the match.
const fingerprintTokens = 40

// TitleFingerprint reduces a title to a normalized comparison key:
// lower-cased, punctuation stripped, whitespace collapsed.
func TitleFingerprint(title string) string {
	return strings.Join(normalizeTokens(title), " ")
}

// ContentFingerprint hashes the normalized title together with the first
// fingerprintTokens body tokens. Near-duplicates (same story syndicated with
// minor header changes) collide here even when canonical URLs differ.
func ContentFingerprint(title, body string) string {
	toks := normalizeTokens(body)
	if len(toks) > fingerprintTokens {
		toks = toks[:fingerprintTokens]
	}
	key := TitleFingerprint(title) + "\n" + strings.Join(toks, " ")
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:12])
}

func normalizeTokens(s string) []string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Fields(b.String())
}
