package item

import (
	"net/url"
	"strings"
)

// trackingParams are query parameters stripped during canonicalization.
// They carry campaign state, not document identity.
var trackingParams = map[string]struct{}{
	"utm_source": {}, "utm_medium": {}, "utm_campaign": {}, "utm_term": {},
	"utm_content": {}, "utm_id": {}, "gclid": {}, "fbclid": {}, "mc_cid": {},
	"mc_eid": {}, "ref": {}, "source": {}, "cmpid": {}, "ncid": {},
}

// CanonicalURL normalizes a URL for identity comparison: lower-case scheme
// and host, default ports and fragments dropped, tracking query parameters
// removed, trailing slash trimmed on non-root paths. Returns the input
// unchanged when it does not parse as an absolute http(s) URL.
func CanonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return raw
	}
	u.Scheme = scheme
	u.Fragment = ""
	u.Host = strings.ToLower(u.Host)
	if (scheme == "http" && strings.HasSuffix(u.Host, ":80")) ||
		(scheme == "https" && strings.HasSuffix(u.Host, ":443")) {
		u.Host = u.Hostname()
	}
	if u.RawQuery != "" {
		q := u.Query()
		for k := range q {
			if _, drop := trackingParams[strings.ToLower(k)]; drop {
				q.Del(k)
			}
		}
		u.RawQuery = q.Encode()
	}
	if len(u.Path) > 1 {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}
	return u.String()
}

// Host returns the lower-cased hostname of a URL, or "" when unparseable.
// The hydrator keys its politeness ledger on this.
func Host(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
