// Package canon normalizes URLs into the comparison form stored in the
// norm_url column, e.g.
//
//	https://www.example.com/a/b/?utm_source=x#frag -> example.com/a/b
//
// An empty result means the input is not a URL (a "#tag", a bare word) and
// callers should match on the original string instead.
package canon

import (
	"net"
	"net/url"
	"sort"
	"strings"
)

// Canonicalizer maps a raw URL to its normalized form. Implementations must
// be deterministic and free of side effects.
type Canonicalizer func(raw string) string

// Effective returns the match key for raw: the canonical form of the
// trimmed input, or the trimmed input itself when canonicalization yields
// nothing.
func (c Canonicalizer) Effective(raw string) (trimmed, key string) {
	trimmed = strings.TrimSpace(raw)
	key = c(trimmed)
	if key == "" {
		key = trimmed
	}
	return trimmed, key
}

// Identity returns its input unchanged.
func Identity(raw string) string { return raw }

var hostPrefixes = []string{"www.", "m.", "mobile.", "amp."}

// trackingParams are dropped from the query string.
var trackingParams = map[string]bool{
	"fbclid":   true,
	"gclid":    true,
	"dclid":    true,
	"msclkid":  true,
	"mc_cid":   true,
	"mc_eid":   true,
	"ref":      true,
	"ref_src":  true,
	"ref_url":  true,
	"igshid":   true,
	"_hsenc":   true,
	"_hsmi":    true,
	"yclid":    true,
	"spm":      true,
	"share_id": true,
}

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
	"ftp":   "21",
}

// Canonify is the default Canonicalizer.
func Canonify(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" || strings.HasPrefix(s, "#") {
		return ""
	}

	hasScheme := strings.Contains(s, "://")
	if !hasScheme {
		// Without a scheme, require something that looks like a host.
		head, _, _ := strings.Cut(s, "/")
		if !strings.Contains(head, ".") && !strings.Contains(head, ":") {
			return ""
		}
		s = "http://" + s
	}

	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return ""
	}

	host := strings.ToLower(u.Hostname())
	for _, p := range hostPrefixes {
		if strings.HasPrefix(host, p) && len(host) > len(p) {
			host = host[len(p):]
			break
		}
	}
	if port := u.Port(); port != "" && port != defaultPorts[strings.ToLower(u.Scheme)] {
		host = net.JoinHostPort(host, port)
	}

	path := strings.TrimRight(u.EscapedPath(), "/")

	var b strings.Builder
	b.WriteString(host)
	b.WriteString(path)
	if q := canonicalQuery(u.Query()); q != "" {
		b.WriteByte('?')
		b.WriteString(q)
	}
	return b.String()
}

// canonicalQuery drops tracking parameters and sorts the rest by key.
func canonicalQuery(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		lk := strings.ToLower(k)
		if trackingParams[lk] || strings.HasPrefix(lk, "utm_") {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		for _, v := range values[k] {
			if v == "" {
				parts = append(parts, url.QueryEscape(k))
				continue
			}
			parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(v))
		}
	}
	return strings.Join(parts, "&")
}
