package urlutil

import (
	"net/url"
	"strings"
)

// Compound public suffixes where the registrable domain keeps three labels
// (blog.example.co.uk -> example.co.uk).
var compoundSuffixes = map[string]struct{}{
	"co": {}, "com": {}, "ac": {}, "gov": {}, "org": {}, "net": {},
}

// CanonicalDomain extracts the lower-cased host without a leading "www.".
// Returns "" for anything that does not parse; never errors.
func CanonicalDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Host)
	return strings.TrimPrefix(host, "www.")
}

// BaseDomain reduces a domain to its registrable root, the unit used for
// blacklisting. Inputs with at most two labels pass through unchanged.
func BaseDomain(domain string) string {
	if domain == "" {
		return ""
	}
	parts := strings.Split(domain, ".")
	if len(parts) <= 2 {
		return domain
	}
	if _, ok := compoundSuffixes[parts[len(parts)-2]]; ok {
		return strings.Join(parts[len(parts)-3:], ".")
	}
	return strings.Join(parts[len(parts)-2:], ".")
}

// Origin reduces an absolute URL to scheme://host, dropping path and query.
func Origin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
