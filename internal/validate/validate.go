package validate

import (
	"net/url"
	"strings"

	"blogdiscover/internal/config"
)

// Keywords that mark a URL as suspicious unless a blog-ish word excuses it.
var suspiciousKeywords = []string{
	"download", "exec", "install", "setup",
	"/bin/", "/sbin/", "/usr/bin/",
	"malware", "virus", "exploit", "hack",
	"phishing", "scam", "fraud",
}

// Keywords that excuse "download"/"install" in an otherwise blog-like URL.
var blogWords = []string{"blog", "post", "article"}

// Validator applies URL safety and blog-likeness heuristics. All methods
// are pure and never error; any internal parse failure yields false.
type Validator struct {
	allowedTLDs   []string
	skipDomains   []string
	indicators    []string
	dangerousExts []string
}

// New builds a validator from the configured filter vocabularies.
func New(filters config.FilterConfig) *Validator {
	return &Validator{
		allowedTLDs:   filters.AllowedTLDs,
		skipDomains:   filters.SkipDomains,
		indicators:    filters.BlogIndicators,
		dangerousExts: filters.DangerousExtensions,
	}
}

// IsSafe rejects URLs with dangerous path extensions or suspicious
// keywords. "download" and "install" are allowed when the URL also
// mentions a blog word.
func (v *Validator) IsSafe(rawURL string) bool {
	urlLower := strings.ToLower(rawURL)
	u, err := url.Parse(urlLower)
	if err != nil {
		return false
	}

	for _, ext := range v.dangerousExts {
		if strings.HasSuffix(u.Path, ext) {
			return false
		}
	}

	for _, kw := range suspiciousKeywords {
		if !strings.Contains(urlLower, kw) {
			continue
		}
		if (kw == "download" || kw == "install") && containsAny(urlLower, blogWords) {
			continue
		}
		return false
	}

	return true
}

// IsLikelyBlog decides whether a URL is worth queueing as a blog
// candidate: safe, not on the skip list, allowed TLD, and either carrying
// a blog indicator or looking like a bare personal/org root domain.
func (v *Validator) IsLikelyBlog(rawURL string) bool {
	if !v.IsSafe(rawURL) {
		return false
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Host)
	if host == "" {
		return false
	}

	for _, skip := range v.skipDomains {
		if strings.Contains(host, skip) {
			return false
		}
	}

	if !hasAllowedTLD(host, v.allowedTLDs) {
		return false
	}

	urlLower := strings.ToLower(rawURL)
	if containsAny(urlLower, v.indicators) {
		return true
	}

	// Bare root domains (few labels, no www) tend to be personal or
	// organizational sites worth probing.
	if strings.Count(host, ".") <= 2 && !strings.HasPrefix(host, "www") {
		return true
	}

	return false
}

func hasAllowedTLD(host string, tlds []string) bool {
	for _, tld := range tlds {
		if strings.HasSuffix(host, tld) {
			return true
		}
	}
	return false
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
