package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"blogdiscover/internal/ports"
	"blogdiscover/internal/urlutil"
	"blogdiscover/internal/validate"
)

var skipSchemes = []string{"mailto:", "tel:", "javascript:", "data:", "ftp:", "#"}

// Extractor pulls blog-candidate origins out of post HTML. Every anchor
// is resolved against the post URL, filtered through the blog heuristics,
// and reduced to its scheme://host origin. Output order is first-seen.
type Extractor struct {
	validator *validate.Validator
}

var _ ports.LinkExtractor = (*Extractor)(nil)

func New(validator *validate.Validator) *Extractor {
	return &Extractor{validator: validator}
}

// ExtractCandidates returns deduplicated candidate origins from rawHTML.
func (e *Extractor) ExtractCandidates(rawHTML, postURL string) []string {
	if rawHTML == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil
	}
	base, err := url.Parse(postURL)
	if err != nil {
		return nil
	}

	seen := make(map[string]struct{})
	var origins []string

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href == "" || hasSkipScheme(href) {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		fullURL := base.ResolveReference(ref).String()
		if !strings.HasPrefix(fullURL, "http://") && !strings.HasPrefix(fullURL, "https://") {
			return
		}
		if !e.validator.IsLikelyBlog(fullURL) {
			return
		}

		origin := urlutil.Origin(fullURL)
		if origin == "" {
			return
		}
		if _, ok := seen[origin]; ok {
			return
		}
		seen[origin] = struct{}{}
		origins = append(origins, origin)
	})

	return origins
}

func hasSkipScheme(href string) bool {
	for _, prefix := range skipSchemes {
		if strings.HasPrefix(href, prefix) {
			return true
		}
	}
	return false
}
