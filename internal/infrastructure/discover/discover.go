package discover

import (
	"bytes"
	"context"
	"encoding/xml"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"blogdiscover/internal/domain"
	"blogdiscover/internal/infrastructure/fetch"
	"blogdiscover/internal/ports"
)

var (
	navKeywords   = []string{"blog", "rss", "feed", "atom", "subscribe", "news", "articles", "posts"}
	navClassHints = []string{"nav", "menu", "header", "top", "main-menu"}
	navIDHints    = []string{"nav", "menu", "header", "top-menu"}
	feedishHints  = []string{"rss", "feed", "atom", ".xml"}

	commonFeedPaths = []string{
		"/feed/", "/feed", "/rss/", "/rss", "/atom/", "/atom",
		"/index.xml", "/rss.xml", "/feed.xml", "/atom.xml",
		"/blog/feed/", "/blog/feed", "/blog/rss/", "/blog/rss",
	}
	commonSitemapPaths = []string{
		"/sitemap.xml", "/sitemap_index.xml", "/sitemap-index.xml", "/rss-sitemap.xml",
	}
	sitemapKeywords = []string{"feed", "rss", "atom", "blog"}
)

// Discoverer probes a site's front page for feed candidates: platform
// shortcuts first, then declared link tags, sitemap entries, navigation
// anchors, and finally well-known paths. Candidate order is the order
// feeds will be tried in.
type Discoverer struct {
	client         *fetch.Client
	requestTimeout time.Duration
	probeTimeout   time.Duration
	log            *slog.Logger
}

var _ ports.FeedDiscoverer = (*Discoverer)(nil)

func New(client *fetch.Client, requestTimeout, probeTimeout time.Duration, log *slog.Logger) *Discoverer {
	return &Discoverer{
		client:         client,
		requestTimeout: requestTimeout,
		probeTimeout:   probeTimeout,
		log:            log.With("component", "discover"),
	}
}

// DiscoverFeeds fetches siteURL and returns ordered feed candidates
// along with a classification of what the page looked like.
func (d *Discoverer) DiscoverFeeds(ctx context.Context, siteURL string) ([]string, domain.FeedProbeStatus) {
	resp, err := d.client.Get(ctx, siteURL, d.requestTimeout)
	if err != nil {
		d.log.Debug("site unreachable", "url", siteURL, "error", err)
		return nil, domain.ProbeUnreachable
	}
	if !resp.OK() {
		d.log.Debug("site returned error status", "url", siteURL, "status", resp.StatusCode)
		return nil, domain.ProbeUnreachable
	}

	base, err := url.Parse(siteURL)
	if err != nil {
		return nil, domain.ProbeUnreachable
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		d.log.Debug("cannot parse page", "url", siteURL, "error", err)
		return nil, domain.ProbeUnreachable
	}

	var feeds []string
	hasIndicators := false
	add := func(ref string) {
		if u := resolve(base, ref); u != "" {
			feeds = append(feeds, u)
		}
	}

	// Known platforms expose feeds at fixed routes; checking those first
	// keeps the best candidate at the head of the list.
	host := strings.ToLower(base.Host)
	switch {
	case strings.Contains(host, "substack.com"):
		add("/feed")
		hasIndicators = true
	case strings.Contains(host, "blogspot.com"):
		add("/feeds/posts/default")
		add("/feeds/posts/default?alt=rss")
		hasIndicators = true
	case strings.Contains(host, "wordpress.com") || hasWordPressGenerator(doc):
		add("/feed/")
		add("/feed")
		hasIndicators = true
	case strings.Contains(host, "medium.com"):
		add("/feed")
		hasIndicators = true
	case strings.Contains(host, "ghost.io"):
		add("/rss/")
		add("/rss")
		hasIndicators = true
	}

	doc.Find(`link[type='application/rss+xml'], link[type='application/atom+xml']`).Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok && href != "" {
			add(href)
			hasIndicators = true
		}
	})

	if sitemapFeeds := d.checkSitemap(ctx, siteURL); len(sitemapFeeds) > 0 {
		feeds = append(feeds, sitemapFeeds...)
		hasIndicators = true
	}

	navElements(doc).Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := a.AttrOr("href", "")
		hrefLower := strings.ToLower(href)
		textLower := strings.ToLower(strings.TrimSpace(a.Text()))

		if !containsAny(hrefLower, navKeywords) && !containsAny(textLower, navKeywords) {
			return
		}
		hasIndicators = true

		fullURL := resolve(base, href)
		if fullURL == "" {
			return
		}
		if strings.Contains(hrefLower, "blog") || strings.Contains(textLower, "blog") {
			for _, suffix := range []string{"/feed", "/rss", "/atom"} {
				feeds = append(feeds, strings.TrimRight(fullURL, "/")+suffix)
			}
		}
		if containsAny(hrefLower, feedishHints) {
			feeds = append(feeds, fullURL)
		}
	})

	for _, path := range commonFeedPaths {
		feedURL := resolve(base, path)
		if feedURL != "" && !contains(feeds, feedURL) {
			feeds = append(feeds, feedURL)
		}
	}

	if len(feeds) > 15 {
		feeds = feeds[:15]
	}

	switch {
	case len(feeds) > 0:
		return feeds, domain.ProbeSuccess
	case hasIndicators:
		return nil, domain.ProbeHasIndicators
	default:
		return nil, domain.ProbeNoIndicators
	}
}

// checkSitemap looks for feed-like URLs in the site's sitemaps. Sitemap
// locations come from robots.txt directives when present, otherwise the
// usual well-known paths. The first sitemap that yields anything wins.
func (d *Discoverer) checkSitemap(ctx context.Context, siteURL string) []string {
	baseURL := strings.TrimRight(siteURL, "/")

	var paths []string
	if resp, err := d.client.Get(ctx, baseURL+"/robots.txt", d.probeTimeout); err == nil && resp.StatusCode == 200 {
		for _, line := range strings.Split(string(resp.Body), "\n") {
			line = strings.TrimSpace(line)
			if !strings.HasPrefix(strings.ToLower(line), "sitemap:") {
				continue
			}
			loc := strings.TrimSpace(line[len("sitemap:"):])
			switch {
			case strings.HasPrefix(loc, baseURL):
				paths = append(paths, loc[len(baseURL):])
			case strings.HasPrefix(loc, "/"):
				paths = append(paths, loc)
			}
		}
		if len(paths) > 0 {
			d.log.Debug("sitemaps listed in robots.txt", "url", siteURL, "count", len(paths))
		}
	}
	if len(paths) == 0 {
		paths = commonSitemapPaths
	}

	for _, path := range paths {
		resp, err := d.client.Get(ctx, baseURL+path, d.probeTimeout)
		if err != nil || resp.StatusCode != 200 {
			continue
		}
		var found []string
		for _, loc := range sitemapLocations(resp.Body) {
			if containsAny(strings.ToLower(loc), sitemapKeywords) {
				found = append(found, loc)
			}
		}
		if len(found) > 0 {
			d.log.Debug("feed candidates in sitemap", "url", baseURL+path, "count", len(found))
			if len(found) > 10 {
				found = found[:10]
			}
			return found
		}
	}
	return nil
}

// sitemapLocations extracts <loc> values with a token scan, tolerating
// whatever namespace the sitemap declares.
func sitemapLocations(body []byte) []string {
	var locs []string
	dec := xml.NewDecoder(bytes.NewReader(body))
	inLoc := false
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			inLoc = t.Name.Local == "loc"
		case xml.EndElement:
			inLoc = false
		case xml.CharData:
			if inLoc {
				if loc := strings.TrimSpace(string(t)); loc != "" {
					locs = append(locs, loc)
				}
			}
		}
	}
	return locs
}

// navElements unions the structural elements worth scanning for blog
// links: semantic containers plus divs and lists whose class or id
// smells like navigation.
func navElements(doc *goquery.Document) *goquery.Selection {
	sel := doc.Find("nav, header, footer, menu, aside")
	sel = sel.AddSelection(doc.Find("div[class], ul[class]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return containsAny(strings.ToLower(s.AttrOr("class", "")), navClassHints)
	}))
	sel = sel.AddSelection(doc.Find("div[id], ul[id]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return containsAny(strings.ToLower(s.AttrOr("id", "")), navIDHints)
	}))
	return sel
}

func hasWordPressGenerator(doc *goquery.Document) bool {
	found := false
	doc.Find("meta[name='generator']").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.Contains(strings.ToLower(s.AttrOr("content", "")), "wordpress") {
			found = true
			return false
		}
		return true
	})
	return found
}

func resolve(base *url.URL, ref string) string {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}

func containsAny(s string, keywords []string) bool {
	if s == "" {
		return false
	}
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
