package ports

import (
	"context"

	"blogdiscover/internal/domain"
)

// FeedDiscoverer probes a site for syndication feeds, returning ordered
// candidate feed URLs and a classification of what it saw.
type FeedDiscoverer interface {
	DiscoverFeeds(ctx context.Context, siteURL string) ([]string, domain.FeedProbeStatus)
}

// FeedFetcher downloads one feed and normalizes its entries. Failures of
// any kind yield an empty slice, never an error.
type FeedFetcher interface {
	FetchPosts(ctx context.Context, feedURL string) []domain.PostRecord
}

// LinkExtractor pulls validated candidate site origins out of a post's
// raw HTML body.
type LinkExtractor interface {
	ExtractCandidates(rawHTML, postURL string) []string
}

// RobotsGate answers whether a URL may be fetched under the site's
// robots.txt rules. Fails open.
type RobotsGate interface {
	IsAllowed(ctx context.Context, rawURL string) bool
}
