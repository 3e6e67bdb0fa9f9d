package feed

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"

	"blogdiscover/internal/domain"
	"blogdiscover/internal/infrastructure/fetch"
	"blogdiscover/internal/ports"
)

const summaryRunes = 500

// Fetcher downloads a feed and normalizes its entries into PostRecords.
// Any failure yields an empty result; a candidate feed that cannot be
// fetched or parsed simply does not confirm the blog.
type Fetcher struct {
	client   *fetch.Client
	timeout  time.Duration
	maxPosts int
	log      *slog.Logger
}

var _ ports.FeedFetcher = (*Fetcher)(nil)

func New(client *fetch.Client, timeout time.Duration, maxPosts int, log *slog.Logger) *Fetcher {
	return &Fetcher{
		client:   client,
		timeout:  timeout,
		maxPosts: maxPosts,
		log:      log.With("component", "feed"),
	}
}

// FetchPosts returns up to maxPosts normalized entries from feedURL,
// or nil if the feed is unreachable, unparsable, or empty.
func (f *Fetcher) FetchPosts(ctx context.Context, feedURL string) []domain.PostRecord {
	resp, err := f.client.Get(ctx, feedURL, f.timeout)
	if err != nil {
		return nil
	}
	if resp.StatusCode != 200 {
		return nil
	}

	parsed, err := gofeed.NewParser().ParseString(string(resp.Body))
	if err != nil || parsed == nil || len(parsed.Items) == 0 {
		return nil
	}

	blogName := parsed.Title
	if blogName == "" {
		if u, err := url.Parse(feedURL); err == nil {
			blogName = u.Host
		} else {
			blogName = feedURL
		}
	}

	items := parsed.Items
	if len(items) > f.maxPosts {
		items = items[:f.maxPosts]
	}

	posts := make([]domain.PostRecord, 0, len(items))
	for _, item := range items {
		rawHTML := item.Content
		if rawHTML == "" {
			rawHTML = item.Description
		}
		full := plainText(rawHTML)

		title := item.Title
		if title == "" {
			title = "No Title"
		}

		posts = append(posts, domain.PostRecord{
			Title:       title,
			Link:        item.Link,
			Published:   publishedAt(item),
			Summary:     truncateRunes(full, summaryRunes),
			FullContent: full,
			RawHTML:     rawHTML,
			FeedURL:     feedURL,
			BlogName:    blogName,
		})
	}

	if len(posts) > 0 {
		f.log.Info("feed fetched", "blog", blogName, "posts", len(posts))
	}
	return posts
}

// publishedAt prefers the parsed publication date, then the update date,
// then a lenient parse of whatever raw date strings the feed carried.
func publishedAt(item *gofeed.Item) *time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		return item.UpdatedParsed
	}
	for _, raw := range []string{item.Published, item.Updated} {
		if raw == "" {
			continue
		}
		if t, err := dateparse.ParseAny(raw); err == nil {
			return &t
		}
	}
	return nil
}

// plainText strips markup and collapses whitespace to single spaces.
func plainText(rawHTML string) string {
	if rawHTML == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return strings.Join(strings.Fields(rawHTML), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
