package feed

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blogdiscover/internal/config"
	"blogdiscover/internal/infrastructure/fetch"
	"blogdiscover/internal/infrastructure/ratelimit"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
<title>Test Blog</title>
<link>https://blog.example</link>
<item>
  <title>Newest Post</title>
  <link>https://blog.example/p2</link>
  <pubDate>Tue, 10 Jun 2025 10:00:00 GMT</pubDate>
  <description><![CDATA[<p>Hello <b>world</b> from the feed</p>]]></description>
</item>
<item>
  <title>Older Post</title>
  <link>https://blog.example/p1</link>
  <pubDate>Mon, 01 Jan 2024 00:00:00 GMT</pubDate>
  <description>Plain text body</description>
</item>
<item>
  <link>https://blog.example/p0</link>
  <description>untitled</description>
</item>
</channel></rss>`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestFetcher(maxPosts int) *Fetcher {
	client := fetch.New(config.HTTPConfig{
		UserAgent:    "blogdiscover-test",
		MaxBodyBytes: 1 << 20,
	}, ratelimit.New(0))
	return New(client, 5*time.Second, maxPosts, discardLogger())
}

func serveBody(t *testing.T, contentType, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestFetchPostsNormalizesEntries(t *testing.T) {
	t.Parallel()

	server := serveBody(t, "application/rss+xml", sampleRSS)
	posts := newTestFetcher(20).FetchPosts(context.Background(), server.URL+"/feed")
	require.Len(t, posts, 3)

	first := posts[0]
	assert.Equal(t, "Newest Post", first.Title)
	assert.Equal(t, "https://blog.example/p2", first.Link)
	assert.Equal(t, "Test Blog", first.BlogName)
	assert.Equal(t, server.URL+"/feed", first.FeedURL)
	require.NotNil(t, first.Published)
	assert.Equal(t, time.Date(2025, time.June, 10, 10, 0, 0, 0, time.UTC).Unix(), first.Published.Unix())

	assert.Equal(t, "Hello world from the feed", first.FullContent)
	assert.Equal(t, "Hello world from the feed", first.Summary)
	assert.Contains(t, first.RawHTML, "<b>world</b>")

	assert.Equal(t, "Plain text body", posts[1].FullContent)
	assert.Equal(t, "No Title", posts[2].Title)
}

func TestFetchPostsHonorsMaxPosts(t *testing.T) {
	t.Parallel()

	server := serveBody(t, "application/rss+xml", sampleRSS)
	posts := newTestFetcher(1).FetchPosts(context.Background(), server.URL+"/feed")
	require.Len(t, posts, 1)
	assert.Equal(t, "Newest Post", posts[0].Title)
}

func TestFetchPostsTruncatesSummary(t *testing.T) {
	t.Parallel()

	long := ""
	for i := 0; i < 120; i++ {
		long += "abcdefghi "
	}
	rss := `<?xml version="1.0"?><rss version="2.0"><channel><title>T</title>
<item><title>Long</title><link>https://x.example/p</link><description>` + long + `</description></item>
</channel></rss>`

	server := serveBody(t, "application/rss+xml", rss)
	posts := newTestFetcher(20).FetchPosts(context.Background(), server.URL)
	require.Len(t, posts, 1)

	assert.Len(t, []rune(posts[0].Summary), 500)
	assert.Greater(t, len(posts[0].FullContent), 500)
}

func TestFetchPostsNonOKStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	assert.Nil(t, newTestFetcher(20).FetchPosts(context.Background(), server.URL))
}

func TestFetchPostsNotAFeed(t *testing.T) {
	t.Parallel()

	server := serveBody(t, "text/plain", "this is not a feed at all")
	assert.Nil(t, newTestFetcher(20).FetchPosts(context.Background(), server.URL))
}

func TestFetchPostsUnreachable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	assert.Nil(t, newTestFetcher(20).FetchPosts(context.Background(), server.URL))
}
