package engine

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blogdiscover/internal/config"
	"blogdiscover/internal/domain"
	"blogdiscover/internal/frontier"
	"blogdiscover/internal/state"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeDiscoverer maps site URLs to canned probe results and counts calls.
type fakeDiscoverer struct {
	feeds  map[string][]string
	status map[string]domain.FeedProbeStatus
	calls  map[string]int
	onCall func(siteURL string)
}

func newFakeDiscoverer() *fakeDiscoverer {
	return &fakeDiscoverer{
		feeds:  map[string][]string{},
		status: map[string]domain.FeedProbeStatus{},
		calls:  map[string]int{},
	}
}

func (f *fakeDiscoverer) DiscoverFeeds(_ context.Context, siteURL string) ([]string, domain.FeedProbeStatus) {
	f.calls[siteURL]++
	if f.onCall != nil {
		f.onCall(siteURL)
	}
	st, ok := f.status[siteURL]
	if !ok {
		return nil, domain.ProbeUnreachable
	}
	return f.feeds[siteURL], st
}

type fakeFetcher struct {
	posts  map[string][]domain.PostRecord
	onCall func(feedURL string)
}

func (f *fakeFetcher) FetchPosts(_ context.Context, feedURL string) []domain.PostRecord {
	if f.onCall != nil {
		f.onCall(feedURL)
	}
	return f.posts[feedURL]
}

// fakeExtractor maps a post's raw HTML to candidate origins.
type fakeExtractor struct {
	links map[string][]string
}

func (f *fakeExtractor) ExtractCandidates(rawHTML, _ string) []string {
	return f.links[rawHTML]
}

type fakeRobots struct {
	denied map[string]bool
}

func (f *fakeRobots) IsAllowed(_ context.Context, rawURL string) bool {
	return !f.denied[rawURL]
}

type harness struct {
	engine     *Engine
	discoverer *fakeDiscoverer
	fetcher    *fakeFetcher
	extractor  *fakeExtractor
	robots     *fakeRobots
	frontier   *frontier.Frontier
	state      *state.DiscoveryState
	storePath  string
}

func newHarness(t *testing.T, mutate func(*config.Config)) *harness {
	t.Helper()

	cfg := config.Load()
	cfg.Crawl.MaxBlogs = 10
	cfg.Crawl.PolitenessDelaySecs = 0
	cfg.Crawl.CheckpointInterval = 2
	if mutate != nil {
		mutate(&cfg)
	}

	h := &harness{
		discoverer: newFakeDiscoverer(),
		fetcher:    &fakeFetcher{posts: map[string][]domain.PostRecord{}},
		extractor:  &fakeExtractor{links: map[string][]string{}},
		robots:     &fakeRobots{denied: map[string]bool{}},
		frontier:   frontier.New(frontier.BreadthFirst, rand.New(rand.NewSource(1))),
		state:      state.New(),
		storePath:  filepath.Join(t.TempDir(), "checkpoint.json"),
	}
	h.engine = New(cfg, Deps{
		Discoverer: h.discoverer,
		Fetcher:    h.fetcher,
		Extractor:  h.extractor,
		Robots:     h.robots,
		Frontier:   h.frontier,
		State:      h.state,
		Store:      state.NewStore(h.storePath, discardLogger()),
		Log:        discardLogger(),
		Sleep:      func(time.Duration) {},
		Now:        func() time.Time { return time.Date(2025, time.August, 31, 12, 0, 0, 0, time.UTC) },
	})
	return h
}

// addBlog wires a site that resolves to a working feed whose single post
// links out to the given candidate origins.
func (h *harness) addBlog(siteURL, blogName string, candidates ...string) {
	feedURL := siteURL + "/feed"
	rawHTML := "html-for-" + siteURL
	published := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

	h.discoverer.feeds[siteURL] = []string{feedURL}
	h.discoverer.status[siteURL] = domain.ProbeSuccess
	h.fetcher.posts[feedURL] = []domain.PostRecord{{
		Title:     "Post from " + blogName,
		Link:      siteURL + "/p1",
		Published: &published,
		RawHTML:   rawHTML,
		BlogName:  blogName,
		FeedURL:   feedURL,
	}}
	h.extractor.links[rawHTML] = candidates
}

func TestRunDiscoversRecursivelyWithProvenance(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.addBlog("https://a.example", "Blog A", "https://b.example")
	h.addBlog("https://b.example", "Blog B")

	require.NoError(t, h.engine.Run(context.Background(), []string{"https://a.example"}))

	require.Contains(t, h.state.Discovered, "a.example")
	require.Contains(t, h.state.Discovered, "b.example")

	a := h.state.Discovered["a.example"]
	assert.Equal(t, 0, a.Depth)
	assert.Nil(t, a.DiscoveredFrom)
	assert.Equal(t, "Blog A", a.Name)
	assert.Equal(t, "https://a.example/feed", a.FeedURL)

	b := h.state.Discovered["b.example"]
	assert.Equal(t, 1, b.Depth)
	require.NotNil(t, b.DiscoveredFrom)
	assert.Equal(t, "https://a.example", b.DiscoveredFrom.SourceBlog)
	assert.Equal(t, "Blog A", b.DiscoveredFrom.SourceBlogName)
	assert.Equal(t, "Post from Blog A", b.DiscoveredFrom.SourcePostTitle)
	assert.Equal(t, "https://a.example/p1", b.DiscoveredFrom.SourcePostLink)

	assert.True(t, h.state.Processed.Has("a.example"))
	assert.True(t, h.state.Processed.Has("b.example"))
	assert.Equal(t, 0, h.frontier.Len())

	// A final checkpoint is always written.
	_, err := os.Stat(h.storePath)
	assert.NoError(t, err)
}

func TestRunStopsAtTarget(t *testing.T) {
	t.Parallel()

	h := newHarness(t, func(cfg *config.Config) { cfg.Crawl.MaxBlogs = 1 })
	h.addBlog("https://a.example", "Blog A", "https://b.example")
	h.addBlog("https://b.example", "Blog B")

	require.NoError(t, h.engine.Run(context.Background(), []string{"https://a.example"}))

	assert.Len(t, h.state.Discovered, 1)
	assert.Contains(t, h.state.Discovered, "a.example")

	// b stays queued for a future resumed run, carrying full provenance.
	pending := h.frontier.Snapshot()
	require.Len(t, pending, 1)
	assert.Equal(t, "https://b.example", pending[0].URL)
	assert.Equal(t, 1, pending[0].Depth())
	require.NotNil(t, pending[0].Source)
	assert.Equal(t, "https://a.example", pending[0].Source.SourceBlog)
	assert.True(t, h.state.Queued.Has("b.example"))
}

func TestUnreachableBlacklistAsymmetry(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.discoverer.status["https://blog.x.example"] = domain.ProbeUnreachable
	h.discoverer.status["https://y.example"] = domain.ProbeUnreachable

	seeds := []string{"https://blog.x.example", "https://y.example", "https://sub.y.example"}
	require.NoError(t, h.engine.Run(context.Background(), seeds))

	// Subdomain failure never condemns the base domain.
	assert.True(t, h.state.Failed.Has("blog.x.example"))
	assert.False(t, h.state.FailedBases.Has("x.example"))

	// Root-domain failure condemns the whole base.
	assert.True(t, h.state.Failed.Has("y.example"))
	assert.True(t, h.state.FailedBases.Has("y.example"))

	// The blacklisted base swallows the later sibling without a probe.
	assert.True(t, h.state.Processed.Has("sub.y.example"))
	assert.False(t, h.state.Failed.Has("sub.y.example"))
	assert.Zero(t, h.discoverer.calls["https://sub.y.example"])
}

func TestNoIndicatorsBlacklistsBase(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.discoverer.status["https://corp.example"] = domain.ProbeNoIndicators

	require.NoError(t, h.engine.Run(context.Background(), []string{"https://corp.example"}))

	assert.True(t, h.state.Failed.Has("corp.example"))
	assert.True(t, h.state.FailedBases.Has("corp.example"))
}

func TestIndicatorsWithoutFeedsFailsDomainOnly(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.discoverer.status["https://maybe.example"] = domain.ProbeHasIndicators

	require.NoError(t, h.engine.Run(context.Background(), []string{"https://maybe.example"}))

	assert.True(t, h.state.Failed.Has("maybe.example"))
	assert.False(t, h.state.FailedBases.Has("maybe.example"))
}

func TestNoDuplicateEnqueue(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.addBlog("https://a.example", "Blog A", "https://b.example")
	// Second post in the same feed mentions b again.
	published := time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC)
	h.fetcher.posts["https://a.example/feed"] = append(h.fetcher.posts["https://a.example/feed"], domain.PostRecord{
		Title:     "Second Post",
		Link:      "https://a.example/p2",
		Published: &published,
		RawHTML:   "html-for-https://a.example",
		BlogName:  "Blog A",
	})
	h.discoverer.status["https://b.example"] = domain.ProbeUnreachable

	require.NoError(t, h.engine.Run(context.Background(), []string{"https://a.example"}))

	assert.Equal(t, 1, h.discoverer.calls["https://b.example"])
}

func TestRobotsDisallowSkipsWithoutBlacklist(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.addBlog("https://a.example", "Blog A")
	h.robots.denied["https://a.example"] = true

	require.NoError(t, h.engine.Run(context.Background(), []string{"https://a.example"}))

	assert.True(t, h.state.Processed.Has("a.example"))
	assert.False(t, h.state.Failed.Has("a.example"))
	assert.Empty(t, h.state.Discovered)
	assert.Zero(t, h.discoverer.calls["https://a.example"])
}

func TestNoWorkingFeedBlacklistsPlatformBase(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	// Candidates exist but none yields posts.
	h.discoverer.feeds["https://github.com"] = []string{"https://github.com/feed"}
	h.discoverer.status["https://github.com"] = domain.ProbeSuccess
	h.discoverer.feeds["https://small.example"] = []string{"https://small.example/feed"}
	h.discoverer.status["https://small.example"] = domain.ProbeSuccess

	require.NoError(t, h.engine.Run(context.Background(), []string{"https://github.com", "https://small.example"}))

	// github.com is on the platform list: base domain goes too.
	assert.True(t, h.state.Failed.Has("github.com"))
	assert.True(t, h.state.FailedBases.Has("github.com"))

	// An ordinary site only loses the exact domain.
	assert.True(t, h.state.Failed.Has("small.example"))
	assert.False(t, h.state.FailedBases.Has("small.example"))
}

func TestFirstWorkingFeedWins(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	published := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	h.discoverer.feeds["https://a.example"] = []string{
		"https://a.example/broken",
		"https://a.example/works",
		"https://a.example/also-works",
	}
	h.discoverer.status["https://a.example"] = domain.ProbeSuccess
	h.fetcher.posts["https://a.example/works"] = []domain.PostRecord{{
		Title: "Hit", Link: "https://a.example/p", Published: &published, BlogName: "A",
	}}
	h.fetcher.posts["https://a.example/also-works"] = []domain.PostRecord{{
		Title: "Wrong", Link: "https://a.example/q", Published: &published, BlogName: "A",
	}}

	require.NoError(t, h.engine.Run(context.Background(), []string{"https://a.example"}))

	rec := h.state.Discovered["a.example"]
	assert.Equal(t, "https://a.example/works", rec.FeedURL)
	assert.Equal(t, "Hit", rec.LatestPost.Title)
}

func TestLatestPostSelection(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	older := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	h.discoverer.feeds["https://a.example"] = []string{"https://a.example/feed"}
	h.discoverer.status["https://a.example"] = domain.ProbeSuccess
	h.fetcher.posts["https://a.example/feed"] = []domain.PostRecord{
		{Title: "Old", Link: "https://a.example/old", Published: &older, BlogName: "A"},
		{Title: "New", Link: "https://a.example/new", Published: &newer, BlogName: "A"},
		{Title: "Undated", Link: "https://a.example/undated", BlogName: "A"},
	}

	require.NoError(t, h.engine.Run(context.Background(), []string{"https://a.example"}))

	assert.Equal(t, "New", h.state.Discovered["a.example"].LatestPost.Title)
}

func TestCanceledContextCheckpointsAndStops(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.addBlog("https://a.example", "Blog A")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.engine.Run(ctx, []string{"https://a.example"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, h.state.Discovered)

	_, statErr := os.Stat(h.storePath)
	assert.NoError(t, statErr)
}

func TestInterruptDuringProbeDoesNotBlacklist(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	ctx, cancel := context.WithCancel(context.Background())

	// Once the context is canceled the real discoverer reports the site
	// unreachable; the engine must not treat that as a verdict.
	h.discoverer.status["https://a.example"] = domain.ProbeUnreachable
	h.discoverer.onCall = func(string) { cancel() }
	h.addBlog("https://z.example", "Blog Z")

	err := h.engine.Run(ctx, []string{"https://a.example", "https://z.example"})
	assert.ErrorIs(t, err, context.Canceled)

	assert.False(t, h.state.Failed.Has("a.example"))
	assert.False(t, h.state.FailedBases.Has("a.example"))

	// The interrupt is honored between items: z was never reached.
	assert.Zero(t, h.discoverer.calls["https://z.example"])
}

func TestInterruptDuringFeedFetchDoesNotBlacklist(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	ctx, cancel := context.WithCancel(context.Background())

	// A platform base, so a genuine no-working-feed verdict would
	// blacklist github.com entirely.
	h.discoverer.feeds["https://github.com"] = []string{"https://github.com/feed"}
	h.discoverer.status["https://github.com"] = domain.ProbeSuccess
	h.fetcher.onCall = func(string) { cancel() }
	h.addBlog("https://z.example", "Blog Z")

	err := h.engine.Run(ctx, []string{"https://github.com", "https://z.example"})
	assert.ErrorIs(t, err, context.Canceled)

	assert.False(t, h.state.Failed.Has("github.com"))
	assert.False(t, h.state.FailedBases.Has("github.com"))
	assert.Zero(t, h.discoverer.calls["https://z.example"])
}

func TestCheckpointCadence(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.addBlog("https://a.example", "Blog A")
	h.addBlog("https://b.example", "Blog B")
	h.addBlog("https://c.example", "Blog C")

	// The post-attempt sleep is a stable point to observe what the store
	// holds after each item.
	var discoveredAt []int
	h.engine.deps.Sleep = func(time.Duration) {
		st, _, err := state.Load(h.storePath)
		require.NoError(t, err)
		if st == nil {
			discoveredAt = append(discoveredAt, -1)
			return
		}
		discoveredAt = append(discoveredAt, len(st.Discovered))
	}

	seeds := []string{"https://a.example", "https://b.example", "https://c.example"}
	require.NoError(t, h.engine.Run(context.Background(), seeds))

	// Interval is 2: nothing after the first success, two blogs persisted
	// after the second, still two after the third.
	assert.Equal(t, []int{-1, 2, 2}, discoveredAt)

	st, _, err := state.Load(h.storePath)
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Len(t, st.Discovered, 3)
}

func TestSeedsAlreadyProcessedAreNotRequeued(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.state.Processed.Add("a.example")
	h.addBlog("https://a.example", "Blog A")

	require.NoError(t, h.engine.Run(context.Background(), []string{"https://a.example"}))

	assert.Empty(t, h.state.Discovered)
	assert.Zero(t, h.discoverer.calls["https://a.example"])
}
