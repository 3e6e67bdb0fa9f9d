package engine

import (
	"context"
	"log/slog"
	"time"

	"blogdiscover/internal/config"
	"blogdiscover/internal/domain"
	"blogdiscover/internal/frontier"
	"blogdiscover/internal/ports"
	"blogdiscover/internal/state"
	"blogdiscover/internal/urlutil"
)

// Deps collects everything the engine needs. All fields are required
// except Sleep and Now, which default to the real clock.
type Deps struct {
	Discoverer ports.FeedDiscoverer
	Fetcher    ports.FeedFetcher
	Extractor  ports.LinkExtractor
	Robots     ports.RobotsGate
	Frontier   *frontier.Frontier
	State      *state.DiscoveryState
	Store      *state.Store
	Log        *slog.Logger

	Sleep func(time.Duration)
	Now   func() time.Time
}

// Engine drives the recursive discovery traversal: pop a candidate,
// classify its domain, confirm it through a working feed, mine its posts
// for further candidates, and checkpoint along the way. It owns the
// state exclusively and runs single-threaded on purpose: politeness
// delays bound the request rate globally, and a linear pop order is what
// makes the queue strategies and checkpoints meaningful.
type Engine struct {
	cfg           config.CrawlConfig
	platformBases map[string]struct{}
	deps          Deps
}

// New builds an engine over the given dependencies.
func New(cfg config.Config, deps Deps) *Engine {
	if deps.Sleep == nil {
		deps.Sleep = time.Sleep
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	bases := make(map[string]struct{}, len(cfg.Filters.PlatformBaseDomains))
	for _, b := range cfg.Filters.PlatformBaseDomains {
		bases[b] = struct{}{}
	}
	return &Engine{cfg: cfg.Crawl, platformBases: bases, deps: deps}
}

// Run seeds the frontier and processes it until the queue drains, the
// discovery target is reached, or the context is canceled. A final
// checkpoint is written on every exit path.
func (e *Engine) Run(ctx context.Context, seedURLs []string) error {
	s := e.deps.State
	log := e.deps.Log

	log.Info("starting discovery",
		"target", e.cfg.MaxBlogs,
		"posts_per_feed", e.cfg.MaxPostsPerFeed,
		"seeds", len(seedURLs),
		"strategy", e.cfg.QueueStrategy)

	for _, seedURL := range seedURLs {
		dom := urlutil.CanonicalDomain(seedURL)
		if dom != "" && s.Processed.Has(dom) {
			continue
		}
		e.deps.Frontier.Append(domain.FrontierItem{URL: seedURL})
	}
	s.Queued = state.NewStringSet()
	s.RebuildQueued(e.deps.Frontier.Snapshot(), urlutil.CanonicalDomain)

	sinceCheckpoint := 0
	attempt := 0

	for e.deps.Frontier.Len() > 0 && len(s.Discovered) < e.cfg.MaxBlogs {
		select {
		case <-ctx.Done():
			log.Warn("interrupted, saving checkpoint")
			e.checkpoint()
			return ctx.Err()
		default:
		}

		item, ok := e.deps.Frontier.Pop()
		if !ok {
			break
		}
		attempt++
		s.Queued.Remove(urlutil.CanonicalDomain(item.URL))

		if e.crawlOne(ctx, item, attempt) {
			sinceCheckpoint++
			if sinceCheckpoint >= e.cfg.CheckpointInterval {
				e.checkpoint()
				sinceCheckpoint = 0
			}
		}

		e.deps.Sleep(e.cfg.PolitenessDelay())

		log.Info("progress",
			"discovered", len(s.Discovered),
			"target", e.cfg.MaxBlogs,
			"processed", s.Processed.Len(),
			"queued", e.deps.Frontier.Len())
	}

	e.checkpoint()

	log.Info("discovery complete",
		"discovered", len(s.Discovered),
		"remaining_queue", e.deps.Frontier.Len())
	return nil
}

// crawlOne wraps crawlBlog so a fault on one candidate never kills the
// traversal.
func (e *Engine) crawlOne(ctx context.Context, item domain.FrontierItem, attempt int) (success bool) {
	defer func() {
		if r := recover(); r != nil {
			e.deps.Log.Error("crawl failed", "url", item.URL, "panic", r)
			success = false
		}
	}()
	return e.crawlBlog(ctx, item, attempt)
}

// crawlBlog classifies one candidate. It returns true only when the
// candidate was confirmed as a blog and recorded.
func (e *Engine) crawlBlog(ctx context.Context, item domain.FrontierItem, attempt int) bool {
	s := e.deps.State
	log := e.deps.Log

	dom := urlutil.CanonicalDomain(item.URL)
	if dom == "" {
		log.Info("skipped, no domain", "url", item.URL)
		return false
	}

	baseDom := urlutil.BaseDomain(dom)
	if s.FailedBases.Has(baseDom) {
		log.Info("skipped, base domain blacklisted", "domain", dom, "base", baseDom)
		s.Processed.Add(dom)
		return false
	}
	if s.Processed.Has(dom) {
		log.Info("skipped, already processed", "domain", dom)
		return false
	}
	s.Processed.Add(dom)

	if !e.deps.Robots.IsAllowed(ctx, item.URL) {
		log.Info("skipped, robots.txt disallows", "url", item.URL)
		return false
	}

	log.Info("crawling", "attempt", attempt, "url", item.URL)

	feedURLs, status := e.deps.Discoverer.DiscoverFeeds(ctx, item.URL)
	if ctx.Err() != nil {
		// A canceled context makes every probe look unreachable. Unwind
		// without classifying so an interrupt never hits the blacklist.
		log.Info("interrupted mid-crawl, domain left unclassified", "domain", dom)
		return false
	}
	isSubdomain := dom != baseDom

	switch status {
	case domain.ProbeUnreachable:
		s.Failed.Add(dom)
		if !isSubdomain {
			log.Info("unreachable, blacklisting base domain", "base", baseDom)
			s.FailedBases.Add(baseDom)
		} else {
			log.Info("unreachable subdomain, base domain still allowed", "base", baseDom)
		}
		return false
	case domain.ProbeNoIndicators:
		s.Failed.Add(dom)
		if !isSubdomain {
			log.Info("no blog presence, blacklisting base domain", "base", baseDom)
			s.FailedBases.Add(baseDom)
		} else {
			log.Info("no blog presence on subdomain, base domain still allowed", "base", baseDom)
		}
		return false
	}

	if len(feedURLs) == 0 {
		// has_blog_indicators without candidates: other subdomains may
		// still pan out, so only this domain is blacklisted.
		log.Info("blog indicators but no feed candidates", "domain", dom)
		s.Failed.Add(dom)
		return false
	}

	log.Info("trying feed candidates", "count", len(feedURLs))
	for i, feedURL := range feedURLs {
		log.Debug("feed candidate", "index", i+1, "total", len(feedURLs), "url", feedURL)
		posts := e.deps.Fetcher.FetchPosts(ctx, feedURL)
		if len(posts) == 0 {
			continue
		}
		log.Info("working feed found", "url", feedURL)
		e.recordBlog(dom, item, feedURL, posts)
		return true
	}

	if ctx.Err() != nil {
		log.Info("interrupted mid-crawl, domain left unclassified", "domain", dom)
		return false
	}

	s.Failed.Add(dom)
	if _, platform := e.platformBases[baseDom]; platform {
		log.Info("no valid feeds, blacklisting platform base domain", "base", baseDom)
		s.FailedBases.Add(baseDom)
	} else {
		log.Info("no valid feeds, domain-only blacklist", "domain", dom)
	}
	return false
}

// recordBlog stores the confirmed blog and enqueues candidates mined
// from its posts.
func (e *Engine) recordBlog(dom string, item domain.FrontierItem, feedURL string, posts []domain.PostRecord) {
	s := e.deps.State
	log := e.deps.Log

	latest := posts[0]
	for _, p := range posts[1:] {
		if p.PublishedUnix() > latest.PublishedUnix() {
			latest = p
		}
	}

	depth := item.Depth()
	rec := domain.BlogRecord{
		URL:            item.URL,
		Name:           latest.BlogName,
		FeedURL:        feedURL,
		LatestPost:     latest,
		DiscoveredFrom: item.Source.Provenance(),
		Depth:          depth,
		DiscoveredAt:   e.deps.Now(),
	}
	s.AddBlog(dom, rec)

	log.Info("added blog", "name", latest.BlogName, "latest_post", latest.Title)
	if rec.DiscoveredFrom != nil {
		log.Info("discovered from", "source", rec.DiscoveredFrom.SourceBlogName, "post", rec.DiscoveredFrom.SourcePostTitle)
	}

	// First post to mention a URL wins as its provenance.
	log.Info("scanning posts for new blog links", "posts", len(posts))
	type sourced struct {
		url string
		src domain.DiscoverySource
	}
	var candidates []sourced
	seen := make(map[string]struct{})
	for _, post := range posts {
		for _, link := range e.deps.Extractor.ExtractCandidates(post.RawHTML, post.Link) {
			if _, ok := seen[link]; ok {
				continue
			}
			seen[link] = struct{}{}
			candidates = append(candidates, sourced{
				url: link,
				src: domain.DiscoverySource{
					SourceBlog:      item.URL,
					SourceBlogName:  latest.BlogName,
					SourcePostTitle: post.Title,
					SourcePostLink:  post.Link,
					ParentDepth:     depth,
				},
			})
		}
	}

	added := 0
	for _, c := range candidates {
		newDom := urlutil.CanonicalDomain(c.url)
		if newDom == "" || s.Processed.Has(newDom) || s.Queued.Has(newDom) {
			continue
		}
		src := c.src
		e.deps.Frontier.Add(domain.FrontierItem{URL: c.url, Source: &src})
		s.Queued.Add(newDom)
		added++
	}

	if added > 0 {
		log.Info("new blogs queued", "count", added, "from_posts", len(posts))
	} else {
		log.Info("no new blogs found", "posts", len(posts))
	}
}

func (e *Engine) checkpoint() {
	if err := e.deps.Store.Save(e.deps.State, e.deps.Frontier.Snapshot()); err != nil {
		e.deps.Log.Error("checkpoint save failed", "error", err)
	}
}
