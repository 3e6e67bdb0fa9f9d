package robots

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"

	"blogdiscover/internal/infrastructure/fetch"
	"blogdiscover/internal/ports"
	"blogdiscover/internal/urlutil"
)

var permissive = must(robotstxt.FromString(""))

func must(d *robotstxt.RobotsData, err error) *robotstxt.RobotsData {
	if err != nil {
		panic(err)
	}
	return d
}

// Gatekeeper checks URLs against robots.txt, caching parsed rules per
// canonical domain. Any failure to fetch or parse robots.txt permits
// the URL.
type Gatekeeper struct {
	client  *fetch.Client
	timeout time.Duration
	log     *slog.Logger

	mu    sync.Mutex
	cache map[string]*robotstxt.RobotsData
}

var _ ports.RobotsGate = (*Gatekeeper)(nil)

func New(client *fetch.Client, probeTimeout time.Duration, log *slog.Logger) *Gatekeeper {
	return &Gatekeeper{
		client:  client,
		timeout: probeTimeout,
		log:     log.With("component", "robots"),
		cache:   make(map[string]*robotstxt.RobotsData),
	}
}

// IsAllowed reports whether the wildcard agent may fetch rawURL.
func (g *Gatekeeper) IsAllowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true
	}
	data := g.rulesFor(ctx, urlutil.CanonicalDomain(rawURL))

	path := u.Path
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return data.TestAgent(path, "*")
}

func (g *Gatekeeper) rulesFor(ctx context.Context, domain string) *robotstxt.RobotsData {
	if domain == "" {
		return permissive
	}

	g.mu.Lock()
	if data, ok := g.cache[domain]; ok {
		g.mu.Unlock()
		return data
	}
	g.mu.Unlock()

	data := g.fetchRules(ctx, domain)

	g.mu.Lock()
	g.cache[domain] = data
	g.mu.Unlock()
	return data
}

func (g *Gatekeeper) fetchRules(ctx context.Context, domain string) *robotstxt.RobotsData {
	resp, err := g.client.Get(ctx, "https://"+domain+"/robots.txt", g.timeout)
	if err != nil {
		g.log.Debug("robots.txt unreachable, allowing all", "domain", domain, "error", err)
		return permissive
	}
	if resp.StatusCode != 200 {
		return permissive
	}
	data, err := robotstxt.FromBytes(resp.Body)
	if err != nil {
		g.log.Debug("robots.txt unparsable, allowing all", "domain", domain, "error", err)
		return permissive
	}
	return data
}
