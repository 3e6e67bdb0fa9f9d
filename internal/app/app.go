package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"path/filepath"
	"time"

	"blogdiscover/internal/config"
	"blogdiscover/internal/engine"
	"blogdiscover/internal/frontier"
	"blogdiscover/internal/infrastructure/discover"
	"blogdiscover/internal/infrastructure/extract"
	"blogdiscover/internal/infrastructure/feed"
	"blogdiscover/internal/infrastructure/fetch"
	"blogdiscover/internal/infrastructure/ratelimit"
	"blogdiscover/internal/infrastructure/robots"
	"blogdiscover/internal/logging"
	"blogdiscover/internal/seeds"
	"blogdiscover/internal/state"
	"blogdiscover/internal/urlutil"
	"blogdiscover/internal/validate"
)

// Options are the per-invocation switches that come from the CLI rather
// than configuration.
type Options struct {
	// CheckpointPath resumes from an explicit checkpoint file instead of
	// the default location. It must exist.
	CheckpointPath string
	// Fresh archives existing outputs before starting over.
	Fresh bool
}

// Application wires configuration into the discovery engine and runs one
// full discovery pass.
type Application struct {
	cfg  config.Config
	opts Options
	log  *slog.Logger
}

// New builds a runnable application instance.
func New(cfg config.Config, opts Options, baseLogger *slog.Logger) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	return &Application{cfg: cfg, opts: opts, log: baseLogger}
}

// Run executes a discovery pass: load or archive prior state, crawl until
// the target or queue is exhausted, then write results.
func (a *Application) Run(ctx context.Context) error {
	cfg := a.cfg
	log := a.log

	checkpointPath := filepath.Join(cfg.Paths.OutputDir, cfg.Paths.CheckpointFile)
	resultsPath := filepath.Join(cfg.Paths.OutputDir, cfg.Paths.ResultsFile)

	if a.opts.Fresh {
		log.Info("fresh start, archiving previous outputs")
		if _, err := state.ArchiveOutputs(cfg.Paths.ArchiveDir, []string{checkpointPath, resultsPath}, time.Now(), log); err != nil {
			return fmt.Errorf("archive outputs: %w", err)
		}
	}

	seedURLs := seeds.Load(cfg.Paths.SeedFile, log)
	if len(seedURLs) == 0 {
		return fmt.Errorf("no seed blogs found in %s", cfg.Paths.SeedFile)
	}

	limiter := ratelimit.New(cfg.Crawl.MinDelay())
	client := fetch.New(cfg.HTTP, limiter)
	gate := robots.New(client, cfg.Crawl.ProbeTimeout(), log)
	discoverer := discover.New(client, cfg.Crawl.RequestTimeout(), cfg.Crawl.ProbeTimeout(), log)
	fetcher := feed.New(client, cfg.Crawl.RequestTimeout(), cfg.Crawl.MaxPostsPerFeed, log)
	extractor := extract.New(validate.New(cfg.Filters))

	strategy := frontier.ParseStrategy(cfg.Crawl.QueueStrategy, log)
	fr := frontier.New(strategy, rand.New(rand.NewSource(time.Now().UnixNano())))

	st, err := a.loadState(checkpointPath, fr)
	if err != nil {
		return err
	}

	store := state.NewStore(checkpointPath, log.With("component", "checkpoint"))

	eng := engine.New(cfg, engine.Deps{
		Discoverer: discoverer,
		Fetcher:    fetcher,
		Extractor:  extractor,
		Robots:     gate,
		Frontier:   fr,
		State:      st,
		Store:      store,
		Log:        log.With("component", "engine"),
	})

	if err := eng.Run(ctx, seedURLs); err != nil {
		return err
	}

	if err := state.WriteResults(resultsPath, st, cfg.Crawl.MaxBlogs, time.Now()); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	log.Info("results written", "path", resultsPath, "blogs", len(st.Discovered))
	return nil
}

// loadState restores a checkpoint into the frontier and returns the
// state. A missing default checkpoint means a fresh start; a missing or
// unreadable explicit checkpoint is an error.
func (a *Application) loadState(defaultPath string, fr *frontier.Frontier) (*state.DiscoveryState, error) {
	path := defaultPath
	explicit := a.opts.CheckpointPath != ""
	if explicit {
		path = a.opts.CheckpointPath
		a.log.Info("loading checkpoint", "path", path)
	}

	st, items, err := state.Load(path)
	if err != nil {
		if explicit {
			return nil, fmt.Errorf("load checkpoint %s: %w", path, err)
		}
		a.log.Warn("checkpoint unusable, starting fresh", "path", path, "error", err)
		return state.New(), nil
	}
	if st == nil {
		if explicit {
			return nil, errors.New("checkpoint file not found: " + path)
		}
		a.log.Info("no checkpoint found, starting fresh")
		return state.New(), nil
	}

	fr.Restore(items)
	if st.Queued.Len() == 0 && len(items) > 0 {
		st.RebuildQueued(items, urlutil.CanonicalDomain)
	}

	a.log.Info("resumed from checkpoint",
		"blogs", len(st.Discovered),
		"queued", len(items),
		"pending", st.Queued.Len(),
		"blacklisted_bases", st.FailedBases.Len(),
		"saved_at", st.Timestamp)
	return st, nil
}
