package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv = "BLOGDISCOVER_CONFIG"
	strategyEnv   = "BLOGDISCOVER_STRATEGY"
	targetEnv     = "BLOGDISCOVER_TARGET"
	seedFileEnv   = "BLOGDISCOVER_SEEDS"
)

// Config holds every setting the discovery engine and its adapters need.
// It is built once at startup and passed by value into constructors.
type Config struct {
	Crawl   CrawlConfig   `yaml:"crawl"`
	HTTP    HTTPConfig    `yaml:"http"`
	Paths   PathConfig    `yaml:"paths"`
	Filters FilterConfig  `yaml:"filters"`
	Logging LoggingConfig `yaml:"logging"`
}

// CrawlConfig bounds the traversal and its cadence.
type CrawlConfig struct {
	MaxBlogs            int    `yaml:"maxBlogs"`
	MaxPostsPerFeed     int    `yaml:"maxPostsPerFeed"`
	CheckpointInterval  int    `yaml:"checkpointInterval"`
	QueueStrategy       string `yaml:"queueStrategy"`
	RequestTimeoutSecs  int    `yaml:"requestTimeoutSeconds"`
	ProbeTimeoutSecs    int    `yaml:"probeTimeoutSeconds"`
	MinDelaySecs        int    `yaml:"minDelaySeconds"`
	PolitenessDelaySecs int    `yaml:"politenessDelaySeconds"`
}

// RequestTimeout is the per-request socket timeout for page and feed fetches.
func (c CrawlConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSecs) * time.Second
}

// ProbeTimeout is the shorter timeout used for robots.txt and sitemap probes.
func (c CrawlConfig) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutSecs) * time.Second
}

// MinDelay is the minimum spacing between requests to one domain.
func (c CrawlConfig) MinDelay() time.Duration {
	return time.Duration(c.MinDelaySecs) * time.Second
}

// PolitenessDelay is applied after every classification attempt.
func (c CrawlConfig) PolitenessDelay() time.Duration {
	return time.Duration(c.PolitenessDelaySecs) * time.Second
}

// HTTPConfig describes the outbound client.
type HTTPConfig struct {
	UserAgent          string `yaml:"userAgent"`
	InsecureSkipVerify bool   `yaml:"insecureSkipVerify"`
	MaxBodyBytes       int64  `yaml:"maxBodyBytes"`
}

// PathConfig locates inputs and outputs.
type PathConfig struct {
	OutputDir      string `yaml:"outputDir"`
	CheckpointFile string `yaml:"checkpointFile"`
	ResultsFile    string `yaml:"resultsFile"`
	SeedFile       string `yaml:"seedFile"`
	ArchiveDir     string `yaml:"archiveDir"`
}

// FilterConfig carries the heuristic vocabularies of the validator,
// the discoverer, and the blacklist policy.
type FilterConfig struct {
	AllowedTLDs         []string `yaml:"allowedTLDs"`
	SkipDomains         []string `yaml:"skipDomains"`
	BlogIndicators      []string `yaml:"blogIndicators"`
	DangerousExtensions []string `yaml:"dangerousExtensions"`
	PlatformBaseDomains []string `yaml:"platformBaseDomains"`
}

// LoggingConfig controls slog construction.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads YAML configuration (if present) and applies environment
// overrides. A missing or malformed file falls back to defaults.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(strategyEnv); v != "" {
		c.Crawl.QueueStrategy = v
	}
	if v := os.Getenv(seedFileEnv); v != "" {
		c.Paths.SeedFile = v
	}
	if v := os.Getenv(targetEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Crawl.MaxBlogs = n
		}
	}
}

func mergeConfig(base, override Config) Config {
	if override.Crawl.MaxBlogs > 0 {
		base.Crawl.MaxBlogs = override.Crawl.MaxBlogs
	}
	if override.Crawl.MaxPostsPerFeed > 0 {
		base.Crawl.MaxPostsPerFeed = override.Crawl.MaxPostsPerFeed
	}
	if override.Crawl.CheckpointInterval > 0 {
		base.Crawl.CheckpointInterval = override.Crawl.CheckpointInterval
	}
	if override.Crawl.QueueStrategy != "" {
		base.Crawl.QueueStrategy = override.Crawl.QueueStrategy
	}
	if override.Crawl.RequestTimeoutSecs > 0 {
		base.Crawl.RequestTimeoutSecs = override.Crawl.RequestTimeoutSecs
	}
	if override.Crawl.ProbeTimeoutSecs > 0 {
		base.Crawl.ProbeTimeoutSecs = override.Crawl.ProbeTimeoutSecs
	}
	if override.Crawl.MinDelaySecs > 0 {
		base.Crawl.MinDelaySecs = override.Crawl.MinDelaySecs
	}
	if override.Crawl.PolitenessDelaySecs > 0 {
		base.Crawl.PolitenessDelaySecs = override.Crawl.PolitenessDelaySecs
	}

	if override.HTTP.UserAgent != "" {
		base.HTTP.UserAgent = override.HTTP.UserAgent
	}
	if override.HTTP.MaxBodyBytes > 0 {
		base.HTTP.MaxBodyBytes = override.HTTP.MaxBodyBytes
	}

	if override.Paths.OutputDir != "" {
		base.Paths.OutputDir = override.Paths.OutputDir
	}
	if override.Paths.CheckpointFile != "" {
		base.Paths.CheckpointFile = override.Paths.CheckpointFile
	}
	if override.Paths.ResultsFile != "" {
		base.Paths.ResultsFile = override.Paths.ResultsFile
	}
	if override.Paths.SeedFile != "" {
		base.Paths.SeedFile = override.Paths.SeedFile
	}
	if override.Paths.ArchiveDir != "" {
		base.Paths.ArchiveDir = override.Paths.ArchiveDir
	}

	if len(override.Filters.AllowedTLDs) > 0 {
		base.Filters.AllowedTLDs = override.Filters.AllowedTLDs
	}
	if len(override.Filters.SkipDomains) > 0 {
		base.Filters.SkipDomains = override.Filters.SkipDomains
	}
	if len(override.Filters.BlogIndicators) > 0 {
		base.Filters.BlogIndicators = override.Filters.BlogIndicators
	}
	if len(override.Filters.DangerousExtensions) > 0 {
		base.Filters.DangerousExtensions = override.Filters.DangerousExtensions
	}
	if len(override.Filters.PlatformBaseDomains) > 0 {
		base.Filters.PlatformBaseDomains = override.Filters.PlatformBaseDomains
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Crawl: CrawlConfig{
			MaxBlogs:            250,
			MaxPostsPerFeed:     20,
			CheckpointInterval:  5,
			QueueStrategy:       "breadth_first",
			RequestTimeoutSecs:  10,
			ProbeTimeoutSecs:    5,
			MinDelaySecs:        2,
			PolitenessDelaySecs: 1,
		},
		HTTP: HTTPConfig{
			UserAgent:          "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
			InsecureSkipVerify: true,
			MaxBodyBytes:       10 * 1024 * 1024,
		},
		Paths: PathConfig{
			OutputDir:      "json",
			CheckpointFile: "crawler_checkpoint.json",
			ResultsFile:    "discovery_results.json",
			SeedFile:       "seeds.txt",
			ArchiveDir:     "archive",
		},
		Filters: FilterConfig{
			AllowedTLDs: []string{
				".com", ".org", ".net", ".edu", ".gov", ".mil", ".int",
				".io", ".co", ".ai", ".dev", ".app", ".me", ".info", ".biz",
				".xyz", ".tech", ".site", ".online",
				".uk", ".ca", ".au", ".nz", ".de", ".fr", ".jp", ".tr",
				".br", ".in", ".us", ".eu", ".nl", ".se", ".no", ".es",
				".it", ".ch", ".at", ".dk", ".be", ".pl", ".ru", ".cn",
				".kr", ".sg", ".hk", ".tw",
			},
			SkipDomains: []string{
				"twitter.com", "x.com", "facebook.com", "linkedin.com",
				"youtube.com", "github.com", "arxiv.org", "wikipedia.org",
				"doi.org", "jstor.org", "researchgate.net", "scholar.google.com",
				"amazon.com", "reddit.com", "stackoverflow.com", "google.com",
				"microsoft.com", "apple.com", "cran.r-project.org", "pypi.org",
				"imgur.com", "gstatic.com", "googleapis.com", "cloudflare.com",
				"feedburner.com", "gravatar.com", "wp.com",
			},
			BlogIndicators: []string{
				"blog", "posts", "articles", "wordpress", "blogspot",
				"medium.com", "substack", "ghost.io", "write.as", "tumblr",
				"github.io", "netlify.app",
			},
			DangerousExtensions: []string{
				".exe", ".sh", ".bash", ".bat", ".cmd", ".scr",
				".vbs", ".jar", ".deb", ".rpm", ".dmg",
				".pkg", ".msi", ".dll", ".so", ".dylib", ".bin",
			},
			PlatformBaseDomains: []string{
				"github.com", "microsoft.com", "google.com", "apple.com",
				"facebook.com", "amazon.com", "youtube.com", "twitter.com",
				"linkedin.com", "reddit.com", "stackoverflow.com",
				"wikipedia.org", "arxiv.org",
			},
		},
		Logging: LoggingConfig{Level: "info"},
	}
}
