package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"blogdiscover/internal/domain"
)

// resultsBlog is a BlogRecord flattened with its domain key for the
// results file.
type resultsBlog struct {
	Domain string `json:"domain"`
	domain.BlogRecord
}

type resultsFile struct {
	CrawledAt   time.Time     `json:"crawled_at"`
	TotalBlogs  int           `json:"total_blogs"`
	TargetBlogs int           `json:"target_blogs"`
	Blogs       []resultsBlog `json:"blogs"`
}

// WriteResults exports discovered blogs sorted by latest-post date,
// newest first, records without a date last. The schema is read by the
// results viewer and must stay stable.
func WriteResults(path string, s *DiscoveryState, target int, now time.Time) error {
	blogs := make([]resultsBlog, 0, len(s.Discovered))
	for dom, rec := range s.Discovered {
		blogs = append(blogs, resultsBlog{Domain: dom, BlogRecord: rec})
	}

	sort.SliceStable(blogs, func(i, j int) bool {
		pi, pj := blogs[i].LatestPost.Published, blogs[j].LatestPost.Published
		switch {
		case pi == nil:
			return false
		case pj == nil:
			return true
		default:
			return pi.After(*pj)
		}
	})

	out := resultsFile{
		CrawledAt:   now,
		TotalBlogs:  len(blogs),
		TargetBlogs: target,
		Blogs:       blogs,
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create results dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}
