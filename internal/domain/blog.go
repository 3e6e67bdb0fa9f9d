package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// PostRecord is a single normalized feed entry. Immutable once parsed.
type PostRecord struct {
	Title       string     `json:"title"`
	Link        string     `json:"link"`
	Published   *time.Time `json:"published"`
	Summary     string     `json:"summary"`
	FullContent string     `json:"full_content"`
	RawHTML     string     `json:"raw_html"`
	FeedURL     string     `json:"feed_url"`
	BlogName    string     `json:"blog_name"`
}

// PublishedUnix returns the publication time for ordering; entries without
// a date sort as zero.
func (p PostRecord) PublishedUnix() int64 {
	if p.Published == nil {
		return 0
	}
	return p.Published.Unix()
}

// DiscoverySource records where a candidate was found. ParentDepth is
// frontier bookkeeping only and is dropped when a BlogRecord is created.
type DiscoverySource struct {
	SourceBlog      string `json:"source_blog"`
	SourceBlogName  string `json:"source_blog_name"`
	SourcePostTitle string `json:"source_post_title"`
	SourcePostLink  string `json:"source_post_link"`
	ParentDepth     int    `json:"parent_depth"`
}

// DiscoveredFrom is the provenance retained on a BlogRecord.
type DiscoveredFrom struct {
	SourceBlog      string `json:"source_blog"`
	SourceBlogName  string `json:"source_blog_name"`
	SourcePostTitle string `json:"source_post_title"`
	SourcePostLink  string `json:"source_post_link"`
}

// Provenance converts the frontier-side source into record provenance.
func (s *DiscoverySource) Provenance() *DiscoveredFrom {
	if s == nil {
		return nil
	}
	return &DiscoveredFrom{
		SourceBlog:      s.SourceBlog,
		SourceBlogName:  s.SourceBlogName,
		SourcePostTitle: s.SourcePostTitle,
		SourcePostLink:  s.SourcePostLink,
	}
}

// BlogRecord is a confirmed discovery, keyed by canonical domain in the
// state store. Created once, never mutated.
type BlogRecord struct {
	URL            string          `json:"url"`
	Name           string          `json:"name"`
	FeedURL        string          `json:"feed_url"`
	LatestPost     PostRecord      `json:"latest_post"`
	DiscoveredFrom *DiscoveredFrom `json:"discovered_from"`
	Depth          int             `json:"depth"`
	DiscoveredAt   time.Time       `json:"discovered_at"`
}

// FrontierItem is a pending discovery candidate. Source is nil for seeds.
type FrontierItem struct {
	URL    string
	Source *DiscoverySource
}

// Depth returns the depth this item would be recorded at if accepted.
func (it FrontierItem) Depth() int {
	if it.Source == nil {
		return 0
	}
	return it.Source.ParentDepth + 1
}

// MarshalJSON encodes the item as a [url, source|null] pair so the
// checkpoint preserves frontier order in a compact, stable form.
func (it FrontierItem) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{it.URL, it.Source})
}

// UnmarshalJSON decodes the [url, source|null] pair form.
func (it *FrontierItem) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("frontier item: want 2 elements, got %d", len(pair))
	}
	if err := json.Unmarshal(pair[0], &it.URL); err != nil {
		return fmt.Errorf("frontier item url: %w", err)
	}
	it.Source = nil
	if string(pair[1]) != "null" {
		var src DiscoverySource
		if err := json.Unmarshal(pair[1], &src); err != nil {
			return fmt.Errorf("frontier item source: %w", err)
		}
		it.Source = &src
	}
	return nil
}

// FeedProbeStatus classifies the outcome of feed discovery for a site.
type FeedProbeStatus string

const (
	// ProbeSuccess means at least one feed candidate was produced.
	ProbeSuccess FeedProbeStatus = "success"
	// ProbeHasIndicators means blog-ish signals were seen but no candidate.
	ProbeHasIndicators FeedProbeStatus = "has_blog_indicators"
	// ProbeNoIndicators means nothing blog-like was seen.
	ProbeNoIndicators FeedProbeStatus = "no_blog_indicators"
	// ProbeUnreachable means the site root could not be fetched or parsed.
	ProbeUnreachable FeedProbeStatus = "unreachable"
)
