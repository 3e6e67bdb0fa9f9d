package state

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"blogdiscover/internal/domain"
)

// checkpointFile is the single supported on-disk checkpoint schema.
type checkpointFile struct {
	Timestamp         time.Time                    `json:"timestamp"`
	DiscoveredBlogs   map[string]domain.BlogRecord `json:"discovered_blogs"`
	ProcessedDomains  StringSet                    `json:"processed_domains"`
	FailedDomains     StringSet                    `json:"failed_domains"`
	FailedBaseDomains StringSet                    `json:"failed_base_domains"`
	QueuedDomains     StringSet                    `json:"queued_domains"`
	BlogsToProcess    []domain.FrontierItem        `json:"blogs_to_process"`
}

// Store persists and restores discovery state as a JSON checkpoint file.
type Store struct {
	path string
	log  *slog.Logger
}

// NewStore builds a checkpoint store for the given file path.
func NewStore(path string, log *slog.Logger) *Store {
	return &Store{path: path, log: log}
}

// Path returns the checkpoint file location.
func (st *Store) Path() string { return st.path }

// Save writes state plus the frontier snapshot atomically (temp file then
// rename) so a crash mid-write never leaves a torn checkpoint.
func (st *Store) Save(s *DiscoveryState, frontier []domain.FrontierItem) error {
	cp := checkpointFile{
		Timestamp:         time.Now(),
		DiscoveredBlogs:   s.Discovered,
		ProcessedDomains:  s.Processed,
		FailedDomains:     s.Failed,
		FailedBaseDomains: s.FailedBases,
		QueuedDomains:     s.Queued,
		BlogsToProcess:    frontier,
	}
	if cp.BlogsToProcess == nil {
		cp.BlogsToProcess = []domain.FrontierItem{}
	}

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(st.path), 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}

	tmpPath := st.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write tmp checkpoint: %w", err)
	}
	if err := os.Rename(tmpPath, st.path); err != nil {
		return fmt.Errorf("rename checkpoint: %w", err)
	}

	st.log.Info("checkpoint saved",
		"blogs", len(s.Discovered),
		"queued", len(frontier),
		"pending", s.Queued.Len(),
		"blacklisted", s.FailedBases.Len())
	return nil
}

// Load reads a checkpoint from the given path. A missing file is not an
// error: it returns a nil state meaning "start fresh".
func Load(path string) (*DiscoveryState, []domain.FrontierItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("read checkpoint: %w", err)
	}

	var cp checkpointFile
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, nil, fmt.Errorf("parse checkpoint: %w", err)
	}

	s := New()
	s.Timestamp = cp.Timestamp
	if cp.DiscoveredBlogs != nil {
		s.Discovered = cp.DiscoveredBlogs
	}
	if cp.ProcessedDomains != nil {
		s.Processed = cp.ProcessedDomains
	}
	if cp.FailedDomains != nil {
		s.Failed = cp.FailedDomains
	}
	if cp.FailedBaseDomains != nil {
		s.FailedBases = cp.FailedBaseDomains
	}
	if cp.QueuedDomains != nil {
		s.Queued = cp.QueuedDomains
	}
	return s, cp.BlogsToProcess, nil
}
