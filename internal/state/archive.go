package state

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ArchiveOutputs moves existing checkpoint/results files into the archive
// directory, suffixing each name with its blog count (when readable) and a
// timestamp. Used by fresh starts so old runs are kept, not clobbered.
func ArchiveOutputs(archiveDir string, files []string, now time.Time, log *slog.Logger) (int, error) {
	stamp := now.Format("20060102_150405")
	archived := 0

	for _, src := range files {
		if _, err := os.Stat(src); err != nil {
			continue
		}

		if err := os.MkdirAll(archiveDir, 0o755); err != nil {
			return archived, fmt.Errorf("create archive dir: %w", err)
		}

		base := filepath.Base(src)
		ext := filepath.Ext(base)
		stem := strings.TrimSuffix(base, ext)

		if n, ok := blogCount(src); ok {
			stem = fmt.Sprintf("%s_%d", stem, n)
		}

		dst := filepath.Join(archiveDir, fmt.Sprintf("%s_%s%s", stem, stamp, ext))
		if err := os.Rename(src, dst); err != nil {
			return archived, fmt.Errorf("archive %s: %w", src, err)
		}
		log.Info("archived output", "from", src, "to", dst)
		archived++
	}

	return archived, nil
}

// blogCount peeks into a JSON output file for a discovered_blogs map or a
// blogs array so the archive name reflects how far the run got.
func blogCount(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	var peek struct {
		DiscoveredBlogs map[string]json.RawMessage `json:"discovered_blogs"`
		Blogs           []json.RawMessage          `json:"blogs"`
	}
	if err := json.Unmarshal(data, &peek); err != nil {
		return 0, false
	}
	if peek.DiscoveredBlogs != nil {
		return len(peek.DiscoveredBlogs), true
	}
	if peek.Blogs != nil {
		return len(peek.Blogs), true
	}
	return 0, false
}
