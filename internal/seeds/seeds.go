package seeds

import (
	"bufio"
	"log/slog"
	"os"
	"strings"
)

// Load reads newline-delimited seed URLs. Blank lines and lines starting
// with '#' are ignored. A missing file is non-fatal and yields an empty
// list.
func Load(path string, log *slog.Logger) []string {
	f, err := os.Open(path)
	if err != nil {
		log.Warn("seed file not readable", "path", path, "error", err)
		return nil
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		log.Warn("error reading seed file", "path", path, "error", err)
	}

	log.Info("loaded seed blogs", "count", len(urls), "path", path)
	return urls
}
