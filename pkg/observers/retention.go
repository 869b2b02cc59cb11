package observers

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// PurgeArtifacts removes timeline artifacts older than maxAge from dir.
// It returns the number of files removed.
func PurgeArtifacts(dir string, maxAge time.Duration) (int, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" || maxAge <= 0 {
		return 0, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}
