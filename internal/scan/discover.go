package scan

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ScanFile is one eligible raw scan observed during a discovery pass.
// Instances are rebuilt on every pass; filesystem metadata is never cached
// across passes. The file may vanish at any time after discovery, so later
// stages re-check existence before acting.
type ScanFile struct {
	Path       string // absolute path, identity of the file
	Name       string // raw directory entry name
	Normalized string // NFKC form of Name
	Ext        string // lower-cased extension including the dot
	CreatedAt  time.Time
}

// NewScanFile builds a ScanFile from a path and its creation timestamp.
func NewScanFile(path string, createdAt time.Time) ScanFile {
	name := filepath.Base(path)
	return ScanFile{
		Path:       path,
		Name:       name,
		Normalized: Normalize(name),
		Ext:        strings.ToLower(filepath.Ext(name)),
		CreatedAt:  createdAt,
	}
}

// Discover lists dir non-recursively and returns the regular files whose
// names match the raw-scan pattern and that the tracker has not seen yet.
// The result is unordered; callers impose ordering. An unreadable directory
// is returned as an error so the caller can log it and treat the pass as
// empty. A file that vanishes between listing and stat is logged and skipped.
func Discover(dir string, tracker Tracker) ([]ScanFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scan folder %s: %w", dir, err)
	}

	var files []ScanFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !Matches(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if tracker.Seen(path) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			slog.Warn("File vanished during discovery. Skipping.", "path", path, "error", err)
			continue
		}
		files = append(files, NewScanFile(path, info.ModTime()))
	}
	return files, nil
}
