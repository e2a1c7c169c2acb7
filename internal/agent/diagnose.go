package agent

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Lllllllleong/scannamer/internal/scan"
)

// Diagnose lists the folder and reports pattern eligibility for every entry,
// plus the grouping the next pass would produce. No renames, no model calls,
// no processed-set writes.
func Diagnose(folder string) error {
	slog.Info("Diagnostic mode: listing files and checking pattern matching only.", "folder", folder)

	entries, err := os.ReadDir(folder)
	if err != nil {
		return fmt.Errorf("failed to read scan folder %s: %w", folder, err)
	}
	if len(entries) == 0 {
		slog.Info("Directory is empty.")
		return nil
	}

	var eligible []scan.ScanFile
	for _, entry := range entries {
		if entry.IsDir() {
			slog.Info("Directory entry.", "name", entry.Name())
			continue
		}

		matches := scan.Matches(entry.Name())
		logCtx := slog.With("name", entry.Name(), "matches", matches)
		if normalized := scan.Normalize(entry.Name()); normalized != entry.Name() {
			logCtx = logCtx.With("normalized", normalized)
		}
		logCtx.Info("File entry.")

		if !matches {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			slog.Warn("File vanished during listing.", "name", entry.Name())
			continue
		}
		eligible = append(eligible, scan.NewScanFile(filepath.Join(folder, entry.Name()), info.ModTime()))
	}

	groups := scan.BuildGroups(eligible)
	slog.Info("Diagnostic complete.", "entries", len(entries), "eligible", len(eligible), "groups", len(groups))
	return nil
}
