// Package agent orchestrates the scan-renaming passes: discovery, grouping,
// suggestion calls, and renames, in one-shot and continuous modes.
package agent

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Lllllllleong/scannamer/internal/config"
	"github.com/Lllllllleong/scannamer/internal/payload"
	"github.com/Lllllllleong/scannamer/internal/scan"
)

// Suggester produces a filename suggestion for first-page document bytes.
// The real implementation talks to Vertex AI; tests inject fakes.
type Suggester interface {
	SuggestName(ctx context.Context, mime string, data []byte) (string, error)
}

// RunStats summarizes one pass. Skipped and Failed count files, not groups.
type RunStats struct {
	Discovered int
	Groups     int
	Renamed    int
	Skipped    int
	Failed     int
}

// Agent owns one watched folder and the collaborators needed to process it.
type Agent struct {
	cfg       *config.Config
	tracker   scan.Tracker
	suggester Suggester
	now       func() time.Time
}

// New wires an agent from its collaborators.
func New(cfg *config.Config, tracker scan.Tracker, suggester Suggester) *Agent {
	return &Agent{
		cfg:       cfg,
		tracker:   tracker,
		suggester: suggester,
		now:       time.Now,
	}
}

// RunOnce performs a single pass: discover, group, and process every group.
// Errors never escape a pass; a panic is caught here so a continuous loop
// survives arbitrary per-pass failures.
func (a *Agent) RunOnce(ctx context.Context) (stats RunStats) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Unexpected failure during pass.", "panic", r)
		}
	}()

	if a.cfg.Force {
		dropped := a.tracker.Clear()
		slog.Info("Force reprocess enabled. Cleared processed set.", "dropped", dropped)
	}

	files, err := scan.Discover(a.cfg.ScanFolder, a.tracker)
	if err != nil {
		slog.Warn("Discovery failed. Treating pass as empty.", "error", err)
		return stats
	}
	stats.Discovered = len(files)
	if len(files) == 0 {
		slog.Info("No new files to process.")
		return stats
	}

	groups := scan.BuildGroups(files)
	stats.Groups = len(groups)
	slog.Info("Found files to process.", "files", len(files), "groups", len(groups))

	for _, g := range groups {
		if ctx.Err() != nil {
			slog.Info("Pass interrupted. Remaining files are left for the next run.")
			return stats
		}
		a.processGroup(ctx, g, &stats)
	}

	slog.Info("Pass complete.",
		"discovered", stats.Discovered,
		"groups", stats.Groups,
		"renamed", stats.Renamed,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
	)
	return stats
}

// processGroup names and renames the pages of one document group. Every file
// is marked processed up front, before the model call: a group that fails
// past this point is not retried for the rest of the process lifetime. This
// at-most-once tradeoff keeps a slow or failing model from being hammered on
// every poll interval.
func (a *Agent) processGroup(ctx context.Context, g scan.Group, stats *RunStats) {
	logCtx := slog.With("group", g.Index, "groupLabel", g.Label, "pages", len(g.Files))

	for _, f := range g.Files {
		a.tracker.Mark(f.Path)
	}

	anchor := g.Anchor()
	if _, err := os.Stat(anchor.Path); err != nil {
		logCtx.Warn("File no longer exists. Skipping group.", "path", anchor.Path)
		stats.Skipped += len(g.Files)
		return
	}

	if len(g.Files) > 1 {
		logCtx.Info("Processing multi-page document.", "firstPage", anchor.Name)
	} else {
		logCtx.Info("Processing scan.", "file", anchor.Name)
	}

	base, ok := a.suggestBaseName(ctx, logCtx, anchor)
	if !ok {
		stats.Skipped += len(g.Files)
		return
	}

	if len(g.Files) == 1 {
		a.renameFile(logCtx, anchor, base, stats)
		return
	}
	for i, f := range g.Files {
		a.renameFile(logCtx, f, scan.PageBaseName(base, i+1), stats)
	}
}

// ProcessFile is the push-path entry point: one freshly created file,
// processed alone. A single creation event cannot observe sibling pages, so
// push-triggered files are never grouped. Mark is the atomic
// check-then-add that keeps the push and poll paths from racing on the same
// file.
func (a *Agent) ProcessFile(ctx context.Context, path string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Unexpected failure while processing file.", "path", path, "panic", r)
		}
	}()

	if !scan.Matches(filepath.Base(path)) {
		return
	}
	if !a.tracker.Mark(path) {
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		slog.Warn("File no longer exists.", "path", path)
		return
	}
	f := scan.NewScanFile(path, info.ModTime())
	logCtx := slog.With("file", f.Name)
	logCtx.Info("Processing scan.")

	base, ok := a.suggestBaseName(ctx, logCtx, f)
	if !ok {
		return
	}
	var stats RunStats
	a.renameFile(logCtx, f, base, &stats)
}

// suggestBaseName builds the first-page payload, asks the model, and
// sanitizes the answer. An empty or failed suggestion returns ok=false; the
// caller skips the document, which stays marked processed.
func (a *Agent) suggestBaseName(ctx context.Context, logCtx *slog.Logger, f scan.ScanFile) (string, bool) {
	page, err := payload.FirstPage(f.Path)
	if err != nil {
		logCtx.Warn("Could not prepare document payload. Skipping.", "file", f.Name, "error", err)
		return "", false
	}

	suggestion, err := a.suggester.SuggestName(ctx, page.MIME, page.Data)
	if err != nil {
		logCtx.Warn("Could not get a filename suggestion. Skipping.", "file", f.Name, "error", err)
		return "", false
	}
	suggestion = strings.TrimSpace(suggestion)
	if suggestion == "" {
		logCtx.Warn("Model returned an empty suggestion. Skipping.", "file", f.Name)
		return "", false
	}

	logCtx.Info("Model suggested a name.", "suggestion", suggestion)
	return scan.SanitizeBaseName(suggestion, a.now()), true
}

func (a *Agent) renameFile(logCtx *slog.Logger, f scan.ScanFile, base string, stats *RunStats) {
	if _, err := os.Stat(f.Path); err != nil {
		logCtx.Warn("File no longer exists. Skipping.", "path", f.Path)
		stats.Skipped++
		return
	}
	target, err := scan.Rename(f.Path, base)
	if err != nil {
		logCtx.Error("Rename failed.", "file", f.Name, "error", err)
		stats.Failed++
		return
	}
	logCtx.Info("Renamed.", "from", f.Name, "to", filepath.Base(target))
	stats.Renamed++
}
