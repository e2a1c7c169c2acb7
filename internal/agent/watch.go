package agent

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/Lllllllleong/scannamer/internal/scan"
	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"
)

const (
	// settleDelay gives the scanning app time to finish writing a file
	// after its creation event arrives. Heuristic, not a guarantee.
	settleDelay = 2 * time.Second

	watchQueueSize = 64
)

// Watch runs continuous mode: one initial pass, then a filesystem listener
// (push) and a poll ticker (pull) until ctx is cancelled. Both producers
// funnel into a single consumer goroutine which owns all processing, giving
// a single-writer discipline over the processed set. Push events handle one
// file at a time; the periodic pass catches anything the watcher missed and
// is the only place grouping happens.
func (a *Agent) Watch(ctx context.Context) error {
	slog.Info("Starting continuous monitoring.",
		"folder", a.cfg.ScanFolder,
		"interval", a.cfg.CheckInterval.String(),
	)

	a.RunOnce(ctx)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create filesystem watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(a.cfg.ScanFolder); err != nil {
		return fmt.Errorf("failed to watch %s: %w", a.cfg.ScanFolder, err)
	}

	created := make(chan string, watchQueueSize)
	ticks := make(chan struct{}, 1)

	eg, egCtx := errgroup.WithContext(ctx)

	// Push producer: forward creation events for eligible names.
	eg.Go(func() error {
		for {
			select {
			case <-egCtx.Done():
				return nil
			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if event.Op&fsnotify.Create == 0 {
					continue
				}
				if !scan.EligibleExt(event.Name) || !scan.Matches(filepath.Base(event.Name)) {
					continue
				}
				slog.Info("New scan detected.", "file", filepath.Base(event.Name))
				select {
				case created <- event.Name:
				case <-egCtx.Done():
					return nil
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				slog.Warn("Watcher error.", "error", err)
			}
		}
	})

	// Poll producer: marks time; the consumer runs the actual pass.
	eg.Go(func() error {
		ticker := time.NewTicker(a.cfg.CheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-egCtx.Done():
				return nil
			case <-ticker.C:
				select {
				case ticks <- struct{}{}:
				default: // a pass is already pending
				}
			}
		}
	})

	// Single consumer: the only goroutine that processes files.
	eg.Go(func() error {
		for {
			select {
			case <-egCtx.Done():
				return nil
			case path := <-created:
				select {
				case <-time.After(settleDelay):
				case <-egCtx.Done():
					return nil
				}
				a.ProcessFile(egCtx, path)
			case <-ticks:
				a.RunOnce(egCtx)
			}
		}
	})

	err = eg.Wait()
	slog.Info("Monitoring stopped.")
	return err
}
