// Command scannamer watches a folder for raw scanner output and renames each
// document (or group of pages) based on what the document actually contains.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Lllllllleong/scannamer/internal/agent"
	"github.com/Lllllllleong/scannamer/internal/config"
	"github.com/Lllllllleong/scannamer/internal/gcp"
	"github.com/Lllllllleong/scannamer/internal/scan"
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)
}

func main() {
	if err := run(); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		slog.Error("Scan agent error.", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := config.ParseFlags(cfg, os.Args[1:]); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Diagnostic {
		return agent.Diagnose(cfg.ScanFolder)
	}

	vertexClient, err := gcp.NewVertexClient(ctx, gcp.VertexConfig{
		ProjectID:       cfg.ProjectID,
		Region:          cfg.Region,
		Model:           cfg.Model,
		CredentialsFile: cfg.CredentialsFile,
	})
	if err != nil {
		return fmt.Errorf("failed to create vertex client: %w", err)
	}
	defer vertexClient.Close()

	ag := agent.New(cfg, scan.NewMemoryTracker(), vertexClient)
	slog.Info("Scan agent initialized.", "folder", cfg.ScanFolder)

	if cfg.Continuous {
		return ag.Watch(ctx)
	}
	ag.RunOnce(ctx)
	return nil
}

// setupLogging rebuilds the default logger once the configuration is known:
// level from LOG_LEVEL, optionally mirroring the stream into LOG_FILE.
func setupLogging(cfg *config.Config) {
	out := io.Writer(os.Stdout)
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			slog.Warn("Could not open log file. Logging to stdout only.", "path", cfg.LogFile, "error", err)
		} else {
			out = io.MultiWriter(os.Stdout, f)
		}
	}
	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: cfg.SlogLevel()})
	slog.SetDefault(slog.New(handler))
}
