// Package config loads the agent's settings from the environment (with .env
// support) and applies command-line overrides.
package config

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the agent's complete configuration, consumed once at startup.
type Config struct {
	// Watched folder and pacing.
	ScanFolder    string        // SCAN_FOLDER_PATH (required)
	CheckInterval time.Duration // CHECK_INTERVAL, seconds, default 60
	Continuous    bool          // CONTINUOUS_MONITORING, default false

	// Vertex AI settings.
	ProjectID       string // PROJECT_ID (required unless diagnostic)
	Region          string // VERTEX_AI_REGION, default us-central1
	Model           string // GEMINI_MODEL, default gemini-1.5-flash
	CredentialsFile string // GOOGLE_APPLICATION_CREDENTIALS, optional

	// Logging.
	LogLevel string // LOG_LEVEL, default info
	LogFile  string // LOG_FILE, optional mirror of the log stream

	// Operator flags.
	Force      bool // clear the processed set before each pass
	Diagnostic bool // list and pattern-check only; no renames, no model calls
}

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// Load reads configuration from a .env file (when present) and the
// environment. Flag overrides are applied separately by ParseFlags.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found. Using environment variables.")
	}

	intervalSecs, err := strconv.Atoi(GetEnv("CHECK_INTERVAL", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid CHECK_INTERVAL: %w", err)
	}

	return &Config{
		ScanFolder:      GetEnv("SCAN_FOLDER_PATH", ""),
		CheckInterval:   time.Duration(intervalSecs) * time.Second,
		Continuous:      strings.EqualFold(GetEnv("CONTINUOUS_MONITORING", "false"), "true"),
		ProjectID:       GetEnv("PROJECT_ID", ""),
		Region:          GetEnv("VERTEX_AI_REGION", "us-central1"),
		Model:           GetEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		CredentialsFile: GetEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		LogLevel:        GetEnv("LOG_LEVEL", "info"),
		LogFile:         GetEnv("LOG_FILE", ""),
	}, nil
}

// ParseFlags applies command-line overrides to cfg. -continuous takes
// precedence over -once when both are given.
func ParseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("scannamer", flag.ContinueOnError)

	var force, continuous, once, diagnostic bool
	var dir string
	registerBool(fs, &force, "force", "f", "reprocess matching files even if already handled this run")
	registerBool(fs, &continuous, "continuous", "c", "run in continuous monitoring mode")
	registerBool(fs, &once, "once", "o", "run a single pass and exit")
	registerBool(fs, &diagnostic, "diagnostic", "d", "list files and check pattern matching only; no renames, no model calls")
	fs.StringVar(&dir, "dir", "", "override the watched folder path")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}

	cfg.Force = force
	cfg.Diagnostic = diagnostic
	if continuous {
		cfg.Continuous = true
	} else if once {
		cfg.Continuous = false
	}
	if dir != "" {
		cfg.ScanFolder = dir
	}
	return nil
}

func registerBool(fs *flag.FlagSet, v *bool, long, short, usage string) {
	fs.BoolVar(v, long, false, usage)
	fs.BoolVar(v, short, false, usage+" (shorthand)")
}

// Validate checks the startup requirements. Failures here are fatal; nothing
// else in the process re-reads configuration.
func (c *Config) Validate() error {
	if c.ScanFolder == "" {
		return fmt.Errorf("SCAN_FOLDER_PATH environment variable must be set")
	}
	info, err := os.Stat(c.ScanFolder)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("scan folder does not exist or is not a directory: %s", c.ScanFolder)
	}
	if c.CheckInterval <= 0 {
		return fmt.Errorf("CHECK_INTERVAL must be a positive number of seconds")
	}
	if !c.Diagnostic && c.ProjectID == "" {
		return fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	return nil
}

// SlogLevel maps the configured log level to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
