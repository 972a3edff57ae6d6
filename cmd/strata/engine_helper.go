package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"strata/internal/config"
	"strata/internal/engine"
	"strata/internal/slogutil"
)

// getRepoRoot returns the project root directory.
func getRepoRoot() (string, error) {
	return os.Getwd()
}

// newContext creates a context cancelled on interrupt.
func newContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// newLogger builds the stderr logger. -v and -q win over the configured
// level; with logging.file set the run is also appended to .strata/logs.
func newLogger(repoRoot string, cfg *config.Config) (*slog.Logger, io.Closer, error) {
	level := slogutil.LevelFromString(cfg.Logging.Level)
	if verbosity > 0 || quiet {
		level = slogutil.LevelFromVerbosity(verbosity, quiet)
	}
	if !cfg.Logging.File {
		return slogutil.NewLogger(os.Stderr, level), io.NopCloser(nil), nil
	}
	return slogutil.NewRunLogger(os.Stderr, level, filepath.Join(repoRoot, config.Dir, "logs"))
}

// loadEngine loads the project configuration and creates an engine.
func loadEngine() (*engine.Engine, func(), error) {
	repoRoot, err := getRepoRoot()
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.LoadConfig(repoRoot)
	if err != nil {
		return nil, nil, err
	}
	logger, closer, err := newLogger(repoRoot, cfg)
	if err != nil {
		return nil, nil, err
	}
	return engine.New(repoRoot, cfg, logger), func() { _ = closer.Close() }, nil
}
