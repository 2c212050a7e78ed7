// Package main provides the mist-scatter CLI entry point.
//
// mist-scatter generates deterministic decorative particle layouts: the same
// seed and count always yield the same particles, in any process. It prints
// layers as JSON, CSS or text, summarises their distributions, renders PNG
// previews, serves them over HTTP, verifies a running server, and previews
// them interactively in the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/randomizedcoder/go-mist-scatter/internal/app"
	"github.com/randomizedcoder/go-mist-scatter/internal/config"
	"github.com/randomizedcoder/go-mist-scatter/internal/logging"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0" ./cmd/mist-scatter
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// Handle version flag early (before flag parsing)
	if len(os.Args) > 1 {
		arg := os.Args[1]
		if arg == "-version" || arg == "--version" || arg == "version" {
			fmt.Printf("mist-scatter %s\n", version)
			return 0
		}
	}

	cfg, err := config.ParseFlags()
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		return 1
	}

	// When TUI is enabled, suppress logs to avoid interfering with TUI rendering
	var logger *slog.Logger
	if cfg.TUIEnabled {
		logger = logging.Discard()
	} else {
		logger = logging.New(logging.Options{
			Writer:  os.Stderr,
			Format:  cfg.LogFormat,
			Level:   cfg.LogLevel,
			Verbose: cfg.Verbose,
		})
	}
	logging.SetDefault(logger)

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}

	logger.Debug("starting",
		"version", version,
		"mode", string(cfg.Mode()),
		"layers", cfg.Layers,
	)

	if err := app.New(cfg, logger, version, os.Stdout).Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	return 0
}
