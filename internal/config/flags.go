package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

// ParseFlags parses os.Args and returns a Config.
func ParseFlags() (*Config, error) {
	return ParseArgs(os.Args[1:], os.Stderr)
}

// ParseArgs parses args (without the program name) into a Config. Usage and
// parse errors are written to out.
func ParseArgs(args []string, out io.Writer) (*Config, error) {
	cfg := DefaultConfig()
	fs := flag.NewFlagSet("mist-scatter", flag.ContinueOnError)
	fs.SetOutput(out)

	fs.Usage = func() {
		fmt.Fprintf(out, `mist-scatter - deterministic decorative particle layouts

Usage:
  mist-scatter [flags] [layer...]

Layer Selection:
`)
		printFlagCategory(fs, out, []string{"layers", "seed", "count"})

		fmt.Fprintf(out, "\nOutput:\n")
		printFlagCategory(fs, out, []string{"format", "stats", "png", "png-width", "png-height"})

		fmt.Fprintf(out, "\nServer:\n")
		printFlagCategory(fs, out, []string{"serve", "max-count", "shutdown-timeout", "live-clients", "cache-size", "skip-preflight"})

		fmt.Fprintf(out, "\nVerification:\n")
		printFlagCategory(fs, out, []string{"verify", "verify-timeout", "verify-wait"})

		fmt.Fprintf(out, "\nDashboard:\n")
		printFlagCategory(fs, out, []string{"tui"})

		fmt.Fprintf(out, "\nObservability:\n")
		printFlagCategory(fs, out, []string{"v", "log-format", "log-level"})

		fmt.Fprintf(out, `
Examples:
  # Print the hero mist layer as JSON
  mist-scatter mist

  # Same layer, different seed, as inline CSS
  mist-scatter -seed 7 -format css mist

  # Serve layouts and metrics
  mist-scatter -serve 127.0.0.1:17095

  # Re-derive every served layer locally and compare
  mist-scatter -verify http://127.0.0.1:17095

`)
	}

	// Layer selection
	fs.StringVar(&cfg.LayersFile, "layers", cfg.LayersFile, "YAML file with extra layer definitions")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Override the base seed of selected layers")
	fs.IntVar(&cfg.Count, "count", cfg.Count, "Override the particle count of selected layers (-1 = layer default)")

	// Output
	fs.StringVar(&cfg.Format, "format", cfg.Format, `Print format: "json", "css" or "text"`)
	fs.BoolVar(&cfg.Stats, "stats", cfg.Stats, "Print per-field distribution summary")
	fs.StringVar(&cfg.PNGPath, "png", cfg.PNGPath, "Write a PNG preview of the first selected layer to this path")
	fs.IntVar(&cfg.PNGWidth, "png-width", cfg.PNGWidth, "PNG preview width in pixels")
	fs.IntVar(&cfg.PNGHeight, "png-height", cfg.PNGHeight, "PNG preview height in pixels")

	// Server
	fs.StringVar(&cfg.ServeAddr, "serve", cfg.ServeAddr, "Serve the layout API and metrics on this address")
	fs.IntVar(&cfg.MaxCount, "max-count", cfg.MaxCount, "Largest count accepted by the layout API")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "Graceful shutdown timeout")
	fs.IntVar(&cfg.LiveClients, "live-clients", cfg.LiveClients, "Expected concurrent websocket clients (sizes the preflight fd check)")
	fs.IntVar(&cfg.CacheSize, "cache-size", cfg.CacheSize, "Most generated layouts kept in memory (least recently used are evicted)")
	fs.BoolVar(&cfg.SkipPreflight, "skip-preflight", cfg.SkipPreflight, "Skip serve-mode preflight checks")

	// Verification
	fs.StringVar(&cfg.VerifyURL, "verify", cfg.VerifyURL, "Base URL of a running server to verify against")
	fs.DurationVar(&cfg.VerifyTimeout, "verify-timeout", cfg.VerifyTimeout, "HTTP timeout for verification requests")
	fs.DurationVar(&cfg.VerifyWait, "verify-wait", cfg.VerifyWait, "Keep retrying an unreachable server for this long (0 = fail fast)")

	// Dashboard
	fs.BoolVar(&cfg.TUIEnabled, "tui", cfg.TUIEnabled, "Interactive terminal preview")

	// Observability
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Verbose logging")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, `Log format: "json" or "text"`)
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, `Log level: "debug", "info", "warn" or "error"`)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			cfg.SeedSet = true
		}
	})

	cfg.Layers = fs.Args()

	return cfg, nil
}

// printFlagCategory prints flags matching the given names (helper for usage).
func printFlagCategory(fs *flag.FlagSet, out io.Writer, names []string) {
	for _, name := range names {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		fmt.Fprintf(out, "  -%s %s\n    \t%s", f.Name, flagType(f), f.Usage)
		if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0" && f.DefValue != "0s" {
			fmt.Fprintf(out, " (default %s)", f.DefValue)
		}
		fmt.Fprintln(out)
	}
}

// flagType returns a type hint for the flag value.
func flagType(f *flag.Flag) string {
	switch f.DefValue {
	case "true", "false":
		return ""
	}

	if strings.HasSuffix(f.DefValue, "s") || strings.HasSuffix(f.DefValue, "m") || strings.HasSuffix(f.DefValue, "h") {
		return "duration"
	}

	if _, err := fmt.Sscanf(f.DefValue, "%d", new(int)); err == nil {
		return "int"
	}

	return "string"
}
