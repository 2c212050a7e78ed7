// Package config provides configuration management for go-mist-scatter.
package config

import (
	"time"

	"github.com/randomizedcoder/go-mist-scatter/internal/scatter"
)

// Output formats for print mode.
const (
	FormatJSON = "json"
	FormatCSS  = "css"
	FormatText = "text"
)

// Mode is the top-level action selected by flags.
type Mode string

const (
	ModePrint  Mode = "print"
	ModeStats  Mode = "stats"
	ModePNG    Mode = "png"
	ModeServe  Mode = "serve"
	ModeVerify Mode = "verify"
	ModeTUI    Mode = "tui"
)

// Config holds all configuration options.
type Config struct {
	// Layer selection
	Layers     []string `json:"layers"` // positional args; empty = all
	LayersFile string   `json:"layers_file"`
	Seed       int64    `json:"seed"`
	SeedSet    bool     `json:"-"` // true when -seed was given
	Count      int      `json:"count"` // -1 = layer default

	// Output
	Format    string `json:"format"` // json, css, text
	Stats     bool   `json:"stats"`
	PNGPath   string `json:"png_path"`
	PNGWidth  int    `json:"png_width"`
	PNGHeight int    `json:"png_height"`

	// Server
	ServeAddr       string        `json:"serve_addr"`
	MaxCount        int           `json:"max_count"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	LiveClients     int           `json:"live_clients"` // expected concurrent websocket clients
	CacheSize       int           `json:"cache_size"`   // layouts kept in memory
	SkipPreflight   bool          `json:"skip_preflight"`

	// Verification
	VerifyURL     string        `json:"verify_url"`
	VerifyTimeout time.Duration `json:"verify_timeout"`
	VerifyWait    time.Duration `json:"verify_wait"` // retry the first request while the server starts

	// Dashboard
	TUIEnabled bool `json:"tui"`

	// Observability
	Verbose   bool   `json:"verbose"`
	LogFormat string `json:"log_format"` // json, text
	LogLevel  string `json:"log_level"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Count: -1,

		Format:    FormatJSON,
		PNGWidth:  1200,
		PNGHeight: 630,

		MaxCount:        10000,
		ShutdownTimeout: 10 * time.Second,
		LiveClients:     256,
		CacheSize:       scatter.DefaultCacheSize,

		VerifyTimeout: 5 * time.Second,

		LogFormat: "json",
		LogLevel:  "info",
	}
}

// Mode returns the action implied by the config. Serve, verify and TUI are
// exclusive (see Validate); PNG output wins over stats, which wins over print.
func (c *Config) Mode() Mode {
	switch {
	case c.ServeAddr != "":
		return ModeServe
	case c.VerifyURL != "":
		return ModeVerify
	case c.TUIEnabled:
		return ModeTUI
	case c.PNGPath != "":
		return ModePNG
	case c.Stats:
		return ModeStats
	default:
		return ModePrint
	}
}

// CountOverride returns the count override and whether one was given.
func (c *Config) CountOverride() (uint, bool) {
	if c.Count < 0 {
		return 0, false
	}
	return uint(c.Count), true
}
