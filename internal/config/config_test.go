package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/randomizedcoder/go-mist-scatter/internal/scatter"
)

// =============================================================================
// Tests: Defaults and Mode
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Count != -1 {
		t.Errorf("Count = %d, want -1", cfg.Count)
	}
	if cfg.Format != FormatJSON {
		t.Errorf("Format = %q, want json", cfg.Format)
	}
	if cfg.MaxCount != 10000 {
		t.Errorf("MaxCount = %d, want 10000", cfg.MaxCount)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", cfg.ShutdownTimeout)
	}
	if cfg.CacheSize != scatter.DefaultCacheSize {
		t.Errorf("CacheSize = %d, want %d", cfg.CacheSize, scatter.DefaultCacheSize)
	}
	if cfg.LiveClients != 256 || cfg.SkipPreflight {
		t.Errorf("LiveClients = %d, SkipPreflight = %v", cfg.LiveClients, cfg.SkipPreflight)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("DefaultConfig() should validate, got %v", err)
	}
}

func TestConfig_Mode(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   Mode
	}{
		{"default", func(c *Config) {}, ModePrint},
		{"stats", func(c *Config) { c.Stats = true }, ModeStats},
		{"png beats stats", func(c *Config) { c.Stats = true; c.PNGPath = "x.png" }, ModePNG},
		{"tui", func(c *Config) { c.TUIEnabled = true; c.PNGPath = "x.png" }, ModeTUI},
		{"verify", func(c *Config) { c.VerifyURL = "http://x" }, ModeVerify},
		{"serve", func(c *Config) { c.ServeAddr = ":0"; c.Stats = true }, ModeServe},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if got := cfg.Mode(); got != tt.want {
				t.Errorf("Mode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConfig_CountOverride(t *testing.T) {
	cfg := DefaultConfig()
	if _, ok := cfg.CountOverride(); ok {
		t.Error("default config should have no count override")
	}

	cfg.Count = 0
	if n, ok := cfg.CountOverride(); !ok || n != 0 {
		t.Errorf("CountOverride() = %d, %v; want 0, true", n, ok)
	}
}

// =============================================================================
// Tests: ParseArgs
// =============================================================================

func TestParseArgs(t *testing.T) {
	var out bytes.Buffer
	cfg, err := ParseArgs([]string{
		"-seed", "7",
		"-count", "20",
		"-format", "css",
		"-stats",
		"-log-format", "text",
		"mist", "fireflies",
	}, &out)
	if err != nil {
		t.Fatalf("ParseArgs() error = %v", err)
	}

	if cfg.Seed != 7 || !cfg.SeedSet {
		t.Errorf("Seed = %d (set=%v), want 7 (set=true)", cfg.Seed, cfg.SeedSet)
	}
	if cfg.Count != 20 {
		t.Errorf("Count = %d, want 20", cfg.Count)
	}
	if cfg.Format != FormatCSS {
		t.Errorf("Format = %q, want css", cfg.Format)
	}
	if !cfg.Stats {
		t.Error("Stats should be true")
	}
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat = %q, want text", cfg.LogFormat)
	}
	if len(cfg.Layers) != 2 || cfg.Layers[0] != "mist" || cfg.Layers[1] != "fireflies" {
		t.Errorf("Layers = %v", cfg.Layers)
	}
}

func TestParseArgs_SeedZeroIsStillSet(t *testing.T) {
	cfg, err := ParseArgs([]string{"-seed", "0"}, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.SeedSet {
		t.Error("explicit -seed 0 should mark SeedSet")
	}

	cfg, err = ParseArgs(nil, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SeedSet {
		t.Error("SeedSet should be false without -seed")
	}
}

func TestParseArgs_ServeFlags(t *testing.T) {
	cfg, err := ParseArgs([]string{"-serve", ":8080", "-live-clients", "32", "-cache-size", "64", "-skip-preflight", "-shutdown-timeout", "3s"}, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.CacheSize != 64 {
		t.Errorf("CacheSize = %d, want 64", cfg.CacheSize)
	}
	if cfg.ServeAddr != ":8080" || cfg.LiveClients != 32 || !cfg.SkipPreflight || cfg.ShutdownTimeout != 3*time.Second {
		t.Errorf("serve flags = %+v", cfg)
	}
	if cfg.Mode() != ModeServe {
		t.Errorf("Mode() = %q, want serve", cfg.Mode())
	}
}

func TestParseArgs_VerifyFlags(t *testing.T) {
	cfg, err := ParseArgs([]string{"-verify", "http://127.0.0.1:17095", "-verify-wait", "20s", "mist"}, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.VerifyWait != 20*time.Second || cfg.VerifyTimeout != 5*time.Second {
		t.Errorf("verify flags = %+v", cfg)
	}
	if cfg.Mode() != ModeVerify || len(cfg.Layers) != 1 {
		t.Errorf("Mode() = %q, layers %v", cfg.Mode(), cfg.Layers)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestParseArgs_Invalid(t *testing.T) {
	var out bytes.Buffer
	if _, err := ParseArgs([]string{"-count", "many"}, &out); err == nil {
		t.Error("expected error for non-numeric count")
	}
	if _, err := ParseArgs([]string{"-bogus"}, &out); err == nil {
		t.Error("expected error for unknown flag")
	}
}

func TestParseArgs_Usage(t *testing.T) {
	var out bytes.Buffer
	_, _ = ParseArgs([]string{"-h"}, &out)

	usage := out.String()
	for _, want := range []string{"Layer Selection:", "-seed int", "-serve string", "-shutdown-timeout duration", "Examples:"} {
		if !strings.Contains(usage, want) {
			t.Errorf("usage missing %q\n%s", want, usage)
		}
	}
}

// =============================================================================
// Tests: Validate
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"bad format", func(c *Config) { c.Format = "xml" }, "format"},
		{"count below -1", func(c *Config) { c.Count = -2 }, "count"},
		{"count above max", func(c *Config) { c.Count = 20000 }, "count"},
		{"max count zero", func(c *Config) { c.MaxCount = 0 }, "max_count"},
		{"png zero size", func(c *Config) { c.PNGPath = "a.png"; c.PNGWidth = 0 }, "png_size"},
		{"verify bad scheme", func(c *Config) { c.VerifyURL = "ftp://host" }, "verify_url"},
		{"verify no host", func(c *Config) { c.VerifyURL = "http://" }, "verify_url"},
		{"verify zero timeout", func(c *Config) { c.VerifyURL = "http://h"; c.VerifyTimeout = 0 }, "verify_timeout"},
		{"zero cache size", func(c *Config) { c.CacheSize = 0 }, "cache_size"},
		{"verify negative wait", func(c *Config) { c.VerifyURL = "http://h"; c.VerifyWait = -time.Second }, "verify_wait"},
		{"serve zero shutdown", func(c *Config) { c.ServeAddr = ":1"; c.ShutdownTimeout = 0 }, "shutdown_timeout"},
		{"negative live clients", func(c *Config) { c.LiveClients = -1 }, "live_clients"},
		{"exclusive modes", func(c *Config) { c.ServeAddr = ":1"; c.TUIEnabled = true }, "mode"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "log_format"},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, "log_level"},
		{"empty layer name", func(c *Config) { c.Layers = []string{"mist", " "} }, "layers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantField+":") {
				t.Errorf("Validate() = %q, want field %q", err, tt.wantField)
			}
			var ve ValidationError
			if !errors.As(err, &ve) {
				t.Errorf("error should contain a ValidationError, got %T", err)
			}
		})
	}
}

func TestValidate_Valid(t *testing.T) {
	cfgs := []func(*Config){
		func(c *Config) { c.Count = 0 },
		func(c *Config) { c.Count = 10000 },
		func(c *Config) { c.ServeAddr = "127.0.0.1:0" },
		func(c *Config) { c.VerifyURL = "https://example.com:8443/base" },
		func(c *Config) { c.PNGPath = "out.png" },
		func(c *Config) { c.LogLevel = "WARN" },
	}

	for i, mutate := range cfgs {
		cfg := DefaultConfig()
		mutate(cfg)
		if err := Validate(cfg); err != nil {
			t.Errorf("case %d: Validate() = %v, want nil", i, err)
		}
	}
}

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{Field: "count", Message: "must be >= 0"}
	if err.Error() != "count: must be >= 0" {
		t.Errorf("Error() = %q", err.Error())
	}
}

// =============================================================================
// Tests: Layer files
// =============================================================================

const haze = `
layers:
  - name: haze
    seed: 42
    count: 8
    ranges:
      top: {base: 10, width: 50}
      opacity: {base: 0.05, width: 0.1}
  - name: mist
    seed: 1
    count: 3
`

func TestParseLayers(t *testing.T) {
	layers, err := ParseLayers([]byte(haze))
	if err != nil {
		t.Fatalf("ParseLayers() error = %v", err)
	}
	if len(layers) != 2 {
		t.Fatalf("len = %d, want 2", len(layers))
	}

	h := layers[0]
	if h.Name != "haze" || h.Seed != 42 || h.Count != 8 {
		t.Errorf("haze = %+v", h)
	}
	if h.Ranges.Top != (scatter.Span{Base: 10, Width: 50}) {
		t.Errorf("haze top = %v", h.Ranges.Top)
	}
	if h.Ranges.Opacity != (scatter.Span{Base: 0.05, Width: 0.1}) {
		t.Errorf("haze opacity = %v", h.Ranges.Opacity)
	}

	def := scatter.DefaultRanges()
	if h.Ranges.Left != def.Left || h.Ranges.Blur != def.Blur {
		t.Error("omitted spans should inherit DefaultRanges")
	}
	if layers[1].Ranges != def {
		t.Error("layer without ranges should use DefaultRanges")
	}
}

func TestParseLayers_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing name", "layers:\n  - count: 1\n", "layers[0].name: is required"},
		{"missing count", "layers:\n  - name: a\n", "layers[0].count: is required"},
		{"negative count", "layers:\n  - name: a\n    count: -3\n", "must be >= 0"},
		{"duplicate", "layers:\n  - name: a\n    count: 1\n  - name: a\n    count: 2\n", `duplicate layer "a"`},
		{"name with slash", "layers:\n  - name: a/b\n    count: 1\n", `"a/b" must match`},
		{"name with quote", "layers:\n  - name: a\"b\n    count: 1\n", "layers[0].name"},
		{"name with brace", "layers:\n  - name: 'x{y'\n    count: 1\n", `"x{y" must match`},
		{"uppercase name", "layers:\n  - name: Haze\n    count: 1\n", "layers[0].name"},
		{"leading dash", "layers:\n  - name: -haze\n    count: 1\n", "layers[0].name"},
		{"bad opacity", "layers:\n  - name: a\n    count: 1\n    ranges:\n      opacity: {base: 0.9, width: 0.5}\n", "layers[0].ranges"},
		{"unknown key", "layers:\n  - name: a\n    count: 1\n    colour: red\n", "parse layers"},
		{"not yaml", "layers: [", "parse layers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLayers([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want %q", err, tt.want)
			}
		})
	}
}

func writeLayersFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "layers.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadLayers(t *testing.T) {
	layers, err := LoadLayers(writeLayersFile(t, haze))
	if err != nil {
		t.Fatalf("LoadLayers() error = %v", err)
	}
	if len(layers) != 2 {
		t.Errorf("len = %d, want 2", len(layers))
	}

	if _, err := LoadLayers(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLayerSet(t *testing.T) {
	cfg := DefaultConfig()
	set, err := LayerSet(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if set.Len() != 2 {
		t.Errorf("built-in set Len() = %d, want 2", set.Len())
	}

	cfg.LayersFile = writeLayersFile(t, haze)
	set, err = LayerSet(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if set.Len() != 3 {
		t.Errorf("Len() = %d, want 3", set.Len())
	}
	mist, _ := set.Get(scatter.LayerMist)
	if mist.Count != 3 {
		t.Errorf("file layer should replace built-in mist, count = %d", mist.Count)
	}
}

func TestSelectLayers(t *testing.T) {
	set := scatter.DefaultLayerSet()

	cfg := DefaultConfig()
	all, err := SelectLayers(cfg, set)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("len = %d, want 2", len(all))
	}

	cfg.Layers = []string{scatter.LayerMist}
	cfg.Seed, cfg.SeedSet = 99, true
	cfg.Count = 4
	got, err := SelectLayers(cfg, set)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Seed != 99 || got[0].Count != 4 {
		t.Errorf("SelectLayers() = %+v", got)
	}

	// The set itself is untouched.
	if orig, _ := set.Get(scatter.LayerMist); orig.Seed != scatter.MistSeed {
		t.Errorf("set mutated: seed = %d", orig.Seed)
	}

	cfg.Layers = []string{"nope"}
	if _, err := SelectLayers(cfg, set); !errors.Is(err, scatter.ErrUnknownLayer) {
		t.Errorf("error = %v, want ErrUnknownLayer", err)
	}
}
