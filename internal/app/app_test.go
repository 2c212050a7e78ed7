package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/randomizedcoder/go-mist-scatter/internal/config"
	"github.com/randomizedcoder/go-mist-scatter/internal/layout"
	"github.com/randomizedcoder/go-mist-scatter/internal/logging"
	"github.com/randomizedcoder/go-mist-scatter/internal/scatter"
)

func parse(t *testing.T, args ...string) *config.Config {
	t.Helper()
	cfg, err := config.ParseArgs(args, io.Discard)
	if err != nil {
		t.Fatalf("ParseArgs(%v) error = %v", args, err)
	}
	if err := config.Validate(cfg); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	return cfg
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := New(parse(t, args...), logging.Discard(), "test", &out).Run(context.Background())
	return out.String(), err
}

// =============================================================================
// Tests: print modes
// =============================================================================

func TestRun_PrintJSON(t *testing.T) {
	out, err := run(t, "mist")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var resp struct {
		Layers []layout.LayerResponse `json:"layers"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(resp.Layers) != 1 {
		t.Fatalf("len(layers) = %d, want 1", len(resp.Layers))
	}
	got := resp.Layers[0]
	if got.EffectiveSeed != 20251594 {
		t.Errorf("effective_seed = %d", got.EffectiveSeed)
	}
	if !slices.Equal(got.Particles, scatter.MistLayer().Particles()) {
		t.Error("printed particles differ from generation")
	}
}

func TestRun_PrintAllLayers(t *testing.T) {
	out, err := run(t)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out, `"name": "fireflies"`) || !strings.Contains(out, `"name": "mist"`) {
		t.Errorf("expected both built-in layers:\n%.300s", out)
	}
}

func TestRun_PrintOverrides(t *testing.T) {
	out, err := run(t, "-seed", "5", "-count", "3", "-format", "text", "mist")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out, "# mist seed=5 count=3 effective_seed=98") {
		t.Errorf("unexpected header:\n%s", out)
	}
	// Header, column names, three rows.
	if n := strings.Count(strings.TrimSpace(out), "\n") + 1; n != 5 {
		t.Errorf("line count = %d, want 5\n%s", n, out)
	}
}

func TestRun_PrintCSS(t *testing.T) {
	out, err := run(t, "-format", "css", "fireflies")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out, ".scatter-fireflies-9{") || !strings.Contains(out, "@keyframes mistFloat") {
		t.Errorf("unexpected stylesheet:\n%.400s", out)
	}
}

func TestRun_UnknownLayer(t *testing.T) {
	_, err := run(t, "nope")
	if !errors.Is(err, scatter.ErrUnknownLayer) {
		t.Errorf("Run() error = %v, want ErrUnknownLayer", err)
	}
}

func TestRun_LayersFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layers.yaml")
	data := "layers:\n  - name: haze\n    seed: 42\n    count: 4\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "-layers", path, "-format", "text", "haze")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out, "# haze seed=42 count=4") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestRun_BadLayersFile(t *testing.T) {
	cfg := parse(t, "-layers", filepath.Join(t.TempDir(), "missing.yaml"))
	err := New(cfg, logging.Discard(), "test", io.Discard).Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "load layers") {
		t.Errorf("Run() error = %v", err)
	}
}

// =============================================================================
// Tests: stats and png
// =============================================================================

func TestRun_Stats(t *testing.T) {
	out, err := run(t, "-stats", "mist")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for _, want := range []string{`Layer "mist"`, "Effective seed:  20251594", "All values within range"} {
		if !strings.Contains(out, want) {
			t.Errorf("stats output missing %q\n%s", want, out)
		}
	}
}

func TestRun_PNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mist.png")
	if _, err := run(t, "-png", path, "-png-width", "300", "-png-height", "150", "mist"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("png.Decode() error = %v", err)
	}
	if b := img.Bounds(); b.Dx() != 300 || b.Dy() != 150 {
		t.Errorf("bounds = %v", b)
	}
}

// =============================================================================
// Tests: serve and verify
// =============================================================================

func startServer(t *testing.T) string {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	a := New(parse(t, "-serve", "127.0.0.1:0", "-shutdown-timeout", "2s", "-live-clients", "0"), logging.Discard(), "test", io.Discard)
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	var addr string
	select {
	case addr = <-a.Ready():
	case err := <-done:
		cancel()
		t.Fatalf("server exited early: %v", err)
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("server did not start")
	}

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("serve Run() error = %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("server did not shut down")
		}
	})
	return "http://" + addr
}

func TestRun_Serve(t *testing.T) {
	base := startServer(t)

	for _, path := range []string{"/health", "/v1/layers", "/v1/layers/mist", "/v1/layers/mist/css", "/metrics"} {
		resp, err := http.Get(base + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s status = %d", path, resp.StatusCode)
		}
		if path == "/metrics" && !strings.Contains(string(body), "mist_scatter_cache_misses_total") {
			t.Error("/metrics missing cache counters")
		}
	}
}

func TestRun_VerifyAgainstServe(t *testing.T) {
	base := startServer(t)

	out, err := run(t, "-verify", base)
	if err != nil {
		t.Fatalf("verify Run() error = %v\n%s", err, out)
	}
	for _, want := range []string{"mist", "fireflies", "ok +live", "All layers match"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q\n%s", want, out)
		}
	}
}

func TestRun_ServePreflightFails(t *testing.T) {
	// A running server holds the address, so the listen check fails.
	base := startServer(t)
	cfg := parse(t, "-serve", strings.TrimPrefix(base, "http://"), "-live-clients", "0")

	var out bytes.Buffer
	err := New(cfg, logging.Discard(), "test", &out).Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "preflight") {
		t.Fatalf("Run() error = %v, want preflight failure", err)
	}
	if !strings.Contains(out.String(), "listen_addr") {
		t.Errorf("preflight output missing listen_addr:\n%s", out.String())
	}
}

func TestRun_ServeRejectsOversizedLayer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layers.yaml")
	data := "layers:\n  - name: dense\n    seed: 1\n    count: 600\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"preflight", nil, "preflight"},
		{"preflight skipped", []string{"-skip-preflight"}, "exceeds max count"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"-serve", "127.0.0.1:0", "-live-clients", "0", "-max-count", "500", "-layers", path}, tt.args...)
			var out bytes.Buffer
			err := New(parse(t, args...), logging.Discard(), "test", &out).Run(context.Background())
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Run() error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestRun_ServeShutdownClosesLiveStreams(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := New(parse(t, "-serve", "127.0.0.1:0", "-shutdown-timeout", "2s", "-live-clients", "0"), logging.Discard(), "test", io.Discard)
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	var addr string
	select {
	case addr = <-a.Ready():
	case err := <-done:
		t.Fatalf("server exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/v1/layers/mist/ws", nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	var first layout.LayerResponse
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read initial layer: %v", err)
	}

	cancel()

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("ReadMessage() after shutdown = %v, want going-away close", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Error("server did not shut down")
	}
}

func TestRun_VerifyUnreachable(t *testing.T) {
	_, err := run(t, "-verify", "http://127.0.0.1:1", "-verify-timeout", "500ms")
	if err == nil {
		t.Error("verify against an unreachable server should fail")
	}
}
