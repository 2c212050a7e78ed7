// Package app wires configuration to the generator, renderers, layout server,
// verifier and TUI, and runs whichever mode the flags select.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/randomizedcoder/go-mist-scatter/internal/config"
	"github.com/randomizedcoder/go-mist-scatter/internal/layout"
	"github.com/randomizedcoder/go-mist-scatter/internal/metrics"
	"github.com/randomizedcoder/go-mist-scatter/internal/preflight"
	"github.com/randomizedcoder/go-mist-scatter/internal/render"
	"github.com/randomizedcoder/go-mist-scatter/internal/scatter"
	"github.com/randomizedcoder/go-mist-scatter/internal/stats"
	"github.com/randomizedcoder/go-mist-scatter/internal/tui"
	"github.com/randomizedcoder/go-mist-scatter/internal/verify"
)

// ErrVerificationFailed is returned when served layouts differ from local
// generation.
var ErrVerificationFailed = errors.New("verification failed")

// App runs one invocation of mist-scatter.
type App struct {
	config  *config.Config
	logger  *slog.Logger
	version string
	out     io.Writer

	// ready receives the bound address once serve mode is listening.
	ready chan string
}

// New creates an App writing its primary output to out.
func New(cfg *config.Config, logger *slog.Logger, version string, out io.Writer) *App {
	return &App{
		config:  cfg,
		logger:  logger,
		version: version,
		out:     out,
		ready:   make(chan string, 1),
	}
}

// Ready yields the server's bound address in serve mode.
func (a *App) Ready() <-chan string {
	return a.ready
}

// Run executes the configured mode. It blocks until the mode completes, a
// signal arrives, or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	set, err := config.LayerSet(a.config)
	if err != nil {
		return fmt.Errorf("load layers: %w", err)
	}

	mode := a.config.Mode()
	a.logger.Debug("mode_selected", "mode", string(mode), "layers", set.Names())

	switch mode {
	case config.ModeServe:
		return a.serve(ctx, set)
	case config.ModeVerify:
		return a.verify(ctx)
	}

	selected, err := config.SelectLayers(a.config, set)
	if err != nil {
		return err
	}

	switch mode {
	case config.ModeTUI:
		return a.runTUI(ctx, selected)
	case config.ModePNG:
		return a.writePNG(selected)
	case config.ModeStats:
		return a.printStats(selected)
	default:
		return a.print(selected)
	}
}

// =============================================================================
// Print modes
// =============================================================================

func (a *App) print(layers []scatter.Layer) error {
	switch a.config.Format {
	case config.FormatCSS:
		for _, l := range layers {
			if _, err := io.WriteString(a.out, render.Stylesheet(l.Name, l.Particles(), render.MistSprite())); err != nil {
				return err
			}
		}
		return nil

	case config.FormatText:
		for i, l := range layers {
			if i > 0 {
				fmt.Fprintln(a.out)
			}
			if err := writeText(a.out, l, l.Particles()); err != nil {
				return err
			}
		}
		return nil

	default:
		resp := struct {
			Layers []layout.LayerResponse `json:"layers"`
		}{Layers: make([]layout.LayerResponse, len(layers))}
		for i, l := range layers {
			resp.Layers[i] = layout.NewLayerResponse(l, l.Particles())
		}
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
}

// writeText prints a layer as an aligned table.
func writeText(w io.Writer, l scatter.Layer, particles []scatter.Particle) error {
	if _, err := fmt.Fprintf(w, "# %s seed=%d count=%d effective_seed=%d\n",
		l.Name, l.Seed, l.Count, l.Effective()); err != nil {
		return err
	}
	fmt.Fprintf(w, "%4s %9s %9s %9s %9s %9s %9s %9s\n",
		"#", "left", "top", "delay", "duration", "scale", "opacity", "blur")
	for i, p := range particles {
		fmt.Fprintf(w, "%4d %9.4f %9.4f %9.4f %9.4f %9.4f %9.4f %9.4f\n",
			i, p.Left, p.Top, p.Delay, p.Duration, p.Scale, p.Opacity, p.Blur)
	}
	return nil
}

func (a *App) printStats(layers []scatter.Layer) error {
	violations := 0
	for i, l := range layers {
		if i > 0 {
			fmt.Fprintln(a.out)
		}
		s := stats.Summarize(l, l.Particles())
		violations += s.Violations()
		if _, err := io.WriteString(a.out, stats.FormatSummary(s)); err != nil {
			return err
		}
	}
	if violations > 0 {
		return fmt.Errorf("%d value(s) outside their range", violations)
	}
	return nil
}

func (a *App) writePNG(layers []scatter.Layer) error {
	if len(layers) == 0 {
		return errors.New("no layer selected for png output")
	}
	l := layers[0]

	opts := render.DefaultPNGOptions()
	opts.Width = a.config.PNGWidth
	opts.Height = a.config.PNGHeight

	if err := render.SavePNG(a.config.PNGPath, l.Particles(), opts); err != nil {
		return err
	}
	a.logger.Info("png_written",
		"layer", l.Name,
		"path", a.config.PNGPath,
		"width", opts.Width,
		"height", opts.Height,
	)
	return nil
}

// =============================================================================
// Serve mode
// =============================================================================

func (a *App) serve(ctx context.Context, set *scatter.LayerSet) error {
	if !a.config.SkipPreflight {
		result := preflight.RunAll(preflight.Options{
			Addr:        a.config.ServeAddr,
			LiveClients: a.config.LiveClients,
			MaxCount:    a.config.MaxCount,
			Layers:      set,
		})
		preflight.PrintResults(a.out, result)
		if !result.Passed {
			return errors.New("preflight checks failed (use -skip-preflight to override)")
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	collector := metrics.NewCollectorWithRegistry(a.version, registry)
	collector.SetLayerCount(set.Len())

	svc, err := layout.New(layout.Options{
		Layers:       set,
		Cache:        scatter.NewCache(a.config.CacheSize, collector),
		MaxCount:     uint(a.config.MaxCount),
		Logger:       a.logger,
		Instrumenter: collector,
	})
	if err != nil {
		return err
	}

	server := metrics.NewServer(a.config.ServeAddr, svc, registry, a.logger)
	server.OnShutdown(svc.CloseLive)
	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	a.ready <- server.Addr()

	a.logger.Info("serving",
		"addr", server.Addr(),
		"layers", set.Names(),
		"max_count", a.config.MaxCount,
		"cache_size", a.config.CacheSize,
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()
	<-ctx.Done()
	a.logger.Info("shutting_down", "reason", context.Cause(ctx))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("server_shutdown_error", "error", err)
		return err
	}
	return nil
}

// =============================================================================
// Verify mode
// =============================================================================

func (a *App) verify(ctx context.Context) error {
	v, err := verify.New(verify.Options{
		BaseURL: a.config.VerifyURL,
		Timeout: a.config.VerifyTimeout,
		Wait:    a.config.VerifyWait,
		Layers:  a.config.Layers,
		Live:    true,
		Logger:  a.logger,
	})
	if err != nil {
		return err
	}

	report, err := v.Run(ctx)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(a.out, verify.FormatReport(report)); err != nil {
		return err
	}
	if !report.OK() {
		return fmt.Errorf("%w: %d of %d layer(s)", ErrVerificationFailed, report.Failed(), len(report.Layers))
	}
	return nil
}

// =============================================================================
// TUI mode
// =============================================================================

func (a *App) runTUI(ctx context.Context, layers []scatter.Layer) error {
	m := tui.New(tui.Config{
		Layers:   layers,
		MaxCount: uint(a.config.MaxCount),
		Stats:    a.config.Stats,
	})

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM)
	defer stop()

	err := tui.Run(m, tea.WithContext(ctx))
	if err != nil && ctx.Err() != nil {
		// Cancelled from outside; not a failure.
		return nil
	}
	return err
}
