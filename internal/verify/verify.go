// Package verify checks a running server's layouts against local generation.
//
// A server and a client that derive the same layer must agree bit for bit,
// otherwise a page rendered server-side is re-laid-out on the client. The
// verifier fetches every served layer, regenerates it from the served seed,
// count and ranges, and compares each field exactly. It then scrapes the
// server's /metrics to report generator and cache activity.
package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/randomizedcoder/go-mist-scatter/internal/layout"
	"github.com/randomizedcoder/go-mist-scatter/internal/logging"
	"github.com/randomizedcoder/go-mist-scatter/internal/scatter"
)

// Options configures a Verifier.
type Options struct {
	BaseURL    string
	Timeout    time.Duration // per request; 0 means 5s
	Wait       time.Duration // keep retrying the layer list this long; 0 tries once
	Layers     []string      // empty verifies every served layer
	Live       bool          // also check the websocket stream
	Logger     *slog.Logger
	HTTPClient *http.Client
}

// Mismatch is one field where served and local values differ.
type Mismatch struct {
	Index  int     `json:"index"` // -1 for layer-level fields
	Field  string  `json:"field"`
	Served float64 `json:"served"`
	Local  float64 `json:"local"`
}

func (m Mismatch) String() string {
	if m.Index < 0 {
		return fmt.Sprintf("%s: served %v, local %v", m.Field, m.Served, m.Local)
	}
	return fmt.Sprintf("particle %d %s: served %v, local %v", m.Index, m.Field, m.Served, m.Local)
}

// LayerResult is the outcome for one layer.
type LayerResult struct {
	Name          string     `json:"name"`
	Seed          int64      `json:"seed"`
	Count         uint       `json:"count"`
	EffectiveSeed uint32     `json:"effective_seed"`
	Particles     int        `json:"particles"`
	Mismatches    []Mismatch `json:"mismatches,omitempty"`
	Live          bool       `json:"live"` // websocket stream checked
	Error         string     `json:"error,omitempty"`
}

// OK reports whether the layer was fetched and matched.
func (r LayerResult) OK() bool {
	return r.Error == "" && len(r.Mismatches) == 0
}

// Report is the outcome of a verification run.
type Report struct {
	BaseURL  string        `json:"base_url"`
	Layers   []LayerResult `json:"layers"`
	Metrics  *Snapshot     `json:"metrics,omitempty"`
	Duration time.Duration `json:"duration"`
}

// OK reports whether every layer matched.
func (r *Report) OK() bool {
	for _, l := range r.Layers {
		if !l.OK() {
			return false
		}
	}
	return len(r.Layers) > 0
}

// Mismatches returns the total mismatch count across layers.
func (r *Report) Mismatches() int {
	n := 0
	for _, l := range r.Layers {
		n += len(l.Mismatches)
	}
	return n
}

// Failed returns the number of layers that errored or mismatched.
func (r *Report) Failed() int {
	n := 0
	for _, l := range r.Layers {
		if !l.OK() {
			n++
		}
	}
	return n
}

// Verifier fetches and checks layers from one server.
type Verifier struct {
	base   *url.URL
	opts   Options
	client *http.Client
	logger *slog.Logger
}

// New creates a Verifier. The base URL must be absolute http(s).
func New(opts Options) (*Verifier, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", opts.BaseURL)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("base url %q: missing host", opts.BaseURL)
	}

	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	return &Verifier{base: base, opts: opts, client: client, logger: logger}, nil
}

func (v *Verifier) endpoint(path string, query url.Values) string {
	u := *v.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = query.Encode()
	return u.String()
}

// getJSON fetches path and decodes a JSON body into dst.
func (v *Verifier) getJSON(ctx context.Context, path string, query url.Values, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.endpoint(path, query), nil)
	if err != nil {
		return err
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e layout.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&e) == nil && e.Error != "" {
			return fmt.Errorf("http status %d: %s", resp.StatusCode, e.Error)
		}
		return fmt.Errorf("http status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// Run verifies the selected layers and scrapes metrics. The returned error
// covers failures to list layers; per-layer failures land in the report.
func (v *Verifier) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{BaseURL: v.base.String()}

	var list layout.ListResponse
	backoff := NewBackoff(time.Now().UnixNano(), DefaultBackoffConfig())
	err := retry(ctx, v.opts.Wait, backoff, func() error {
		err := v.getJSON(ctx, "/v1/layers", nil, &list)
		if err != nil && v.opts.Wait > 0 {
			v.logger.Debug("server_not_ready", "attempt", backoff.Attempts()+1, "error", err)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list layers: %w", err)
	}

	infos, err := v.selectLayers(list.Layers)
	if err != nil {
		return nil, err
	}

	for _, info := range infos {
		result := v.VerifyLayer(ctx, info.Name, nil)
		if v.opts.Live && result.Error == "" {
			v.verifyLive(ctx, &result)
		}
		v.logger.Info("layer_verified",
			"layer", result.Name,
			"particles", result.Particles,
			"mismatches", len(result.Mismatches),
			"error", result.Error,
		)
		report.Layers = append(report.Layers, result)
	}

	snap, err := v.ScrapeMetrics(ctx)
	if err != nil {
		v.logger.Warn("metrics_scrape_failed", "error", err)
	} else {
		report.Metrics = snap
	}

	report.Duration = time.Since(start)
	return report, nil
}

func (v *Verifier) selectLayers(served []layout.LayerInfo) ([]layout.LayerInfo, error) {
	if len(v.opts.Layers) == 0 {
		return served, nil
	}
	byName := make(map[string]layout.LayerInfo, len(served))
	for _, l := range served {
		byName[l.Name] = l
	}
	out := make([]layout.LayerInfo, 0, len(v.opts.Layers))
	for _, name := range v.opts.Layers {
		l, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q not served by %s", scatter.ErrUnknownLayer, name, v.base)
		}
		out = append(out, l)
	}
	return out, nil
}

// VerifyLayer fetches one layer (with optional query overrides) and compares
// it against local generation.
func (v *Verifier) VerifyLayer(ctx context.Context, name string, query url.Values) LayerResult {
	result := LayerResult{Name: name}

	var served layout.LayerResponse
	if err := v.getJSON(ctx, "/v1/layers/"+url.PathEscape(name), query, &served); err != nil {
		result.Error = err.Error()
		return result
	}

	result.Seed = served.Seed
	result.Count = served.Count
	result.EffectiveSeed = served.EffectiveSeed
	result.Particles = len(served.Particles)
	result.Mismatches = Compare(served)
	return result
}

// Compare regenerates a served layer from its seed, count and ranges and
// returns every difference. Floats are compared by bit pattern.
func Compare(served layout.LayerResponse) []Mismatch {
	var out []Mismatch

	if want := scatter.EffectiveSeed(served.Seed, served.Count); served.EffectiveSeed != want {
		out = append(out, Mismatch{Index: -1, Field: "effective_seed",
			Served: float64(served.EffectiveSeed), Local: float64(want)})
	}

	local := scatter.GenerateRanges(scatter.Config{Seed: served.Seed, Count: served.Count}, served.Ranges)
	if len(served.Particles) != len(local) {
		out = append(out, Mismatch{Index: -1, Field: "count",
			Served: float64(len(served.Particles)), Local: float64(len(local))})
	}

	n := min(len(served.Particles), len(local))
	for i := 0; i < n; i++ {
		got, want := served.Particles[i].Fields(), local[i].Fields()
		for f := range got {
			if math.Float64bits(got[f]) != math.Float64bits(want[f]) {
				out = append(out, Mismatch{Index: i, Field: scatter.FieldNames[f],
					Served: got[f], Local: want[f]})
			}
		}
	}
	return out
}
