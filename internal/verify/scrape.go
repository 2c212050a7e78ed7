package verify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/randomizedcoder/go-mist-scatter/internal/metrics"
)

// Snapshot holds generator and cache counters scraped from a server,
// summed over layers.
type Snapshot struct {
	Layers      float64 `json:"layers"`
	Generations float64 `json:"generations"`
	Particles   float64 `json:"particles"`
	CacheHits   float64 `json:"cache_hits"`
	CacheMisses float64 `json:"cache_misses"`
}

// HitRatio returns hits / (hits + misses), or 0 before any lookup.
func (s *Snapshot) HitRatio() float64 {
	total := s.CacheHits + s.CacheMisses
	if total == 0 {
		return 0
	}
	return s.CacheHits / total
}

// ScrapeMetrics reads the server's /metrics endpoint.
func (v *Verifier) ScrapeMetrics(ctx context.Context) (*Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.endpoint("/metrics", nil), nil)
	if err != nil {
		return nil, err
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http status %d", resp.StatusCode)
	}

	families, err := ParseMetrics(resp.Body)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		Layers:      sumFamily(families[metrics.NameLayers]),
		Generations: sumFamily(families[metrics.NameGenerations]),
		Particles:   sumFamily(families[metrics.NameParticles]),
		CacheHits:   sumFamily(families[metrics.NameCacheHits]),
		CacheMisses: sumFamily(families[metrics.NameCacheMisses]),
	}, nil
}

// ParseMetrics decodes Prometheus text exposition into families by name.
func ParseMetrics(r io.Reader) (map[string]*dto.MetricFamily, error) {
	decoder := expfmt.NewDecoder(r, expfmt.FmtText)
	families := make(map[string]*dto.MetricFamily)

	for {
		var mf dto.MetricFamily
		if err := decoder.Decode(&mf); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("decode error: %w", err)
		}
		families[mf.GetName()] = &mf
	}
	return families, nil
}

// sumFamily adds every counter or gauge sample in mf. A missing family is 0.
func sumFamily(mf *dto.MetricFamily) float64 {
	if mf == nil {
		return 0
	}
	total := 0.0
	for _, m := range mf.GetMetric() {
		switch mf.GetType() {
		case dto.MetricType_COUNTER:
			total += m.GetCounter().GetValue()
		case dto.MetricType_GAUGE:
			total += m.GetGauge().GetValue()
		case dto.MetricType_UNTYPED:
			total += m.GetUntyped().GetValue()
		}
	}
	return total
}
