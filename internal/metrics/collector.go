// Package metrics provides Prometheus metrics for go-mist-scatter.
//
// Metrics fall into three groups:
//   - Build/info: version and number of served layers
//   - Generation: layouts generated, particles generated, cache hits/misses
//   - HTTP: request counts and latency per API route
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metric names shared with the verifier, which scrapes them back.
const (
	NameGenerations = "mist_scatter_generations_total"
	NameParticles   = "mist_scatter_particles_generated_total"
	NameCacheHits   = "mist_scatter_cache_hits_total"
	NameCacheMisses = "mist_scatter_cache_misses_total"
	NameLayers      = "mist_scatter_layers"
)

// Collector owns every metric the service exports. It implements
// scatter.CacheObserver.
type Collector struct {
	info            *prometheus.GaugeVec
	layers          prometheus.Gauge
	generations     *prometheus.CounterVec
	particles       *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewCollector creates a collector registered with the default registry.
func NewCollector(version string) *Collector {
	return NewCollectorWithRegistry(version, prometheus.DefaultRegisterer)
}

// NewCollectorWithRegistry creates a collector with a custom registry.
// Useful for testing to avoid duplicate registration panics.
func NewCollectorWithRegistry(version string, registry prometheus.Registerer) *Collector {
	c := &Collector{
		info: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mist_scatter_info",
				Help: "Build information (value always 1)",
			},
			[]string{"version"},
		),
		layers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: NameLayers,
				Help: "Number of layers available to the API",
			},
		),
		generations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: NameGenerations,
				Help: "Layouts generated (cache misses that ran the generator)",
			},
			[]string{"layer"},
		),
		particles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: NameParticles,
				Help: "Particles produced by the generator",
			},
			[]string{"layer"},
		),
		cacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: NameCacheHits,
				Help: "Layout cache hits",
			},
			[]string{"layer"},
		),
		cacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: NameCacheMisses,
				Help: "Layout cache misses",
			},
			[]string{"layer"},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mist_scatter_http_requests_total",
				Help: "HTTP requests by route, method and status code",
			},
			[]string{"route", "method", "code"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "mist_scatter_http_request_duration_seconds",
				Help: "HTTP request latency by route",
				Buckets: []float64{
					0.0001, 0.0005, 0.001, 0.005, 0.01,
					0.05, 0.1, 0.5, 1.0,
				},
			},
			[]string{"route", "method", "code"},
		),
	}

	registry.MustRegister(
		c.info,
		c.layers,
		c.generations,
		c.particles,
		c.cacheHits,
		c.cacheMisses,
		c.requests,
		c.requestDuration,
	)

	c.info.WithLabelValues(version).Set(1)

	return c
}

// CacheHit records a layout served from cache.
func (c *Collector) CacheHit(layer string) {
	c.cacheHits.WithLabelValues(layer).Inc()
}

// CacheMiss records a cache miss; the caller is about to run the generator
// for count particles.
func (c *Collector) CacheMiss(layer string, count uint) {
	c.cacheMisses.WithLabelValues(layer).Inc()
	c.generations.WithLabelValues(layer).Inc()
	c.particles.WithLabelValues(layer).Add(float64(count))
}

// SetLayerCount records how many layers the API serves.
func (c *Collector) SetLayerCount(n int) {
	c.layers.Set(float64(n))
}

// InstrumentHandler wraps h with request counting and latency tracking under
// the given route label.
func (c *Collector) InstrumentHandler(route string, h http.Handler) http.Handler {
	labels := prometheus.Labels{"route": route}
	return promhttp.InstrumentHandlerCounter(
		c.requests.MustCurryWith(labels),
		promhttp.InstrumentHandlerDuration(
			c.requestDuration.MustCurryWith(labels),
			h,
		),
	)
}
