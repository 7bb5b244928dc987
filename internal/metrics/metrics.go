// Package metrics holds the prometheus collectors of the renderer, the tile
// cache and the tile server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collectors struct {
	TilesRendered      prometheus.Counter
	EmptyTiles         prometheus.Counter
	TileRenderDuration prometheus.Histogram
	Instructions       prometheus.Counter

	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	HTTPRequests *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers the collectors with a fresh registry.
func New() *Collectors {
	reg := prometheus.NewRegistry()
	return NewWith(reg, reg)
}

// NewWith registers the collectors with reg. gather serves /metrics and may
// be nil when Handler is not used.
func NewWith(reg prometheus.Registerer, gather prometheus.Gatherer) *Collectors {
	f := promauto.With(reg)
	return &Collectors{
		TilesRendered: f.NewCounter(prometheus.CounterOpts{
			Name: "osmrender_tiles_rendered_total",
			Help: "Total number of tiles rendered",
		}),
		EmptyTiles: f.NewCounter(prometheus.CounterOpts{
			Name: "osmrender_tiles_empty_total",
			Help: "Total number of tiles with nothing to draw",
		}),
		TileRenderDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "osmrender_tile_render_duration_seconds",
			Help:    "Time taken to render a single tile",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~2s
		}),
		Instructions: f.NewCounter(prometheus.CounterOpts{
			Name: "osmrender_draw_instructions_total",
			Help: "Total number of draw instructions emitted by the ruleset",
		}),
		CacheHits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "osmrender_tile_cache_hits_total",
			Help: "Tile cache hits by cache level",
		}, []string{"level"}),
		CacheMisses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "osmrender_tile_cache_misses_total",
			Help: "Tile cache misses by cache level",
		}, []string{"level"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "osmrender_http_requests_total",
			Help: "HTTP requests by status code",
		}, []string{"code"}),
		gatherer: gather,
	}
}

// ObserveTile records one rendered tile.
func (c *Collectors) ObserveTile(empty bool, d time.Duration) {
	if c == nil {
		return
	}
	if empty {
		c.EmptyTiles.Inc()
	} else {
		c.TilesRendered.Inc()
	}
	c.TileRenderDuration.Observe(d.Seconds())
}

// CacheHit records a hit at a cache level ("memory" or "redis").
func (c *Collectors) CacheHit(level string) {
	if c != nil {
		c.CacheHits.WithLabelValues(level).Inc()
	}
}

// CacheMiss records a miss at a cache level.
func (c *Collectors) CacheMiss(level string) {
	if c != nil {
		c.CacheMisses.WithLabelValues(level).Inc()
	}
}

// Handler serves the registered collectors.
func (c *Collectors) Handler() http.Handler {
	if c.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
