// Package server serves rendered tiles over HTTP as a slippy map.
package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb/maptile"

	"github.com/beetlebugorg/osmrender/internal/geo"
	"github.com/beetlebugorg/osmrender/internal/logging"
	"github.com/beetlebugorg/osmrender/internal/metrics"
	"github.com/beetlebugorg/osmrender/internal/render"
	"github.com/beetlebugorg/osmrender/internal/render/paint"
	"github.com/beetlebugorg/osmrender/internal/render/raster"
	"github.com/beetlebugorg/osmrender/internal/tilecache"
)

// Options configures a Server.
type Options struct {
	Addr    string
	MinZoom int
	MaxZoom int

	Images  paint.ImageLoader
	Cache   *tilecache.Cache
	Metrics *metrics.Collectors
	Logger  logging.Logger
}

// Server renders tiles of a document whose ruleset has already been applied.
type Server struct {
	httpServer *http.Server
	doc        *geo.Document
	opts       Options
	tiles      *tilecache.Cache
	metrics    *metrics.Collectors
	log        logging.Logger

	mu     sync.Mutex
	scenes map[int]*zoomScene
}

type zoomScene struct {
	once     sync.Once
	renderer *render.Renderer
	scene    *render.Scene
}

func New(doc *geo.Document, opts Options) *Server {
	if opts.MaxZoom == 0 {
		opts.MaxZoom = 18
	}
	s := &Server{
		doc:     doc,
		opts:    opts,
		tiles:   opts.Cache,
		metrics: opts.Metrics,
		log:     logging.OrNop(opts.Logger),
		scenes:  make(map[int]*zoomScene),
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	if s.tiles == nil {
		s.tiles = tilecache.New(tilecache.Options{Metrics: s.metrics, Logger: s.log})
	}
	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Start() error {
	s.log.Infof("starting tile server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Infof("shutting down tile server")
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the routes wrapped in request logging and panic recovery.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /{z}/{x}/{y}", s.handleTile)
	mux.Handle("GET /metrics", s.metrics.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok\n"))
	})
	return s.recovery(s.logRequests(mux))
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()
		w.Header().Set("X-Request-Id", id)
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		s.metrics.HTTPRequests.WithLabelValues(strconv.Itoa(rec.code)).Inc()
		s.log.Debugf("[%s] %s %s %d %s", id, r.Method, r.URL.Path, rec.code, time.Since(start))
	})
}

func (s *Server) recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")
				s.log.Errorf("panic serving %s: %v", r.URL.Path, err)
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// parseTile reads z/x/y.png path values. ok is false with the HTTP status
// to answer when they are malformed or out of range.
func (s *Server) parseTile(r *http.Request) (key maptile.Tile, status int, ok bool) {
	yv, found := strings.CutSuffix(r.PathValue("y"), ".png")
	if !found {
		return key, http.StatusNotFound, false
	}
	z, errZ := strconv.Atoi(r.PathValue("z"))
	x, errX := strconv.Atoi(r.PathValue("x"))
	y, errY := strconv.Atoi(yv)
	if errZ != nil || errX != nil || errY != nil {
		return key, http.StatusBadRequest, false
	}
	if z < s.opts.MinZoom || z > s.opts.MaxZoom {
		return key, http.StatusNotFound, false
	}
	n := 1 << uint(z)
	if x < 0 || y < 0 || x >= n || y >= n {
		return key, http.StatusNotFound, false
	}
	return maptile.New(uint32(x), uint32(y), maptile.Zoom(z)), 0, true
}

func (s *Server) handleTile(w http.ResponseWriter, r *http.Request) {
	key, status, ok := s.parseTile(r)
	if !ok {
		http.Error(w, http.StatusText(status), status)
		return
	}

	data, err := s.tiles.Get(r.Context(), key, s.renderPNG)
	if err != nil {
		s.log.Errorf("tile %d/%d/%d: %v", key.Z, key.X, key.Y, err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}

// scene returns the prepared layers of a zoom level, building them once.
func (s *Server) scene(zoom int) *zoomScene {
	s.mu.Lock()
	zs, ok := s.scenes[zoom]
	if !ok {
		zs = &zoomScene{}
		s.scenes[zoom] = zs
	}
	s.mu.Unlock()

	zs.once.Do(func() {
		zs.renderer = render.NewRenderer(s.doc.Bounds(), zoom, s.opts.Images, s.log)
		zs.scene = zs.renderer.Prepare(s.doc)
		s.log.Debugf("prepared zoom %d: %d instructions", zoom, len(zs.scene.Layers.Instructions()))
	})
	return zs
}

func (s *Server) renderPNG(ctx context.Context, key maptile.Tile) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	zs := s.scene(int(key.Z))

	var canvas *raster.Canvas
	start := time.Now()
	t := zs.renderer.DrawTile(zs.scene, int(key.X), int(key.Y), func(p render.Page) paint.Painter {
		canvas = raster.NewCanvas(p.Size())
		return canvas
	})
	s.metrics.ObserveTile(t.Empty, time.Since(start))

	data, err := canvas.PNG()
	if err != nil {
		return nil, fmt.Errorf("encode tile: %w", err)
	}
	return data, nil
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>osmrender</title>
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<style>html, body, #map { height: 100%; margin: 0; }</style>
</head>
<body>
<div id="map"></div>
<script>
var map = L.map('map').setView([{{.Lat}}, {{.Lon}}], {{.Zoom}});
L.tileLayer('/{z}/{x}/{y}.png', {minZoom: {{.MinZoom}}, maxZoom: {{.MaxZoom}}}).addTo(map);
</script>
</body>
</html>
`))

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	center := s.doc.Bounds().Bound().Center()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := indexTemplate.Execute(w, struct {
		Lat, Lon               float64
		Zoom, MinZoom, MaxZoom int
	}{center.Lat(), center.Lon(), s.opts.MinZoom, s.opts.MinZoom, s.opts.MaxZoom})
	if err != nil {
		s.log.Errorf("index page: %v", err)
	}
}
