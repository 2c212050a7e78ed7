// Package layout serves generated layers over HTTP as JSON, CSS and PNG,
// plus a websocket for live reseeding.
package layout

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/randomizedcoder/go-mist-scatter/internal/logging"
	"github.com/randomizedcoder/go-mist-scatter/internal/render"
	"github.com/randomizedcoder/go-mist-scatter/internal/scatter"
)

// DefaultMaxCount caps the count query parameter.
const DefaultMaxCount = 10000

// ErrCountTooLarge reports a layer whose own count exceeds the service's cap.
var ErrCountTooLarge = errors.New("layer count exceeds max count")

// Instrumenter wraps handlers with per-route metrics.
type Instrumenter interface {
	InstrumentHandler(route string, h http.Handler) http.Handler
}

// Options configures a Service.
type Options struct {
	Layers       *scatter.LayerSet
	Cache        *scatter.Cache // nil creates an unobserved cache
	MaxCount     uint           // 0 uses DefaultMaxCount
	Logger       *slog.Logger
	Instrumenter Instrumenter // may be nil
}

// Service is the layout API.
type Service struct {
	layers       *scatter.LayerSet
	cache        *scatter.Cache
	maxCount     uint
	logger       *slog.Logger
	instrumenter Instrumenter
	mux          *http.ServeMux

	liveMu  sync.Mutex
	live    map[*websocket.Conn]struct{}
	closing bool
}

// New creates a Service and registers its routes. Every layer's default count
// must be within MaxCount, the same cap clients are held to.
func New(opts Options) (*Service, error) {
	s := &Service{
		layers:       opts.Layers,
		cache:        opts.Cache,
		maxCount:     opts.MaxCount,
		logger:       opts.Logger,
		instrumenter: opts.Instrumenter,
		mux:          http.NewServeMux(),
		live:         make(map[*websocket.Conn]struct{}),
	}
	if s.layers == nil {
		s.layers = scatter.DefaultLayerSet()
	}
	if s.cache == nil {
		s.cache = scatter.NewCache(0, nil)
	}
	if s.maxCount == 0 {
		s.maxCount = DefaultMaxCount
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}

	var errs []error
	for _, l := range s.layers.All() {
		if l.Count > s.maxCount {
			errs = append(errs, fmt.Errorf("layer %q: %w (%d > %d)", l.Name, ErrCountTooLarge, l.Count, s.maxCount))
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	s.handle("GET /v1/layers", "layers", s.handleList)
	s.handle("GET /v1/layers/{name}", "layer", s.handleLayer)
	s.handle("GET /v1/layers/{name}/css", "css", s.handleCSS)
	s.handle("GET /v1/layers/{name}/png", "png", s.handlePNG)
	s.handle("GET /v1/layers/{name}/ws", "ws", s.handleLive)

	return s, nil
}

func (s *Service) handle(pattern, route string, fn http.HandlerFunc) {
	var h http.Handler = fn
	if s.instrumenter != nil {
		h = s.instrumenter.InstrumentHandler(route, h)
	}
	s.mux.Handle(pattern, logging.Middleware(s.logger, h))
}

// ServeHTTP implements http.Handler.
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Layers returns the served layer set.
func (s *Service) Layers() *scatter.LayerSet {
	return s.layers
}

// queryError marks a request the client got wrong.
type queryError struct {
	param string
	msg   string
}

func (e queryError) Error() string {
	return fmt.Sprintf("%s: %s", e.param, e.msg)
}

// resolve looks up the named layer and applies the seed and count query
// parameters.
func (s *Service) resolve(r *http.Request) (scatter.Layer, error) {
	l, err := s.layers.Get(r.PathValue("name"))
	if err != nil {
		return scatter.Layer{}, err
	}

	q := r.URL.Query()
	if v := q.Get("seed"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return scatter.Layer{}, queryError{"seed", "must be an integer"}
		}
		l.Seed = seed
	}
	if v := q.Get("count"); v != "" {
		count, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return scatter.Layer{}, queryError{"count", "must be a non-negative integer"}
		}
		if err := s.checkCount(count); err != nil {
			return scatter.Layer{}, err
		}
		l.Count = uint(count)
	}
	return l, nil
}

func (s *Service) checkCount(count uint64) error {
	if count > uint64(s.maxCount) {
		return queryError{"count", fmt.Sprintf("must be <= %d", s.maxCount)}
	}
	return nil
}

func (s *Service) handleList(w http.ResponseWriter, r *http.Request) {
	all := s.layers.All()
	resp := ListResponse{Layers: make([]LayerInfo, len(all))}
	for i, l := range all {
		resp.Layers[i] = Info(l)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Service) handleLayer(w http.ResponseWriter, r *http.Request) {
	l, err := s.resolve(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewLayerResponse(l, s.cache.Particles(l)))
}

func (s *Service) handleCSS(w http.ResponseWriter, r *http.Request) {
	l, err := s.resolve(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, render.Stylesheet(l.Name, s.cache.Particles(l), render.MistSprite()))
}

func (s *Service) handlePNG(w http.ResponseWriter, r *http.Request) {
	l, err := s.resolve(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	opts := render.DefaultPNGOptions()
	q := r.URL.Query()
	for _, p := range []struct {
		name string
		dst  *int
	}{
		{"width", &opts.Width},
		{"height", &opts.Height},
	} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			s.writeError(w, queryError{p.name, "must be an integer"})
			return
		}
		*p.dst = n
	}
	if err := opts.Validate(); err != nil {
		s.writeError(w, queryError{"size", err.Error()})
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if err := render.WritePNG(w, s.cache.Particles(l), opts); err != nil {
		s.logger.Error("png_render_failed", "layer", l.Name, "error", err)
	}
}

func (s *Service) writeError(w http.ResponseWriter, err error) {
	var qe queryError
	switch {
	case errors.Is(err, scatter.ErrUnknownLayer):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.As(err, &qe):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		s.logger.Error("layout_request_failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
