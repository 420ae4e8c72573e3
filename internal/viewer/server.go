package viewer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yandex/perforator-flame/internal/xmetrics"
	"github.com/yandex/perforator-flame/pkg/flamegraph/drawlist"
	"github.com/yandex/perforator-flame/pkg/flamegraph/engine"
	"github.com/yandex/perforator-flame/pkg/flamegraph/geometry"
	"github.com/yandex/perforator-flame/pkg/flamegraph/palette"
	"github.com/yandex/perforator-flame/pkg/flamegraph/selection"
	"github.com/yandex/perforator-flame/pkg/flamegraph/table"
	"github.com/yandex/perforator-flame/pkg/xlog"
)

const shutdownTimeout = 5 * time.Second

// Server serves frames of one loaded table over HTTP. Requests share one
// engine and are serialized.
type Server struct {
	l    xlog.Logger
	conf *Config
	reg  xmetrics.Registry

	mu    sync.Mutex
	table *table.Table
	host  *Host

	router http.Handler
}

// NewServer takes ownership of tbl.
func NewServer(r *Renderer, tbl *table.Table) *Server {
	s := &Server{
		l:     r.logger.WithName("server"),
		conf:  r.conf,
		reg:   r.reg,
		table: tbl,
		host:  r.NewHost(tbl),
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(middleware.Logger)
	router.Get("/api/frame", s.handleFrame)
	router.Get("/api/minimap.png", s.handleMinimap)
	router.Get("/api/hover", s.handleHover)
	router.Get("/api/rows/{row}", s.handleRow)
	s.router = router

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.host.Close()
	s.table.Release()
}

////////////////////////////////////////////////////////////////////////////////

type badRequest struct {
	err error
}

func (e badRequest) Error() string {
	return e.err.Error()
}

func queryFloat(r *http.Request, name string) (float64, bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, badRequest{fmt.Errorf("invalid %s %q: %w", name, raw, err)}
	}
	return v, true, nil
}

// apply moves the shared engine to the state requested by the query. Unset
// parameters keep their previous values.
func (s *Server) apply(r *http.Request) error {
	q := r.URL.Query()
	e := s.host.Engine
	vp := s.host.Tracker.Snapshot()

	if q.Has("path") {
		// One path value per frame from the root; an empty value selects the root.
		var names []string
		for _, name := range q["path"] {
			if name != "" {
				names = append(names, name)
			}
		}
		e.SetSelectionPath(selection.ParsePath(names...))
	}
	if raw := q.Get("color_by"); raw != "" {
		by, err := palette.ParseColorBy(raw)
		if err != nil {
			return badRequest{err}
		}
		e.SetColorBy(by)
	}
	if raw := q.Get("mode"); raw != "" {
		mode, err := geometry.ParseMode(raw)
		if err != nil {
			return badRequest{err}
		}
		e.SetMode(mode)
	}
	for name, set := range map[string]func(bool){"dark": e.SetDark, "inverted": e.SetInverted} {
		if raw := q.Get(name); raw != "" {
			v, err := strconv.ParseBool(raw)
			if err != nil {
				return badRequest{fmt.Errorf("invalid %s %q: %w", name, raw, err)}
			}
			set(v)
		}
	}
	if raw := q.Get("depth_limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return badRequest{fmt.Errorf("invalid depth_limit %q: %w", raw, err)}
		}
		e.SetDepthLimit(limit)
	}

	width, hasWidth, err := queryFloat(r, "width")
	if err != nil {
		return err
	}
	height, hasHeight, err := queryFloat(r, "height")
	if err != nil {
		return err
	}
	if hasWidth || hasHeight {
		if !hasWidth {
			width = vp.ContainerWidth
		}
		if !hasHeight {
			height = vp.ContainerHeight
		}
		s.host.Tracker.HandleResize(width, height)
	}

	if zoom, ok, err := queryFloat(r, "zoom"); err != nil {
		return err
	} else if ok && zoom > 0 {
		e.Zoom(zoom/e.ZoomLevel(), 0)
	}

	s.host.Flush()
	vp = s.host.Tracker.Snapshot()
	top, hasTop, err := queryFloat(r, "scroll_top")
	if err != nil {
		return err
	}
	left, hasLeft, err := queryFloat(r, "scroll_left")
	if err != nil {
		return err
	}
	if hasTop || hasLeft {
		if !hasTop {
			top = vp.ScrollTop
		}
		if !hasLeft {
			left = vp.ScrollLeft
		}
		s.host.Tracker.HandleScroll(top, left)
	}
	s.host.Flush()
	return nil
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var bad badRequest
	if errors.As(err, &bad) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.l.Error(r.Context(), "Request failed", zap.String("path", r.URL.Path), zap.Error(err))
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.apply(r); err != nil {
		s.fail(w, r, err)
		return
	}
	frame := s.host.Engine.Frame()

	w.Header().Set("Content-Type", "application/json")
	if err := drawlist.Encode(w, s.table, frame); err != nil {
		s.l.Warn(r.Context(), "Failed to write frame", zap.Error(err))
	}
}

func (s *Server) handleMinimap(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.apply(r); err != nil {
		s.fail(w, r, err)
		return
	}
	frame := s.host.Engine.Frame()

	w.Header().Set("Content-Type", "image/png")
	if err := EncodePNG(w, frame.Minimap); err != nil {
		s.l.Warn(r.Context(), "Failed to write minimap", zap.Error(err))
	}
}

// handleHover hit-tests content coordinates against the last frame.
func (s *Server) handleHover(w http.ResponseWriter, r *http.Request) {
	x, _, err := queryFloat(r, "x")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	y, _, err := queryFloat(r, "y")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.mu.Lock()
	if s.host.Engine.LastFrame() == nil {
		s.host.Engine.Frame()
	}
	row, ok := s.host.Engine.HitTest(x, y)
	if !ok {
		row = -1
	}
	hover := s.host.Engine.Describe(row)
	s.mu.Unlock()

	s.writeJSON(w, r, hover)
}

type rowResponse struct {
	Hover engine.Hover             `json:"hover"`
	Path  []selection.FrameMatcher `json:"path"`
}

func (s *Server) handleRow(w http.ResponseWriter, r *http.Request) {
	row, err := strconv.Atoi(chi.URLParam(r, "row"))
	if err != nil || row < 0 || row >= s.table.NumRows() {
		http.Error(w, "row not found", http.StatusNotFound)
		return
	}

	s.mu.Lock()
	response := rowResponse{Hover: s.host.Engine.Describe(row)}
	for _, step := range selection.PathTo(s.table, row) {
		if m, ok := step.(selection.FrameMatcher); ok {
			response.Path = append(response.Path, m)
		}
	}
	s.mu.Unlock()

	s.writeJSON(w, r, response)
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.l.Warn(r.Context(), "Failed to write response", zap.Error(err))
	}
}

////////////////////////////////////////////////////////////////////////////////

func (s *Server) runMetricsServer(ctx context.Context, port uint) error {
	s.l.Info(ctx, "Starting metrics server", zap.Uint("port", port))
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.reg.HTTPHandler(ctx, s.l))
	return serve(ctx, &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux})
}

func (s *Server) runHTTPServer(ctx context.Context, port uint) error {
	s.l.Info(ctx, "Starting HTTP server", zap.Uint("port", port))
	return serve(ctx, &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: s.router})
}

func serve(ctx context.Context, srv *http.Server) error {
	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

// Run serves until ctx is cancelled or a server fails.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := s.runMetricsServer(ctx, s.conf.Server.MetricsPort)
		if err != nil {
			s.l.Error(ctx, "Failed metrics server", zap.Error(err))
		}
		return err
	})

	g.Go(func() error {
		err := s.runHTTPServer(ctx, s.conf.Server.HTTPPort)
		if err != nil {
			s.l.Error(ctx, "HTTP server failed", zap.Error(err))
		}
		return err
	})

	return g.Wait()
}
