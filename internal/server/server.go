package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"islands/internal/config"
	"islands/internal/metrics"
	"islands/internal/raster"
	"islands/internal/store"
	"islands/internal/terrain"
	"islands/internal/world"
)

// Server exposes a World over HTTP: PNG previews of the latest terrain,
// regenerate and randomize triggers, stored snapshots and metrics.
type Server struct {
	cfg      *config.Config
	world    *world.World
	store    store.Store
	registry *prometheus.Registry
	httpSrv  *http.Server
	logger   *log.Logger
}

func New(cfg *config.Config) (*Server, error) {
	logger := log.New(log.Writer(), "islands ", log.LstdFlags|log.Lmicroseconds)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder, err := metrics.NewRecorder(registry)
	if err != nil {
		return nil, err
	}

	snapshots, err := store.Open(cfg.Store.Path, cfg.Store.Retain)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}
	if infos, err := snapshots.List(); err == nil {
		recorder.SetSnapshots(len(infos))
	}

	w, err := world.New(cfg, world.Options{
		Logger:  logger,
		Metrics: recorder,
		Store:   snapshots,
	})
	if err != nil {
		snapshots.Close()
		return nil, err
	}

	return &Server{
		cfg:      cfg,
		world:    w,
		store:    snapshots,
		registry: registry,
		logger:   logger,
	}, nil
}

// Handler returns the HTTP routes served by Run.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /heightmap.png", s.handleLatest(renderHeightmap))
	mux.HandleFunc("GET /colourmap.png", s.handleLatest(s.renderColourmap))
	mux.HandleFunc("POST /regenerate", s.handleRegenerate)
	mux.HandleFunc("POST /randomize", s.handleRandomize)
	mux.HandleFunc("GET /snapshots", s.handleSnapshots)
	mux.HandleFunc("GET /snapshots/{id}/heightmap.png", s.handleSnapshot(renderHeightmap))
	mux.HandleFunc("GET /snapshots/{id}/colourmap.png", s.handleSnapshot(s.renderColourmap))
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return mux
}

// Run generates the initial terrain and serves HTTP until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	defer s.Close()

	if _, err := s.world.Regenerate(ctx); err != nil {
		return err
	}

	addr := s.cfg.Preview.ListenAddress
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("HTTP preview listening on %s", addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		timeout := s.cfg.Preview.ShutdownTimeout.Duration()
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

// Close releases the snapshot store.
func (s *Server) Close() error {
	return s.store.Close()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"generation": s.world.Generation(),
	})
}

type generationResponse struct {
	Generation uint64    `json:"generation"`
	Snapshot   uuid.UUID `json:"snapshot"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
}

func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	s.regenerate(w, r)
}

func (s *Server) handleRandomize(w http.ResponseWriter, r *http.Request) {
	s.world.Randomize()
	s.regenerate(w, r)
}

func (s *Server) regenerate(w http.ResponseWriter, r *http.Request) {
	state, err := s.world.Regenerate(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, terrain.ErrDegenerateField) {
			status = http.StatusUnprocessableEntity
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, http.StatusOK, generationResponse{
		Generation: state.Generation,
		Snapshot:   state.SnapshotID,
		Width:      state.Grid.Width(),
		Height:     state.Grid.Height(),
	})
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	infos, err := s.store.List()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, infos)
}

type renderFunc func(grid *terrain.ElevationGrid) ([]byte, error)

func (s *Server) handleLatest(render renderFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, ok := s.world.Latest()
		if !ok {
			http.Error(w, "terrain not generated yet", http.StatusServiceUnavailable)
			return
		}
		writePNG(w, state.Grid, render)
	}
}

func (s *Server) handleSnapshot(render renderFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			http.Error(w, "invalid snapshot id", http.StatusBadRequest)
			return
		}
		snap, ok, err := s.store.Load(id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if !ok {
			http.Error(w, "snapshot not found", http.StatusNotFound)
			return
		}
		grid, err := snap.Grid()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writePNG(w, grid, render)
	}
}

func renderHeightmap(grid *terrain.ElevationGrid) ([]byte, error) {
	buf := raster.NewBuffer(grid)
	if err := raster.WriteGrayscale(grid, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (s *Server) renderColourmap(grid *terrain.ElevationGrid) ([]byte, error) {
	buf := raster.NewBuffer(grid)
	if err := raster.WritePalette(grid, buf, s.world.Palette()); err != nil {
		return nil, err
	}
	return buf, nil
}

func writePNG(w http.ResponseWriter, grid *terrain.ElevationGrid, render renderFunc) {
	pixels, err := render(grid)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	var out bytes.Buffer
	if err := raster.EncodePNG(&out, grid.Width(), grid.Height(), pixels); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(out.Bytes())
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}
