package world

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"islands/internal/config"
	"islands/internal/metrics"
	"islands/internal/noise"
	"islands/internal/palette"
	"islands/internal/raster"
	"islands/internal/store"
	"islands/internal/terrain"
)

// ErrNotGenerated is returned by Redraw before the first successful
// Regenerate.
var ErrNotGenerated = errors.New("world: no terrain generated yet")

// Options wires optional collaborators into a World.
type Options struct {
	Logger  *log.Logger
	Metrics *metrics.Recorder
	// Store receives a snapshot of every successful generation.
	Store store.Store
	// Progress forwards generation progress lines to Logger.
	Progress bool
}

// State is the outcome of the most recent successful generation.
type State struct {
	Grid       *terrain.ElevationGrid
	Generation uint64
	SnapshotID uuid.UUID
}

// World owns a noise field and its randomness source and turns regenerate
// and redraw triggers into elevation grids and raster buffers.
type World struct {
	width   int
	height  int
	falloff terrain.Falloff
	workers int
	palette *palette.Palette

	logger   *log.Logger
	metrics  *metrics.Recorder
	store    store.Store
	progress bool

	// mu guards field, rng and seed: generation samples under the read
	// lock, Randomize mutates under the write lock. seed always rebuilds the
	// current field through New.
	mu    sync.RWMutex
	field noise.Field
	rng   *rand.Rand
	seed  int64

	stateMu    sync.RWMutex
	latest     State
	generation uint64
}

// New builds a World from cfg. A zero seed is replaced with a time-based one.
func New(cfg *config.Config, opts Options) (*World, error) {
	if cfg == nil {
		return nil, errors.New("world: config is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("world: %w", err)
	}
	falloff, err := cfg.FalloffSpec()
	if err != nil {
		return nil, fmt.Errorf("world: %w", err)
	}
	pal, err := cfg.BuildPalette()
	if err != nil {
		return nil, fmt.Errorf("world: %w", err)
	}

	seed := cfg.Noise.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	field, err := NewField(cfg.Noise, cfg.LayerSpecs(), rng)
	if err != nil {
		return nil, fmt.Errorf("world: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "islands ", log.LstdFlags|log.Lmicroseconds)
	}

	return &World{
		width:    cfg.Map.Width,
		height:   cfg.Map.Height,
		falloff:  falloff,
		workers:  cfg.Generation.Workers,
		palette:  pal,
		seed:     seed,
		logger:   logger,
		metrics:  opts.Metrics,
		store:    opts.Store,
		progress: opts.Progress,
		field:    field,
		rng:      rng,
	}, nil
}

// NewField constructs the noise field selected by cfg.Backend.
func NewField(cfg config.NoiseConfig, layers []noise.LayerSpec, rng *rand.Rand) (noise.Field, error) {
	switch cfg.Backend {
	case config.BackendGradient, "":
		return noise.NewLayeredField(layers, cfg.GradientScale, rng)
	case config.BackendPerlin:
		return noise.NewPerlinField(noise.PerlinParams{
			Alpha:     cfg.Perlin.Alpha,
			Beta:      cfg.Perlin.Beta,
			Octaves:   cfg.Perlin.Octaves,
			Frequency: cfg.Perlin.Frequency,
		}, rng)
	case config.BackendSimplex:
		return noise.NewSimplexField(cfg.Simplex.Frequency, rng)
	default:
		return nil, fmt.Errorf("unknown noise backend %q", cfg.Backend)
	}
}

func (w *World) Width() int                { return w.width }
func (w *World) Height() int               { return w.height }
func (w *World) Palette() *palette.Palette { return w.palette }

// Seed returns the seed that reproduces the current field when passed to
// New as noise.seed.
func (w *World) Seed() int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.seed
}

// Regenerate samples the current field into a new elevation grid. On
// success the grid becomes the latest state and is snapshotted when a store
// is configured. A failed generation leaves the previous state in place.
func (w *World) Regenerate(ctx context.Context) (State, error) {
	opts := terrain.Options{Falloff: w.falloff, Workers: w.workers}
	if w.progress {
		opts.Logger = w.logger
	}

	start := time.Now()
	w.mu.RLock()
	seed := w.seed
	grid, err := terrain.Generate(ctx, w.field, w.width, w.height, opts)
	w.mu.RUnlock()
	elapsed := time.Since(start)
	w.metrics.ObserveGeneration(elapsed, err)
	if err != nil {
		if errors.Is(err, terrain.ErrDegenerateField) {
			w.logger.Printf("regenerate: %v; randomize the field and retry", err)
		}
		return State{}, fmt.Errorf("regenerate: %w", err)
	}

	w.stateMu.Lock()
	w.generation++
	state := State{Grid: grid, Generation: w.generation}
	w.stateMu.Unlock()

	if w.store != nil {
		snap := store.NewSnapshot(grid, seed, state.Generation)
		if err := w.store.Save(snap); err != nil {
			w.logger.Printf("save snapshot for generation %d: %v", state.Generation, err)
		} else {
			state.SnapshotID = snap.ID
			if infos, err := w.store.List(); err == nil {
				w.metrics.SetSnapshots(len(infos))
			}
		}
	}

	w.stateMu.Lock()
	// a slower concurrent call must not replace a newer grid
	if state.Generation > w.latest.Generation {
		w.latest = state
	}
	w.stateMu.Unlock()

	w.logger.Printf("generated %dx%d terrain (generation %d) in %s", w.width, w.height, state.Generation, elapsed.Round(time.Millisecond))
	return state, nil
}

// Randomize draws a fresh seed from the world's randomness source, reseeds
// it and re-rolls the field, so the new field is exactly what New builds
// from that seed. It waits for in-flight generations to finish.
func (w *World) Randomize() {
	w.mu.Lock()
	next := w.rng.Int63()
	for next == 0 {
		// zero means "time-based" to New
		next = w.rng.Int63()
	}
	w.seed = next
	w.rng = rand.New(rand.NewSource(next))
	w.field.Randomize(w.rng)
	w.mu.Unlock()
	w.metrics.IncRandomize()
}

// Redraw writes the latest grid into the caller's buffers: luminance into
// height and palette colours into colour. Either buffer may be nil to skip
// it.
func (w *World) Redraw(height, colour []byte) error {
	state, ok := w.Latest()
	if !ok {
		return ErrNotGenerated
	}
	if height != nil {
		if err := raster.WriteGrayscale(state.Grid, height); err != nil {
			return fmt.Errorf("redraw heightmap: %w", err)
		}
	}
	if colour != nil {
		if err := raster.WritePalette(state.Grid, colour, w.palette); err != nil {
			return fmt.Errorf("redraw colour map: %w", err)
		}
	}
	return nil
}

// Latest returns the most recent successful generation.
func (w *World) Latest() (State, bool) {
	w.stateMu.RLock()
	defer w.stateMu.RUnlock()
	return w.latest, w.latest.Grid != nil
}

// Generation is the number of successful generations so far.
func (w *World) Generation() uint64 {
	w.stateMu.RLock()
	defer w.stateMu.RUnlock()
	return w.generation
}
