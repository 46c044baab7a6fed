package terrain

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"runtime"
	"sync"

	"islands/internal/noise"
)

// Options tunes a Generate call.
type Options struct {
	Falloff Falloff
	// Workers bounds the number of goroutines sampling rows. Zero picks
	// GOMAXPROCS*2.
	Workers int
	// Logger receives progress lines in 10% steps when set.
	Logger *log.Logger
}

// Generate samples field over a width×height grid, min-max normalizes the
// result into [0,1] and applies the optional falloff. Rows are sampled in
// parallel, so field must not be randomized while Generate runs.
//
// A field that samples to a single value everywhere yields a
// *DegenerateFieldError instead of a NaN grid.
func Generate(ctx context.Context, field noise.Field, width, height int, opts Options) (*ElevationGrid, error) {
	if field == nil {
		return nil, errors.New("terrain: noise field is nil")
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("terrain: output dimensions must be positive, got %dx%d", width, height)
	}
	if err := opts.Falloff.Validate(); err != nil {
		return nil, fmt.Errorf("terrain: %w", err)
	}

	values := make([]float64, width*height)
	if err := sampleRows(ctx, field, values, width, height, opts); err != nil {
		return nil, err
	}

	if err := normalize(values); err != nil {
		return nil, err
	}
	applyFalloff(values, width, height, opts.Falloff)

	return &ElevationGrid{width: width, height: height, values: values}, nil
}

func sampleRows(ctx context.Context, field noise.Field, values []float64, width, height int, opts Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := workerCount(opts.Workers, height)
	rows := make(chan int, workers)
	done := make(chan int, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for y := range rows {
				if ctx.Err() != nil {
					return
				}
				row := values[y*width : (y+1)*width]
				py := float64(y) / float64(height)
				for x := range row {
					row[x] = field.Sample(noise.Vec2{X: float64(x) / float64(width), Y: py})
				}
				select {
				case done <- y:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(done)
	}()

	go func() {
		defer close(rows)
		for y := 0; y < height; y++ {
			select {
			case <-ctx.Done():
				return
			case rows <- y:
			}
		}
	}()

	progress := newProgressLogger(opts.Logger, width, height)
	progress.start()
	for range done {
		progress.rowDone()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	progress.finish()
	return nil
}

// normalize rescales values in place so the smallest becomes exactly 0 and
// the largest exactly 1.
func normalize(values []float64) error {
	nonFinite := 0
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			nonFinite++
		}
	}
	min, max := valueRange(values)
	if nonFinite > 0 || max == min {
		return &DegenerateFieldError{Min: min, Max: max, NonFinite: nonFinite}
	}
	span := max - min
	for i, v := range values {
		values[i] = (v - min) / span
	}
	return nil
}

func workerCount(configured, rows int) int {
	if rows <= 0 {
		return 1
	}
	workers := configured
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0) * 2
	}
	if workers > rows {
		workers = rows
	}
	if workers <= 0 {
		workers = 1
	}
	return workers
}

type progressLogger struct {
	logger *log.Logger
	width  int
	height int
	rows   int
	next   int
}

func newProgressLogger(logger *log.Logger, width, height int) *progressLogger {
	return &progressLogger{logger: logger, width: width, height: height, next: 10}
}

func (p *progressLogger) start() {
	if p.logger != nil {
		p.logger.Printf("terrain %dx%d generation progress: 0%%", p.width, p.height)
	}
}

func (p *progressLogger) rowDone() {
	p.rows++
	if p.logger == nil {
		return
	}
	percent := p.rows * 100 / p.height
	if percent < p.next || percent >= 100 {
		return
	}
	p.logger.Printf("terrain %dx%d generation progress: %d%%", p.width, p.height, percent)
	p.next = (percent/10 + 1) * 10
}

func (p *progressLogger) finish() {
	if p.logger != nil {
		p.logger.Printf("terrain %dx%d generation progress: 100%%", p.width, p.height)
	}
}
