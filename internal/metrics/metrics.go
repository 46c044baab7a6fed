package metrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"islands/internal/terrain"
)

const namespace = "islands"

// Generation outcomes used as the "outcome" label value.
const (
	OutcomeOK         = "ok"
	OutcomeDegenerate = "degenerate"
	OutcomeCancelled  = "cancelled"
	OutcomeError      = "error"
)

// Recorder exposes generation activity as Prometheus metrics. A nil *Recorder
// is valid and records nothing.
type Recorder struct {
	generations    *prometheus.CounterVec
	duration       prometheus.Histogram
	randomizations prometheus.Counter
	snapshots      prometheus.Gauge
	lastGeneration prometheus.Gauge
}

// NewRecorder creates the collectors and registers them with reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	if reg == nil {
		return nil, errors.New("metrics: registerer is nil")
	}
	r := &Recorder{
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Terrain generations by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Wall time spent generating one elevation grid.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}),
		randomizations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "randomizations_total",
			Help:      "Times the noise field was re-randomized.",
		}),
		snapshots: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshots_stored",
			Help:      "Snapshots currently held by the store.",
		}),
		lastGeneration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_generation_timestamp_seconds",
			Help:      "Unix time of the last successful generation.",
		}),
	}
	for _, c := range []prometheus.Collector{r.generations, r.duration, r.randomizations, r.snapshots, r.lastGeneration} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return r, nil
}

// ObserveGeneration records one generation attempt that took elapsed and
// finished with err.
func (r *Recorder) ObserveGeneration(elapsed time.Duration, err error) {
	if r == nil {
		return
	}
	outcome := Outcome(err)
	r.generations.WithLabelValues(outcome).Inc()
	if outcome == OutcomeOK {
		r.duration.Observe(elapsed.Seconds())
		r.lastGeneration.SetToCurrentTime()
	}
}

func (r *Recorder) IncRandomize() {
	if r == nil {
		return
	}
	r.randomizations.Inc()
}

func (r *Recorder) SetSnapshots(n int) {
	if r == nil {
		return
	}
	r.snapshots.Set(float64(n))
}

// Outcome classifies a generation error into a label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, terrain.ErrDegenerateField):
		return OutcomeDegenerate
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCancelled
	default:
		return OutcomeError
	}
}
