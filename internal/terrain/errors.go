package terrain

import (
	"errors"
	"fmt"
)

// ErrDegenerateField matches every *DegenerateFieldError via errors.Is.
var ErrDegenerateField = errors.New("degenerate noise field")

// DegenerateFieldError reports a sampled grid whose range cannot be
// normalized: every sample was equal, or a sample was not finite.
type DegenerateFieldError struct {
	Min       float64
	Max       float64
	NonFinite int // samples that were NaN or infinite
}

func (e *DegenerateFieldError) Error() string {
	if e.NonFinite > 0 {
		return fmt.Sprintf("degenerate noise field: %d non-finite samples", e.NonFinite)
	}
	return fmt.Sprintf("degenerate noise field: sampled range [%v, %v] cannot be normalized", e.Min, e.Max)
}

func (e *DegenerateFieldError) Unwrap() error {
	return ErrDegenerateField
}
