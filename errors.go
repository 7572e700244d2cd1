package epinet

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel error kinds surfaced at the boundaries described in spec.md §7.
// Use errors.Is against these values; wrapped context is added with
// errors.Wrap/Wrapf at the call site so the original kind is still
// recoverable by the caller.
var (
	// ErrInvalidDistribution is returned when a probability input
	// (household joint distribution, age-pair matrix) cannot be
	// normalized, e.g. every entry is zero.
	ErrInvalidDistribution = errors.New("invalid distribution")

	// ErrInsufficientCoordinates is returned when the requested
	// population size exceeds the coordinate catalog size, or when
	// household placement (one coordinate per household) runs out.
	ErrInsufficientCoordinates = errors.New("insufficient coordinates for requested population")

	// ErrInvariantViolation is returned when Σ_move or Σ_inf drifts
	// below the clamp window, or a cumulative-rate search finds no
	// candidate. Always fatal: the run aborts.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrNetworkSaturation is returned when work/other edge placement
	// exceeds its retry budget, indicating infeasible parameters.
	ErrNetworkSaturation = errors.New("network saturation: edge placement exceeded retry budget")
)

// rateClampWindow is the (−1e-3, 0) window within which negative
// numerical drift in Σ_move/Σ_inf is silently clamped to 0, per spec.md §4.5.
const rateClampWindow = -1e-3

// clampRate returns 0 if v lies within the tolerated negative drift
// window, v unchanged if v >= 0, and reports ok=false if v is a fatal
// invariant violation (more negative than rateClampWindow).
func clampRate(v float64) (clamped float64, ok bool) {
	if v >= 0 {
		return v, true
	}
	if v > rateClampWindow {
		return 0, true
	}
	return v, false
}

// errorsWrapInvariant wraps ErrInvariantViolation with the offending
// quantity's name and value, for the rate-drift check in rates.go and
// the "no candidate found" check in the engine's cumulative searches.
func errorsWrapInvariant(name string, value float64) error {
	return errors.Wrap(ErrInvariantViolation, fmt.Sprintf("%s = %g", name, value))
}
