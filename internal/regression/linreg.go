// Package regression provides the log-linear least-squares fit used to
// score candidate exponential-phase windows.
package regression

import (
	"errors"
	"fmt"
	"math"
)

// ErrNonPositiveOD is returned when an OD value cannot be log-transformed.
var ErrNonPositiveOD = errors.New("non-positive OD value")

// ErrDegenerateTimes is returned when a window's time points carry no
// variance, which leaves the slope undefined.
var ErrDegenerateTimes = errors.New("time values are constant within window")

// FitResult contains the output of a log-linear regression over one window.
type FitResult struct {
	Slope     float64 `json:"slope"`     // Growth rate: d ln(OD)/dt
	Intercept float64 `json:"intercept"` // ln(OD) at t=0
	RSquared  float64 `json:"r_squared"` // Squared Pearson correlation (0-1)
}

// FitLogLinear fits ln(od) against times by ordinary least squares.
// Both slices must have equal length >= 2 and every OD value must be
// strictly positive. The fit is a pure function of its inputs.
func FitLogLinear(times, od []float64) (FitResult, error) {
	n := len(times)
	if n != len(od) {
		return FitResult{}, fmt.Errorf("length mismatch: %d times vs %d OD values", n, len(od))
	}
	if n < 2 {
		return FitResult{}, fmt.Errorf("need at least 2 points for regression, got %d", n)
	}

	y := make([]float64, n)
	for i, v := range od {
		if v <= 0 {
			return FitResult{}, fmt.Errorf("%w: od[%d] = %g", ErrNonPositiveOD, i, v)
		}
		y[i] = math.Log(v)
	}

	var sumX, sumY float64
	for i := 0; i < n; i++ {
		sumX += times[i]
		sumY += y[i]
	}
	meanX := sumX / float64(n)
	meanY := sumY / float64(n)

	// Mean-centered sums keep the arithmetic stable for large timestamps.
	var ssXY, ssXX, ssYY float64
	for i := 0; i < n; i++ {
		dx := times[i] - meanX
		dy := y[i] - meanY
		ssXY += dx * dy
		ssXX += dx * dx
		ssYY += dy * dy
	}

	if ssXX == 0 {
		return FitResult{}, ErrDegenerateTimes
	}

	slope := ssXY / ssXX
	intercept := meanY - slope*meanX

	var rSquared float64
	if ssYY > 0 {
		rSquared = (ssXY * ssXY) / (ssXX * ssYY)
	}

	return FitResult{
		Slope:     slope,
		Intercept: intercept,
		RSquared:  rSquared,
	}, nil
}
