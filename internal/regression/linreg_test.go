package regression

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitLogLinear_PerfectExponential(t *testing.T) {
	// od[i] = A * e^(k*t[i]) must recover slope k with R² of 1.
	const (
		amplitude = 0.05
		k         = 0.4621
	)

	times := []float64{0, 0.5, 1, 1.5, 2, 2.5, 3}
	od := make([]float64, len(times))
	for i, tt := range times {
		od[i] = amplitude * math.Exp(k*tt)
	}

	fit, err := FitLogLinear(times, od)
	require.NoError(t, err)

	assert.InDelta(t, k, fit.Slope, 1e-6, "slope should recover the growth constant")
	assert.InDelta(t, math.Log(amplitude), fit.Intercept, 1e-6)
	assert.InDelta(t, 1.0, fit.RSquared, 1e-6)
}

func TestFitLogLinear_DoublingSeries(t *testing.T) {
	// Doubling every step means a slope of ln(2) per unit time.
	times := []float64{0, 1, 2, 3, 4, 5}
	od := []float64{0.1, 0.2, 0.4, 0.8, 1.6, 3.2}

	fit, err := FitLogLinear(times, od)
	require.NoError(t, err)

	assert.InDelta(t, math.Ln2, fit.Slope, 1e-9)
	assert.InDelta(t, 1.0, fit.RSquared, 1e-9)
}

func TestFitLogLinear_NoisyFitBelowPerfect(t *testing.T) {
	times := []float64{0, 1, 2, 3, 4, 5}
	od := []float64{0.1, 0.35, 0.3, 1.1, 0.9, 3.0}

	fit, err := FitLogLinear(times, od)
	require.NoError(t, err)

	assert.Greater(t, fit.Slope, 0.0)
	assert.Less(t, fit.RSquared, 1.0)
	assert.Greater(t, fit.RSquared, 0.0)
}

func TestFitLogLinear_NonPositiveOD(t *testing.T) {
	times := []float64{0, 1, 2}

	for name, od := range map[string][]float64{
		"zero":     {0.1, 0, 0.4},
		"negative": {0.1, -0.2, 0.4},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := FitLogLinear(times, od)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrNonPositiveOD)
		})
	}
}

func TestFitLogLinear_InputValidation(t *testing.T) {
	_, err := FitLogLinear([]float64{0, 1}, []float64{0.1})
	assert.Error(t, err, "mismatched lengths must fail")

	_, err = FitLogLinear([]float64{0}, []float64{0.1})
	assert.Error(t, err, "a single point must fail")
}

func TestFitLogLinear_ConstantTimes(t *testing.T) {
	_, err := FitLogLinear([]float64{2, 2, 2}, []float64{0.1, 0.2, 0.4})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDegenerateTimes)
}

func TestFitLogLinear_FlatSeriesHasZeroSlope(t *testing.T) {
	fit, err := FitLogLinear([]float64{0, 1, 2, 3}, []float64{1, 1, 1, 1})
	require.NoError(t, err)

	assert.Equal(t, 0.0, fit.Slope)
	assert.Equal(t, 0.0, fit.RSquared, "zero variance in ln(OD) leaves R² at zero")
}
