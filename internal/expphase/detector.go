// Package expphase locates the exponential growth phase of an optical
// density time series. It scans every contiguous window between a minimum
// and maximum size, fits a log-linear model to each, and keeps the steepest
// window whose fit quality clears the R² threshold.
package expphase

import (
	"fmt"

	"github.com/linsu-lab/growthrate/internal/regression"
)

// Config contains the window-search parameters for exponential phase
// detection.
type Config struct {
	MinWindowSize     int     `yaml:"min_window_size"`     // Smallest window scanned (points)
	MaxWindowSize     int     `yaml:"max_window_size"`     // Largest window scanned (points)
	RSquaredThreshold float64 `yaml:"r_squared_threshold"` // Minimum R² for a window to qualify
}

// DefaultConfig returns the detection parameters used for standard plate
// reader series sampled at regular intervals.
func DefaultConfig() Config {
	return Config{
		MinWindowSize:     3,
		MaxWindowSize:     7,
		RSquaredThreshold: 0.8,
	}
}

// Validate checks the config against the series length it will scan.
func (c Config) Validate(seriesLen int) error {
	if c.MinWindowSize < 2 {
		return fmt.Errorf("min window size must be >= 2, got %d", c.MinWindowSize)
	}
	if c.MaxWindowSize < c.MinWindowSize {
		return fmt.Errorf("max window size %d is smaller than min window size %d",
			c.MaxWindowSize, c.MinWindowSize)
	}
	if seriesLen < c.MinWindowSize {
		return fmt.Errorf("series has %d points, need at least %d", seriesLen, c.MinWindowSize)
	}
	return nil
}

// DetectionResult identifies the selected exponential-phase window and the
// log-linear fit statistics that won it. A zero Slope and RSquared together
// mean no window cleared the threshold; the reported window is then the
// initial [0, MinWindowSize) default and carries no fitted values.
type DetectionResult struct {
	Start      int     `json:"start"`
	End        int     `json:"end"` // Exclusive
	WindowSize int     `json:"window_size"`
	Slope      float64 `json:"slope"`
	RSquared   float64 `json:"r_squared"`
}

// Found reports whether any window qualified. The fallback result is not an
// error: it is the sentinel for "no exponential phase detected" and its
// slope must not be read as a genuine zero growth rate.
func (r DetectionResult) Found() bool {
	return r.Slope != 0 || r.RSquared != 0
}

// Detect scans times/od for the exponential phase. A candidate window
// replaces the running best only when its R² clears the threshold AND its
// slope strictly exceeds the best slope so far, so the search returns the
// steepest qualifying window rather than the best-fitting one. Ties on
// slope keep the first-found window: smallest size, then smallest start.
//
// Window sizes are scanned ascending, start positions ascending within each
// size. The scan is stateless and deterministic; a regression error
// (non-positive OD inside any window) aborts it.
func Detect(times, od []float64, cfg Config) (DetectionResult, error) {
	if len(times) != len(od) {
		return DetectionResult{}, fmt.Errorf("length mismatch: %d times vs %d OD values",
			len(times), len(od))
	}
	if err := cfg.Validate(len(times)); err != nil {
		return DetectionResult{}, err
	}

	best := DetectionResult{
		Start:      0,
		End:        cfg.MinWindowSize,
		WindowSize: cfg.MinWindowSize,
	}

	for size := cfg.MinWindowSize; size <= cfg.MaxWindowSize; size++ {
		for start := 0; start+size <= len(times); start++ {
			end := start + size

			fit, err := regression.FitLogLinear(times[start:end], od[start:end])
			if err != nil {
				return DetectionResult{}, fmt.Errorf("window [%d:%d): %w", start, end, err)
			}

			// Steepest qualifying window wins. R² only gates; it is
			// never compared against the running best.
			if fit.RSquared > cfg.RSquaredThreshold && fit.Slope > best.Slope {
				best = DetectionResult{
					Start:      start,
					End:        end,
					WindowSize: size,
					Slope:      fit.Slope,
					RSquared:   fit.RSquared,
				}
			}
		}
	}

	return best, nil
}
