// Package analysis runs exponential-phase detection across the replicates
// of a dataset and derives the per-replicate growth statistics.
package analysis

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/linsu-lab/growthrate/internal/dataset"
	"github.com/linsu-lab/growthrate/internal/expphase"
	"github.com/linsu-lab/growthrate/internal/regression"
)

// ReplicateResult carries the outcome of one replicate's analysis. Exactly
// one of Err or the numeric fields is meaningful: a failed replicate keeps
// its error and zero statistics, and never blocks the rest of the batch.
type ReplicateResult struct {
	Name      string                   `json:"name"`
	Detection expphase.DetectionResult `json:"detection"`

	// Fit over the winning window. The detector discards the intercept,
	// so the window is refit once to recover the full line for plotting.
	Fit regression.FitResult `json:"fit"`

	GrowthRate   float64 `json:"growth_rate"`
	DoublingTime float64 `json:"doubling_time"` // NaN when no phase was detected

	Err error `json:"-"`
}

// PhaseDetected reports whether this replicate yielded a usable
// exponential phase. The detector's fallback result and failed replicates
// both count as "no phase".
func (r ReplicateResult) PhaseDetected() bool {
	return r.Err == nil && r.Detection.Found()
}

// Analyzer applies exponential-phase detection independently to each
// replicate of a dataset. Replicates share nothing, so the fan-out is a
// plain bounded worker pool.
type Analyzer struct {
	cfg         expphase.Config
	concurrency int
}

// NewAnalyzer creates an analyzer with the given detection parameters.
// Concurrency below 1 is clamped to 1.
func NewAnalyzer(cfg expphase.Config, concurrency int) *Analyzer {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Analyzer{cfg: cfg, concurrency: concurrency}
}

// Run analyzes every replicate in ds and returns results in dataset column
// order. Per-replicate failures are recorded on the result, not returned:
// one bad column must not abort the others. Cancelling ctx abandons
// replicates that have not started yet.
func (a *Analyzer) Run(ctx context.Context, ds *dataset.Dataset) []ReplicateResult {
	results := make([]ReplicateResult, len(ds.Replicates))

	sem := make(chan struct{}, a.concurrency)
	var wg sync.WaitGroup

	for i, rep := range ds.Replicates {
		if err := ctx.Err(); err != nil {
			for j := i; j < len(ds.Replicates); j++ {
				results[j] = ReplicateResult{Name: ds.Replicates[j].Name, Err: err}
			}
			break
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(i int, rep dataset.Replicate) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = a.analyzeReplicate(ds.Times, rep)
		}(i, rep)
	}

	wg.Wait()
	return results
}

func (a *Analyzer) analyzeReplicate(times []float64, rep dataset.Replicate) ReplicateResult {
	result := ReplicateResult{Name: rep.Name, DoublingTime: math.NaN()}

	detection, err := expphase.Detect(times, rep.OD, a.cfg)
	if err != nil {
		result.Err = fmt.Errorf("replicate %s: %w", rep.Name, err)
		return result
	}
	result.Detection = detection

	if !detection.Found() {
		log.Warn().Str("replicate", rep.Name).Msg("No exponential phase detected")
		return result
	}

	// Refit the winning window to recover the intercept.
	fit, err := regression.FitLogLinear(times[detection.Start:detection.End], rep.OD[detection.Start:detection.End])
	if err != nil {
		result.Err = fmt.Errorf("replicate %s: refit of window [%d:%d): %w",
			rep.Name, detection.Start, detection.End, err)
		return result
	}

	result.Fit = fit
	result.GrowthRate = fit.Slope
	if fit.Slope > 0 {
		result.DoublingTime = math.Ln2 / fit.Slope
	}

	log.Debug().
		Str("replicate", rep.Name).
		Int("start", detection.Start).
		Int("end", detection.End).
		Float64("growth_rate", result.GrowthRate).
		Float64("r_squared", fit.RSquared).
		Msg("Exponential phase detected")

	return result
}
