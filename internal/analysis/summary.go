package analysis

import (
	"github.com/montanaflynn/stats"
)

// Summary aggregates growth statistics across the replicates that detected
// an exponential phase. SD values use the sample standard deviation
// (divisor n-1) and are zero when fewer than two replicates contributed.
type Summary struct {
	Replicates int `json:"replicates"`
	Detected   int `json:"detected"`
	Failed     int `json:"failed"`

	MeanGrowthRate float64 `json:"mean_growth_rate"`
	SDGrowthRate   float64 `json:"sd_growth_rate"`

	MeanDoublingTime float64 `json:"mean_doubling_time"`
	SDDoublingTime   float64 `json:"sd_doubling_time"`

	MeanRSquared float64 `json:"mean_r_squared"`
	SDRSquared   float64 `json:"sd_r_squared"`
}

// Summarize computes mean and sample SD of growth rate, doubling time, and
// R² over the usable replicates. Replicates that errored or fell back to
// the no-phase sentinel are counted but excluded from the aggregates: the
// sentinel's zero slope is not a genuine growth rate and its doubling time
// is undefined.
func Summarize(results []ReplicateResult) Summary {
	summary := Summary{Replicates: len(results)}

	var rates, doublings, rsquareds []float64
	for _, r := range results {
		if r.Err != nil {
			summary.Failed++
			continue
		}
		if !r.PhaseDetected() {
			continue
		}
		summary.Detected++
		rates = append(rates, r.GrowthRate)
		doublings = append(doublings, r.DoublingTime)
		rsquareds = append(rsquareds, r.Detection.RSquared)
	}

	summary.MeanGrowthRate, summary.SDGrowthRate = meanAndSD(rates)
	summary.MeanDoublingTime, summary.SDDoublingTime = meanAndSD(doublings)
	summary.MeanRSquared, summary.SDRSquared = meanAndSD(rsquareds)

	return summary
}

func meanAndSD(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}

	mean, err := stats.Mean(values)
	if err != nil {
		return 0, 0
	}
	if len(values) < 2 {
		return mean, 0
	}

	sd, err := stats.StandardDeviationSample(values)
	if err != nil {
		return mean, 0
	}
	return mean, sd
}
