package analysis

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linsu-lab/growthrate/internal/dataset"
	"github.com/linsu-lab/growthrate/internal/expphase"
	"github.com/linsu-lab/growthrate/internal/regression"
)

func doublingDataset() *dataset.Dataset {
	return &dataset.Dataset{
		TimeLabel: "Time",
		Times:     []float64{0, 1, 2, 3, 4, 5},
		Replicates: []dataset.Replicate{
			{Name: "Rep1", OD: []float64{0.1, 0.2, 0.4, 0.8, 1.6, 3.2}},
			{Name: "Rep2", OD: []float64{0.11, 0.21, 0.43, 0.82, 1.65, 3.1}},
			// Noise must stay gentle: detection returns the steepest
			// qualifying window, so a step that overshoots doubling by
			// too much drags the reported rate well above ln(2).
			{Name: "Rep3", OD: []float64{0.09, 0.18, 0.37, 0.75, 1.5, 2.95}},
		},
	}
}

func TestAnalyzer_Run_AllReplicatesDetect(t *testing.T) {
	analyzer := NewAnalyzer(expphase.DefaultConfig(), 2)

	results := analyzer.Run(context.Background(), doublingDataset())
	require.Len(t, results, 3)

	for i, name := range []string{"Rep1", "Rep2", "Rep3"} {
		r := results[i]
		assert.Equal(t, name, r.Name, "results must keep dataset column order")
		require.NoError(t, r.Err)
		assert.True(t, r.PhaseDetected())
		assert.InDelta(t, math.Ln2, r.GrowthRate, 0.05)
		assert.InDelta(t, 1.0, r.DoublingTime, 0.1)
		assert.Greater(t, r.Detection.RSquared, 0.8)
	}
}

func TestAnalyzer_Run_RefitRecoversIntercept(t *testing.T) {
	ds := doublingDataset()
	analyzer := NewAnalyzer(expphase.DefaultConfig(), 1)

	results := analyzer.Run(context.Background(), ds)
	r := results[0]
	require.NoError(t, r.Err)

	d := r.Detection
	fit, err := regression.FitLogLinear(ds.Times[d.Start:d.End], ds.Replicates[0].OD[d.Start:d.End])
	require.NoError(t, err)
	assert.Equal(t, fit, r.Fit, "stored fit must match a direct refit of the winning window")
	assert.Equal(t, fit.Slope, r.GrowthRate)
}

func TestAnalyzer_Run_BadReplicateDoesNotAbortOthers(t *testing.T) {
	ds := doublingDataset()
	ds.Replicates[1].OD[2] = 0 // log-undefined mid-series

	analyzer := NewAnalyzer(expphase.DefaultConfig(), 3)
	results := analyzer.Run(context.Background(), ds)
	require.Len(t, results, 3)

	assert.NoError(t, results[0].Err)
	assert.True(t, results[0].PhaseDetected())

	require.Error(t, results[1].Err)
	assert.ErrorIs(t, results[1].Err, regression.ErrNonPositiveOD)
	assert.False(t, results[1].PhaseDetected())

	assert.NoError(t, results[2].Err)
	assert.True(t, results[2].PhaseDetected())
}

func TestAnalyzer_Run_NoPhaseSentinel(t *testing.T) {
	ds := &dataset.Dataset{
		Times: []float64{0, 1, 2, 3, 4, 5},
		Replicates: []dataset.Replicate{
			{Name: "Flat", OD: []float64{1, 1, 1, 1, 1, 1}},
		},
	}

	results := NewAnalyzer(expphase.DefaultConfig(), 1).Run(context.Background(), ds)
	require.Len(t, results, 1)

	r := results[0]
	require.NoError(t, r.Err)
	assert.False(t, r.PhaseDetected())
	assert.Equal(t, 0.0, r.GrowthRate)
	assert.True(t, math.IsNaN(r.DoublingTime), "doubling time is undefined without a phase")
}

func TestAnalyzer_Run_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := NewAnalyzer(expphase.DefaultConfig(), 1).Run(ctx, doublingDataset())
	require.Len(t, results, 3)
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}

func TestSummarize(t *testing.T) {
	results := NewAnalyzer(expphase.DefaultConfig(), 2).Run(context.Background(), doublingDataset())
	summary := Summarize(results)

	assert.Equal(t, 3, summary.Replicates)
	assert.Equal(t, 3, summary.Detected)
	assert.Equal(t, 0, summary.Failed)
	assert.InDelta(t, math.Ln2, summary.MeanGrowthRate, 0.05)
	assert.Greater(t, summary.SDGrowthRate, 0.0)
	assert.InDelta(t, 1.0, summary.MeanDoublingTime, 0.1)
	assert.Greater(t, summary.MeanRSquared, 0.8)
}

func TestSummarize_ExcludesFailuresAndSentinels(t *testing.T) {
	ds := doublingDataset()
	ds.Replicates[1].OD = []float64{1, 1, 1, 1, 1, 1} // no phase
	ds.Replicates[2].OD[0] = -0.1                     // domain error

	results := NewAnalyzer(expphase.DefaultConfig(), 1).Run(context.Background(), ds)
	summary := Summarize(results)

	assert.Equal(t, 3, summary.Replicates)
	assert.Equal(t, 1, summary.Detected)
	assert.Equal(t, 1, summary.Failed)
	assert.InDelta(t, math.Ln2, summary.MeanGrowthRate, 0.05)
	assert.Equal(t, 0.0, summary.SDGrowthRate, "single contributor has no sample SD")
	assert.False(t, math.IsNaN(summary.MeanDoublingTime))
}

func TestSummarize_Empty(t *testing.T) {
	summary := Summarize(nil)
	assert.Equal(t, Summary{}, summary)
}
