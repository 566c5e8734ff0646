// Package plot renders growth curves as PNG figures: one overview of all
// replicates on a log scale, and one figure per replicate overlaying the
// fitted exponential-phase line on the measured ln(OD) points.
package plot

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/linsu-lab/growthrate/internal/analysis"
	"github.com/linsu-lab/growthrate/internal/dataset"
)

// Renderer writes growth-curve figures into a target directory.
type Renderer struct {
	dir       string
	timeLabel string
}

// NewRenderer creates a renderer writing into dir, creating it if needed.
func NewRenderer(dir, timeLabel string) (*Renderer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create plot directory: %w", err)
	}
	if timeLabel == "" {
		timeLabel = "Time"
	}
	return &Renderer{dir: dir, timeLabel: timeLabel}, nil
}

// RenderAll writes the overview figure plus one fit figure per analyzed
// replicate, and returns the paths written. Replicates that errored are
// skipped; replicates without a detected phase still get a data-only
// figure.
func (r *Renderer) RenderAll(ds *dataset.Dataset, results []analysis.ReplicateResult) ([]string, error) {
	var written []string

	path, err := r.renderOverview(ds)
	if err != nil {
		return written, err
	}
	written = append(written, path)

	for _, res := range results {
		if res.Err != nil {
			continue
		}
		rep, ok := findReplicate(ds, res.Name)
		if !ok {
			return written, fmt.Errorf("result %q has no matching dataset column", res.Name)
		}
		path, err := r.renderFit(ds.Times, rep, res)
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}

	return written, nil
}

// renderOverview plots ln(OD) of every replicate on one figure.
func (r *Renderer) renderOverview(ds *dataset.Dataset) (string, error) {
	p := plot.New()
	p.Title.Text = "Bacterial Growth Data (Logarithmic Scale)"
	p.X.Label.Text = r.timeLabel
	p.Y.Label.Text = "ln(OD)"

	args := make([]interface{}, 0, 2*len(ds.Replicates))
	for _, rep := range ds.Replicates {
		pts, err := logPoints(ds.Times, rep.OD, 0, len(ds.Times))
		if err != nil {
			// Non-positive OD cannot go on a log axis; leave the
			// replicate off the overview rather than fail the batch.
			log.Warn().Str("replicate", rep.Name).Err(err).Msg("Replicate left off overview plot")
			continue
		}
		args = append(args, rep.Name, pts)
	}

	if err := plotutil.AddLinePoints(p, args...); err != nil {
		return "", fmt.Errorf("failed to build overview plot: %w", err)
	}

	path := filepath.Join(r.dir, "growth_overview.png")
	if err := p.Save(10*vg.Inch, 6*vg.Inch, path); err != nil {
		return "", fmt.Errorf("failed to save overview plot: %w", err)
	}
	return path, nil
}

// renderFit plots one replicate's ln(OD) points and, when a phase was
// detected, the fitted line over the winning window annotated with the
// growth rate.
func (r *Renderer) renderFit(times []float64, rep dataset.Replicate, res analysis.ReplicateResult) (string, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Exponential Growth Fit for %s", rep.Name)
	p.X.Label.Text = r.timeLabel
	p.Y.Label.Text = "ln(OD)"

	pts, err := logPoints(times, rep.OD, 0, len(times))
	if err != nil {
		return "", fmt.Errorf("replicate %s: %w", rep.Name, err)
	}

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return "", fmt.Errorf("failed to build scatter: %w", err)
	}
	p.Add(scatter)
	p.Legend.Add(fmt.Sprintf("ln(OD) - %s", rep.Name), scatter)

	if res.PhaseDetected() {
		d := res.Detection
		fitPts := make(plotter.XYs, d.End-d.Start)
		for i := range fitPts {
			t := times[d.Start+i]
			fitPts[i].X = t
			fitPts[i].Y = res.Fit.Intercept + res.Fit.Slope*t
		}

		line, err := plotter.NewLine(fitPts)
		if err != nil {
			return "", fmt.Errorf("failed to build fit line: %w", err)
		}
		line.LineStyle.Color = color.RGBA{R: 220, A: 255}
		line.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("Exponential Fit (R² = %.2f)", d.RSquared), line)
		p.Title.Text += fmt.Sprintf(" (growth rate %.4f)", res.GrowthRate)
	}

	path := filepath.Join(r.dir, fmt.Sprintf("fit_%s.png", sanitize(rep.Name)))
	if err := p.Save(10*vg.Inch, 6*vg.Inch, path); err != nil {
		return "", fmt.Errorf("failed to save fit plot: %w", err)
	}
	return path, nil
}

func logPoints(times, od []float64, start, end int) (plotter.XYs, error) {
	pts := make(plotter.XYs, 0, end-start)
	for i := start; i < end; i++ {
		if od[i] <= 0 {
			return nil, fmt.Errorf("cannot plot ln of non-positive OD %g at index %d", od[i], i)
		}
		pts = append(pts, plotter.XY{X: times[i], Y: math.Log(od[i])})
	}
	return pts, nil
}

// sanitize makes a replicate name safe for use in a file name.
func sanitize(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

func findReplicate(ds *dataset.Dataset, name string) (dataset.Replicate, bool) {
	for _, rep := range ds.Replicates {
		if rep.Name == name {
			return rep, true
		}
	}
	return dataset.Replicate{}, false
}
