// Package report renders per-replicate growth results and the aggregate
// summary to the console or to machine-readable formats.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/linsu-lab/growthrate/internal/analysis"
)

// Format selects the output rendering for analysis results.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
)

// ParseFormat validates a format flag value.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatTable, FormatJSON, FormatCSV:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, json, or csv)", s)
	}
}

// Report bundles the per-replicate results with their aggregate summary.
type Report struct {
	Results []analysis.ReplicateResult `json:"results"`
	Summary analysis.Summary           `json:"summary"`
}

// New builds a report from analysis results.
func New(results []analysis.ReplicateResult) *Report {
	return &Report{
		Results: results,
		Summary: analysis.Summarize(results),
	}
}

// Render writes the report to w in the requested format.
func (r *Report) Render(w io.Writer, format Format) error {
	switch format {
	case FormatTable:
		return r.renderTable(w)
	case FormatJSON:
		return r.renderJSON(w)
	case FormatCSV:
		return r.renderCSV(w)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func (r *Report) renderTable(w io.Writer) error {
	for _, res := range r.Results {
		switch {
		case res.Err != nil:
			fmt.Fprintf(w, "%s - skipped: %v\n", res.Name, res.Err)
		case !res.PhaseDetected():
			fmt.Fprintf(w, "%s - no exponential phase detected\n", res.Name)
		default:
			fmt.Fprintf(w, "%s - Growth rate: %.4f per day, Doubling time: %.2f days, R²: %.2f (window %d-%d)\n",
				res.Name, res.GrowthRate, res.DoublingTime, res.Detection.RSquared,
				res.Detection.Start, res.Detection.End-1)
		}
	}

	s := r.Summary
	fmt.Fprintf(w, "\nOverall Results (%d/%d replicates):\n", s.Detected, s.Replicates)
	fmt.Fprintf(w, "Mean Growth Rate: %.4f per day, SD: %.4f\n", s.MeanGrowthRate, s.SDGrowthRate)
	fmt.Fprintf(w, "Mean Doubling Time: %.2f days, SD: %.2f\n", s.MeanDoublingTime, s.SDDoublingTime)
	fmt.Fprintf(w, "Mean R²: %.2f, SD: %.2f\n", s.MeanRSquared, s.SDRSquared)
	return nil
}

func (r *Report) renderJSON(w io.Writer) error {
	type jsonResult struct {
		analysis.ReplicateResult
		DoublingTime *float64 `json:"doubling_time"` // null instead of NaN
		Error        string   `json:"error,omitempty"`
	}

	out := struct {
		Results []jsonResult     `json:"results"`
		Summary analysis.Summary `json:"summary"`
	}{
		Results: make([]jsonResult, 0, len(r.Results)),
		Summary: r.Summary,
	}

	for _, res := range r.Results {
		jr := jsonResult{ReplicateResult: res}
		if !math.IsNaN(res.DoublingTime) {
			dt := res.DoublingTime
			jr.DoublingTime = &dt
		}
		if res.Err != nil {
			jr.Error = res.Err.Error()
		}
		out.Results = append(out.Results, jr)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func (r *Report) renderCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := []string{"Replicate", "GrowthRate", "DoublingTime", "RSquared", "WindowStart", "WindowEnd", "Status"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, res := range r.Results {
		status := "ok"
		switch {
		case res.Err != nil:
			status = "error"
		case !res.PhaseDetected():
			status = "no_phase"
		}

		doubling := ""
		if !math.IsNaN(res.DoublingTime) {
			doubling = fmt.Sprintf("%.4f", res.DoublingTime)
		}

		record := []string{
			res.Name,
			fmt.Sprintf("%.6f", res.GrowthRate),
			doubling,
			fmt.Sprintf("%.4f", res.Detection.RSquared),
			strconv.Itoa(res.Detection.Start),
			strconv.Itoa(res.Detection.End),
			status,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
