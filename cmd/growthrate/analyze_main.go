package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/linsu-lab/growthrate/internal/analysis"
	"github.com/linsu-lab/growthrate/internal/config"
	"github.com/linsu-lab/growthrate/internal/dataset"
	"github.com/linsu-lab/growthrate/internal/plot"
	"github.com/linsu-lab/growthrate/internal/report"
	"github.com/linsu-lab/growthrate/internal/store"
)

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a growth-curve CSV file",
		Long: `Reads a CSV file with a time column followed by one OD column per
replicate, detects each replicate's exponential phase, and reports growth
rate, doubling time, and R² per replicate plus mean/SD across replicates.`,
		RunE: runAnalyze,
	}

	cmd.Flags().StringP("input", "i", "", "Input CSV file (required)")
	cmd.Flags().StringP("format", "f", "", "Output format (table|json|csv); default table, json when stdout is not a terminal")
	cmd.Flags().Int("min-window", 0, "Minimum detection window size in points")
	cmd.Flags().Int("max-window", 0, "Maximum detection window size in points")
	cmd.Flags().Float64("r2-threshold", 0, "Minimum R² for a window to qualify")
	cmd.Flags().Int("concurrency", 0, "Replicates analyzed in parallel")
	cmd.Flags().Bool("plot", false, "Write growth-curve figures")
	cmd.Flags().String("plot-dir", "", "Directory for figures; implies --plot (default from config)")
	cmd.Flags().String("store-dsn", "", "Postgres DSN to persist the run (optional)")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	applyAnalyzeFlags(cmd, &cfg)

	format := report.Format(cfg.Output.Format)
	if f, _ := cmd.Flags().GetString("format"); f != "" {
		if format, err = report.ParseFormat(f); err != nil {
			return err
		}
	} else if !term.IsTerminal(int(os.Stdout.Fd())) && format == report.FormatTable {
		format = report.FormatJSON
	}

	input, _ := cmd.Flags().GetString("input")
	ds, err := dataset.Load(input)
	if err != nil {
		return err
	}
	log.Info().Str("file", input).
		Int("points", len(ds.Times)).
		Int("replicates", len(ds.Replicates)).
		Msg("Loaded growth data")

	analyzer := analysis.NewAnalyzer(cfg.Detector, cfg.Output.Concurrency)
	results := analyzer.Run(cmd.Context(), ds)
	rep := report.New(results)

	if err := rep.Render(os.Stdout, format); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	if cfg.Plot.Enabled {
		renderer, err := plot.NewRenderer(cfg.Plot.Dir, ds.TimeLabel)
		if err != nil {
			return err
		}
		written, err := renderer.RenderAll(ds, results)
		if err != nil {
			return fmt.Errorf("failed to render plots: %w", err)
		}
		log.Info().Int("figures", len(written)).Str("dir", cfg.Plot.Dir).Msg("Wrote growth-curve figures")
	}

	if cfg.Store.DSN != "" {
		st, err := store.Open(cfg.Store.DSN, cfg.Store.Timeout())
		if err != nil {
			return err
		}
		defer st.Close()

		runID, err := st.SaveRun(cmd.Context(), input, results)
		if err != nil {
			return err
		}
		log.Info().Str("run_id", runID.String()).Msg("Persisted analysis run")
	}

	return nil
}

// applyAnalyzeFlags overlays non-zero flag values on the loaded config.
func applyAnalyzeFlags(cmd *cobra.Command, cfg *config.Config) {
	if v, _ := cmd.Flags().GetInt("min-window"); v > 0 {
		cfg.Detector.MinWindowSize = v
	}
	if v, _ := cmd.Flags().GetInt("max-window"); v > 0 {
		cfg.Detector.MaxWindowSize = v
	}
	if v, _ := cmd.Flags().GetFloat64("r2-threshold"); v > 0 {
		cfg.Detector.RSquaredThreshold = v
	}
	if v, _ := cmd.Flags().GetInt("concurrency"); v > 0 {
		cfg.Output.Concurrency = v
	}
	if v, _ := cmd.Flags().GetBool("plot"); v {
		cfg.Plot.Enabled = true
	}
	if v, _ := cmd.Flags().GetString("plot-dir"); v != "" {
		// Naming a directory is asking for figures.
		cfg.Plot.Dir = v
		cfg.Plot.Enabled = true
	}
	if v, _ := cmd.Flags().GetString("store-dsn"); v != "" {
		cfg.Store.DSN = v
	}
}
