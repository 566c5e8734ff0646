package main

import (
	"github.com/spf13/cobra"

	"github.com/linsu-lab/growthrate/internal/analysis"
	"github.com/linsu-lab/growthrate/internal/config"
	"github.com/linsu-lab/growthrate/internal/httpapi"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the growth analysis HTTP service",
		Long: `Starts an HTTP server that accepts growth-curve CSV uploads on
POST /v1/analyze and returns per-replicate results as JSON. Health and
Prometheus metrics are served on /healthz and /metrics.`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", "", "Listen address (default from config)")
	cmd.Flags().Float64("rate-limit", 0, "Requests per second allowed on the API")
	cmd.Flags().Int("concurrency", 0, "Replicates analyzed in parallel per request")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	if rps, _ := cmd.Flags().GetFloat64("rate-limit"); rps > 0 {
		cfg.Server.RateLimitRPS = rps
	}
	if c, _ := cmd.Flags().GetInt("concurrency"); c > 0 {
		cfg.Output.Concurrency = c
	}

	analyzer := analysis.NewAnalyzer(cfg.Detector, cfg.Output.Concurrency)
	server := httpapi.NewServer(cfg.Server, analyzer)
	return server.ListenAndServe()
}
