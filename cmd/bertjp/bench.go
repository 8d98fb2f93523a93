package main

import (
	"fmt"
	"os"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/example/go-bert-japanese/internal/bench"
	"github.com/spf13/cobra"
)

func newBenchCmd() *cobra.Command {
	var (
		input      string
		runs       int
		format     string
		maxLatency time.Duration
		stages     bool
		cpuprofile string
		cold       bool
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark encode latency and throughput",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			if strings.TrimSpace(input) == "" {
				return fmt.Errorf("--text is required for bench")
			}
			if runs < 1 {
				return fmt.Errorf("--runs must be at least 1")
			}
			if format != "table" && format != "json" {
				return fmt.Errorf("--format must be 'table' or 'json'")
			}

			tok, err := loadTokenizer(cfg)
			if err != nil {
				return err
			}

			if cpuprofile != "" {
				f, err := os.Create(cpuprofile)
				if err != nil {
					return fmt.Errorf("create cpuprofile: %w", err)
				}
				defer f.Close()

				if err := pprof.StartCPUProfile(f); err != nil {
					return fmt.Errorf("start cpuprofile: %w", err)
				}
				defer pprof.StopCPUProfile()
			}

			out := cmd.OutOrStdout()

			if stages {
				var agg bench.StageTimings
				for range runs {
					agg.Add(bench.ProfileStages(cmd.Context(), tok, input))
				}
				bench.FormatStages(agg, runs, out)
				return nil
			}

			run := bench.Run
			if cold {
				run = bench.RunCold
			}
			results := run(tok, input, runs)
			stats := bench.ComputeStats(bench.Durations(results, false))

			switch format {
			case "json":
				bench.FormatJSON(results, stats, out)
			default:
				bench.FormatTable(results, stats, out)
				fmt.Fprintf(out, "cached words: %d\n", tok.CachedWords())
			}

			// With --cold every run is cold, so the threshold applies to all of them.
			warm := bench.ComputeStats(bench.Durations(results, !cold))
			return bench.CheckLatencyThreshold(warm.Mean, maxLatency)
		},
	}

	cmd.Flags().StringVar(&input, "text", "", "Text to encode for each run (required)")
	cmd.Flags().IntVar(&runs, "runs", 100, "Number of encode runs")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table|json")
	cmd.Flags().DurationVar(&maxLatency, "max-latency", 0, "Exit non-zero if mean warm latency exceeds this value (0 = disabled)")
	cmd.Flags().BoolVar(&stages, "stages", false, "Report per-stage timings instead of per-run results")
	cmd.Flags().StringVar(&cpuprofile, "cpuprofile", "", "Write a CPU profile labelled by stage")
	cmd.Flags().BoolVar(&cold, "cold", false, "Empty the word cache before every run")

	return cmd
}
