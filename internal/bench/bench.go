// Package bench provides benchmarking primitives for the bertjp bench command.
package bench

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"gonum.org/v1/gonum/stat"

	"github.com/example/go-bert-japanese/internal/tokenizer"
)

// Encoder is the operation being measured.
type Encoder interface {
	Encode(sentence string) tokenizer.Encoding
}

// ---------------------------------------------------------------------------
// Run result and stats
// ---------------------------------------------------------------------------

// RunResult holds the timing and output size of a single encode run.
type RunResult struct {
	Index    int
	Cold     bool // true for the first run (cold caches)
	Duration time.Duration
	Chars    int
	Tokens   int
}

// Stats holds aggregate timing statistics across all runs.
type Stats struct {
	Min    time.Duration
	Max    time.Duration
	Mean   time.Duration
	P50    time.Duration
	P95    time.Duration
	StdDev time.Duration // zero for fewer than two runs
}

// CacheResetter is implemented by encoders that memoize work between calls.
type CacheResetter interface {
	ResetCache()
}

// Run encodes input n times and records each run. Only the first run is cold.
func Run(enc Encoder, input string, n int) []RunResult {
	return run(enc, input, n, false)
}

// RunCold is Run with the encoder's cache emptied before every run, so every
// run is cold. The reset is not timed.
func RunCold(enc Encoder, input string, n int) []RunResult {
	return run(enc, input, n, true)
}

func run(enc Encoder, input string, n int, cold bool) []RunResult {
	resetter, _ := enc.(CacheResetter)
	chars := utf8.RuneCountInString(input)
	runs := make([]RunResult, 0, n)
	for i := range n {
		if cold && resetter != nil {
			resetter.ResetCache()
		}
		start := time.Now()
		out := enc.Encode(input)
		runs = append(runs, RunResult{
			Index:    i,
			Cold:     cold || i == 0,
			Duration: time.Since(start),
			Chars:    chars,
			Tokens:   len(out.IDs),
		})
	}
	return runs
}

// Durations extracts the run durations, optionally leaving out the cold run.
func Durations(runs []RunResult, skipCold bool) []time.Duration {
	out := make([]time.Duration, 0, len(runs))
	for _, r := range runs {
		if skipCold && r.Cold && len(runs) > 1 {
			continue
		}
		out = append(out, r.Duration)
	}
	return out
}

// ComputeStats calculates min, max, mean, empirical percentiles and the
// sample standard deviation over a slice of durations.
// An empty slice yields zero Stats.
func ComputeStats(durations []time.Duration) Stats {
	if len(durations) == 0 {
		return Stats{}
	}

	xs := make([]float64, len(durations))
	for i, d := range durations {
		xs[i] = float64(d)
	}
	slices.Sort(xs)

	st := Stats{
		Min:  time.Duration(xs[0]),
		Max:  time.Duration(xs[len(xs)-1]),
		Mean: time.Duration(stat.Mean(xs, nil)),
		P50:  time.Duration(stat.Quantile(0.50, stat.Empirical, xs, nil)),
		P95:  time.Duration(stat.Quantile(0.95, stat.Empirical, xs, nil)),
	}
	if len(xs) > 1 {
		st.StdDev = time.Duration(stat.StdDev(xs, nil))
	}
	return st
}

// ---------------------------------------------------------------------------
// Throughput helpers
// ---------------------------------------------------------------------------

// PerSecond returns n / d in units per second.
// Returns 0 if d is zero to avoid division by zero.
func PerSecond(n int, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(n) / d.Seconds()
}

// ---------------------------------------------------------------------------
// Latency threshold gate
// ---------------------------------------------------------------------------

// CheckLatencyThreshold returns an error if mean > threshold.
// A threshold of 0 disables the gate.
func CheckLatencyThreshold(mean, threshold time.Duration) error {
	if threshold <= 0 {
		return nil
	}
	if mean > threshold {
		return fmt.Errorf("mean latency %v exceeds threshold %v", mean, threshold)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Output formatters
// ---------------------------------------------------------------------------

func micros(d time.Duration) float64 { return float64(d.Nanoseconds()) / 1e3 }

// FormatTable writes a human-readable ASCII table of bench results to w.
func FormatTable(runs []RunResult, stats Stats, w io.Writer) {
	sb := &strings.Builder{}

	fmt.Fprintf(sb, "%-5s  %-5s  %12s  %8s  %8s  %12s\n", "Run", "Cold", "µs", "Chars", "Tokens", "Chars/s")
	fmt.Fprintln(sb, strings.Repeat("-", 60))

	for _, r := range runs {
		cold := ""
		if r.Cold {
			cold = "yes"
		}
		fmt.Fprintf(sb, "%-5d  %-5s  %12.1f  %8d  %8d  %12.0f\n",
			r.Index+1,
			cold,
			micros(r.Duration),
			r.Chars,
			r.Tokens,
			PerSecond(r.Chars, r.Duration),
		)
	}

	fmt.Fprintln(sb, strings.Repeat("-", 60))
	fmt.Fprintf(sb, "%-5s  %-5s  %12.1f  (min)\n", "", "", micros(stats.Min))
	fmt.Fprintf(sb, "%-5s  %-5s  %12.1f  (mean)\n", "", "", micros(stats.Mean))
	fmt.Fprintf(sb, "%-5s  %-5s  %12.1f  (p50)\n", "", "", micros(stats.P50))
	fmt.Fprintf(sb, "%-5s  %-5s  %12.1f  (p95)\n", "", "", micros(stats.P95))
	fmt.Fprintf(sb, "%-5s  %-5s  %12.1f  (stddev)\n", "", "", micros(stats.StdDev))
	fmt.Fprintf(sb, "%-5s  %-5s  %12.1f  (max)\n", "", "", micros(stats.Max))

	fmt.Fprint(w, sb.String())
}

// jsonReport is the top-level JSON structure emitted by FormatJSON.
type jsonReport struct {
	Runs  []jsonRun `json:"runs"`
	Stats jsonStats `json:"stats"`
}

type jsonRun struct {
	Index          int     `json:"index"`
	Cold           bool    `json:"cold"`
	DurationUS     float64 `json:"duration_us"`
	Chars          int     `json:"chars"`
	Tokens         int     `json:"tokens"`
	CharsPerSecond float64 `json:"chars_per_second"`
}

type jsonStats struct {
	MinUS    float64 `json:"min_us"`
	MeanUS   float64 `json:"mean_us"`
	MaxUS    float64 `json:"max_us"`
	P50US    float64 `json:"p50_us"`
	P95US    float64 `json:"p95_us"`
	StdDevUS float64 `json:"stddev_us"`
}

// FormatJSON writes a JSON report of bench results to w.
func FormatJSON(runs []RunResult, stats Stats, w io.Writer) {
	jr := jsonReport{
		Runs: make([]jsonRun, len(runs)),
		Stats: jsonStats{
			MinUS:    micros(stats.Min),
			MeanUS:   micros(stats.Mean),
			MaxUS:    micros(stats.Max),
			P50US:    micros(stats.P50),
			P95US:    micros(stats.P95),
			StdDevUS: micros(stats.StdDev),
		},
	}
	for i, r := range runs {
		jr.Runs[i] = jsonRun{
			Index:          r.Index,
			Cold:           r.Cold,
			DurationUS:     micros(r.Duration),
			Chars:          r.Chars,
			Tokens:         r.Tokens,
			CharsPerSecond: PerSecond(r.Chars, r.Duration),
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(jr)
}
