package bench

import (
	"context"
	"fmt"
	"io"
	"runtime/pprof"
	"time"

	"github.com/example/go-bert-japanese/internal/segment"
	"github.com/example/go-bert-japanese/internal/text"
)

// Pipeline exposes the individual encode stages of a tokenizer.
type Pipeline interface {
	Segmenter() segment.Segmenter
	SplitWord(word string) []string
	ConvertTokensToIDs(tokens []string) []int
}

// StageTimings breaks one encode into its stages.
type StageTimings struct {
	Normalize time.Duration
	Segment   time.Duration
	Split     time.Duration
	Lookup    time.Duration
	Total     time.Duration
	Words     int
	Tokens    int
}

// Add accumulates o into t.
func (t *StageTimings) Add(o StageTimings) {
	t.Normalize += o.Normalize
	t.Segment += o.Segment
	t.Split += o.Split
	t.Lookup += o.Lookup
	t.Total += o.Total
	t.Words = o.Words
	t.Tokens = o.Tokens
}

// ProfileStages runs the encode pipeline on input once, timing each stage.
// Stages carry pprof labels so a CPU profile can be split by stage.
func ProfileStages(ctx context.Context, p Pipeline, input string) StageTimings {
	var (
		out        StageTimings
		normalized string
		words      []string
		tokens     []string
	)
	startTotal := time.Now()

	pprof.Do(ctx, pprof.Labels("stage", "normalize"), func(context.Context) {
		start := time.Now()
		normalized = text.Normalize(input)
		out.Normalize = time.Since(start)
	})

	pprof.Do(ctx, pprof.Labels("stage", "segment"), func(context.Context) {
		start := time.Now()
		words = segment.Words(p.Segmenter(), normalized)
		out.Segment = time.Since(start)
	})

	pprof.Do(ctx, pprof.Labels("stage", "split"), func(context.Context) {
		start := time.Now()
		for _, w := range words {
			tokens = append(tokens, p.SplitWord(w)...)
		}
		out.Split = time.Since(start)
	})

	pprof.Do(ctx, pprof.Labels("stage", "lookup"), func(context.Context) {
		start := time.Now()
		_ = p.ConvertTokensToIDs(tokens)
		out.Lookup = time.Since(start)
	})

	out.Total = time.Since(startTotal)
	out.Words = len(words)
	out.Tokens = len(tokens)
	return out
}

// FormatStages writes averaged stage timings over runs and each stage's share
// of the total.
func FormatStages(agg StageTimings, runs int, w io.Writer) {
	if runs < 1 {
		runs = 1
	}
	avg := func(d time.Duration) float64 { return micros(d) / float64(runs) }
	total := avg(agg.Total)

	fmt.Fprintf(w, "runs: %d\n", runs)
	fmt.Fprintf(w, "words: %d\n", agg.Words)
	fmt.Fprintf(w, "tokens: %d\n", agg.Tokens)
	for _, s := range []struct {
		name string
		d    time.Duration
	}{
		{"normalize", agg.Normalize},
		{"segment", agg.Segment},
		{"split", agg.Split},
		{"lookup", agg.Lookup},
	} {
		share := 0.0
		if total > 0 {
			share = 100 * avg(s.d) / total
		}
		fmt.Fprintf(w, "avg_%s_us: %.2f (%.1f%%)\n", s.name, avg(s.d), share)
	}
	fmt.Fprintf(w, "avg_total_us: %.2f\n", total)
}
