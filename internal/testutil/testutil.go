// Package testutil provides shared fixtures and skip helpers for tests.
//
// Typical usage:
//
//	func TestEncode(t *testing.T) {
//	    v := testutil.FixtureVocab(t)
//	    seg := testutil.StaticSegmenter{"食べましょう": {{Surface: "食べましょう", Category: segment.CategoryKanji}}}
//	    ...
//	}
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/go-bert-japanese/internal/config"
	"github.com/example/go-bert-japanese/internal/hub"
	"github.com/example/go-bert-japanese/internal/segment"
	"github.com/example/go-bert-japanese/internal/vocab"
)

// FixtureTokens is a minimal vocabulary: the five special tokens followed by
// the pieces of 食べましょう.
var FixtureTokens = []string{"[PAD]", "[UNK]", "[CLS]", "[SEP]", "[MASK]", "食べ", "##ましょう"}

// WriteVocab writes tokens one per line to a vocab.txt inside tb.TempDir and
// returns its path.
func WriteVocab(tb testing.TB, tokens []string) string {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "vocab.txt")

	err := os.WriteFile(path, []byte(strings.Join(tokens, "\n")+"\n"), 0o644)
	if err != nil {
		tb.Fatalf("write vocab fixture: %v", err)
	}

	return path
}

// FixtureVocab builds a Vocabulary from tokens, or FixtureTokens when none are given.
func FixtureVocab(tb testing.TB, tokens ...string) *vocab.Vocabulary {
	tb.Helper()

	if len(tokens) == 0 {
		tokens = FixtureTokens
	}

	v, err := vocab.New(tokens)
	if err != nil {
		tb.Fatalf("build vocab fixture: %v", err)
	}

	return v
}

// StaticSegmenter returns canned segments per input. Inputs without an entry
// are split on ASCII spaces, each field classified with segment.Classify and
// each space reported as a boundary.
type StaticSegmenter map[string][]segment.Segment

// Segment implements segment.Segmenter.
func (s StaticSegmenter) Segment(text string) []segment.Segment {
	if segs, ok := s[text]; ok {
		return segs
	}

	var out []segment.Segment
	for i, field := range strings.Split(text, " ") {
		if i > 0 {
			out = append(out, segment.Segment{Surface: " ", Category: segment.CategoryBoundary})
		}
		if field == "" {
			continue
		}
		out = append(out, segment.Segment{Surface: field, Category: segment.Classify(field)})
	}

	return out
}

// RequireVocabFile returns the path to a real vocab.txt, skipping the test when
// none is available. BERTJP_PATHS_VOCAB_PATH takes precedence; otherwise the
// directory tree is walked upwards looking for the file `bertjp vocab download`
// writes with the default hub settings.
func RequireVocabFile(tb testing.TB) string {
	tb.Helper()

	if p := os.Getenv("BERTJP_PATHS_VOCAB_PATH"); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}

		tb.Skipf("vocabulary not found at BERTJP_PATHS_VOCAB_PATH=%q", p)

		return ""
	}

	defaults := config.DefaultConfig()
	rel, err := hub.VocabPath(defaults.Hub.OutDir, defaults.Hub.Repo)
	if err != nil {
		tb.Fatalf("default vocab path: %v", err)
	}

	dir, err := filepath.Abs(".")
	if err != nil {
		tb.Fatalf("abs path: %v", err)
	}

	for {
		candidate := filepath.Join(dir, rel)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}

		dir = parent
	}

	tb.Skipf("%s not found; run `bertjp vocab download` or set BERTJP_PATHS_VOCAB_PATH", rel)

	return ""
}
