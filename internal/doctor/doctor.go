// Package doctor provides environment preflight checks for bertjp.
package doctor

import (
	"fmt"
	"io"
	"strings"

	"github.com/example/go-bert-japanese/internal/segment"
	"github.com/example/go-bert-japanese/internal/text"
	"github.com/example/go-bert-japanese/internal/vocab"
)

// PassMark and FailMark are the prefix symbols printed for each check result.
// WarnMark prefixes findings that do not fail the run.
const (
	PassMark = "✓"
	FailMark = "✗"
	WarnMark = "!"
)

// Config holds the resources to check and injectable loaders.
type Config struct {
	// DictPath names the segmenter dictionary ("ipa" or a kagome dictionary zip).
	DictPath string
	// LoadDict verifies that DictPath can be loaded. Defaults to segment.LoadDict.
	LoadDict func(resource string) error
	// VocabPath is the vocab.txt to load.
	VocabPath string
	// ReservedBelow, when positive, checks that the reserved decode policy
	// skips exactly the special tokens.
	ReservedBelow int
}

// Result collects the outcome of all checks.
type Result struct {
	failures []string
}

// Failed returns true if any check failed.
func (r *Result) Failed() bool { return len(r.failures) > 0 }

// Failures returns the list of failure messages.
func (r *Result) Failures() []string { return append([]string(nil), r.failures...) }

// AddFailure appends an external failure message to the result.
func (r *Result) AddFailure(msg string) { r.failures = append(r.failures, msg) }

func (r *Result) fail(msg string) { r.failures = append(r.failures, msg) }

// Run executes all configured checks and writes human-readable output to w.
// Each check line is prefixed with PassMark or FailMark.
func Run(cfg Config, w io.Writer) Result {
	var res Result

	// ---- segmenter dictionary ---------------------------------------------
	loadDict := cfg.LoadDict
	if loadDict == nil {
		loadDict = func(resource string) error {
			_, err := segment.LoadDict(resource)
			return err
		}
	}
	dictName := cfg.DictPath
	if dictName == "" || dictName == segment.BuiltinIPA {
		dictName = "ipa (embedded)"
	}
	if err := loadDict(cfg.DictPath); err != nil {
		res.fail(fmt.Sprintf("dictionary %q: %v", cfg.DictPath, err))
		fmt.Fprintf(w, "%s dictionary: %s (%v)\n", FailMark, dictName, err)
	} else {
		fmt.Fprintf(w, "%s dictionary: %s\n", PassMark, dictName)
	}

	// ---- vocabulary -------------------------------------------------------
	v, err := vocab.LoadFile(cfg.VocabPath)
	if err != nil {
		res.fail(fmt.Sprintf("vocab file %q: %v", cfg.VocabPath, err))
		fmt.Fprintf(w, "%s vocab file %s: %v\n", FailMark, cfg.VocabPath, err)
		return res
	}
	fmt.Fprintf(w, "%s vocab file: %s (%d tokens)\n", PassMark, cfg.VocabPath, v.Size())
	fmt.Fprintf(w, "%s special tokens: %s\n", PassMark, describeSpecials(v))

	// ---- NFKC coverage ----------------------------------------------------
	// Input is normalized before lookup, so these entries are unreachable.
	if n, example := countUnnormalized(v); n > 0 {
		fmt.Fprintf(w, "%s normalization: %d tokens not in NFKC form, e.g. %q\n", WarnMark, n, example)
	} else {
		fmt.Fprintf(w, "%s normalization: all tokens in NFKC form\n", PassMark)
	}

	// ---- reserved decode policy -------------------------------------------
	if cfg.ReservedBelow > 0 {
		if msg := checkReserved(v, cfg.ReservedBelow); msg != "" {
			res.fail("reserved ids: " + msg)
			fmt.Fprintf(w, "%s reserved ids below %d: %s\n", FailMark, cfg.ReservedBelow, msg)
		} else {
			fmt.Fprintf(w, "%s reserved ids below %d: special tokens only\n", PassMark, cfg.ReservedBelow)
		}
	}

	return res
}

func describeSpecials(v *vocab.Vocabulary) string {
	parts := make([]string, 0, len(vocab.Specials))
	for _, s := range vocab.Specials {
		parts = append(parts, fmt.Sprintf("%s=%d", s.Token(), v.SpecialID(s)))
	}
	return strings.Join(parts, " ")
}

// countUnnormalized counts non-special entries whose text, without the "##"
// prefix, changes under NFKC. It returns the first such entry as an example.
func countUnnormalized(v *vocab.Vocabulary) (int, string) {
	var (
		n       int
		example string
	)
	for id := range v.Size() {
		if v.IsSpecial(id) {
			continue
		}
		tok, _ := v.Token(id)
		if text.IsNormalized(strings.TrimPrefix(tok, "##")) {
			continue
		}
		if n == 0 {
			example = tok
		}
		n++
	}
	return n, example
}

// checkReserved returns a description of every id where the reserved and
// special decode policies disagree, or "" when they agree.
func checkReserved(v *vocab.Vocabulary, below int) string {
	var problems []string
	for _, s := range vocab.Specials {
		if id := v.SpecialID(s); id >= below {
			problems = append(problems, fmt.Sprintf("%s=%d is not reserved", s.Token(), id))
		}
	}
	for id := 0; id < below && id < v.Size(); id++ {
		if !v.IsSpecial(id) {
			tok, _ := v.Token(id)
			problems = append(problems, fmt.Sprintf("%q=%d would be dropped", tok, id))
		}
	}
	return strings.Join(problems, "; ")
}
