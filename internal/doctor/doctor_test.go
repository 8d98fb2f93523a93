package doctor_test

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/go-bert-japanese/internal/doctor"
	"github.com/example/go-bert-japanese/internal/testutil"
)

var errDictMissing = errors.New("dictionary not found")

func okDict(string) error { return nil }

func hasFailureContaining(failures []string, sub string) bool {
	for _, f := range failures {
		if strings.Contains(f, sub) {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// all-pass scenario
// ---------------------------------------------------------------------------

func TestRun_AllChecksPass(t *testing.T) {
	cfg := doctor.Config{
		DictPath:      "ipa",
		LoadDict:      okDict,
		VocabPath:     testutil.WriteVocab(t, testutil.FixtureTokens),
		ReservedBelow: 5,
	}

	var out strings.Builder
	result := doctor.Run(cfg, &out)

	if result.Failed() {
		t.Errorf("expected all checks to pass; failures: %v", result.Failures())
	}
	for _, want := range []string{"ipa (embedded)", "7 tokens", "[CLS]=2", "special tokens only"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestRun_ReportsUnnormalizedTokens(t *testing.T) {
	tokens := append(append([]string(nil), testutil.FixtureTokens...), "ｱ", "##ｲ", "ア")
	cfg := doctor.Config{
		DictPath:  "ipa",
		LoadDict:  okDict,
		VocabPath: testutil.WriteVocab(t, tokens),
	}

	var out strings.Builder
	result := doctor.Run(cfg, &out)

	if result.Failed() {
		t.Errorf("unnormalized tokens should not fail the run; failures: %v", result.Failures())
	}
	if want := `2 tokens not in NFKC form, e.g. "ｱ"`; !strings.Contains(out.String(), want) {
		t.Errorf("output missing %q:\n%s", want, out.String())
	}
}

func TestRun_AllTokensNormalized(t *testing.T) {
	cfg := doctor.Config{
		DictPath:  "ipa",
		LoadDict:  okDict,
		VocabPath: testutil.WriteVocab(t, testutil.FixtureTokens),
	}

	var out strings.Builder
	doctor.Run(cfg, &out)

	if !strings.Contains(out.String(), "all tokens in NFKC form") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRun_EmbeddedDictionary(t *testing.T) {
	cfg := doctor.Config{
		DictPath:  "ipa",
		VocabPath: testutil.WriteVocab(t, testutil.FixtureTokens),
	}

	var out strings.Builder
	if result := doctor.Run(cfg, &out); result.Failed() {
		t.Errorf("failures: %v", result.Failures())
	}
}

// ---------------------------------------------------------------------------
// dictionary
// ---------------------------------------------------------------------------

func TestRun_DictionaryMissingFails(t *testing.T) {
	cfg := doctor.Config{
		DictPath:  "/nope/dict.zip",
		LoadDict:  func(string) error { return errDictMissing },
		VocabPath: testutil.WriteVocab(t, testutil.FixtureTokens),
	}

	var out strings.Builder
	result := doctor.Run(cfg, &out)

	if !hasFailureContaining(result.Failures(), "dictionary") {
		t.Errorf("expected dictionary failure, got: %v", result.Failures())
	}
	if !strings.Contains(out.String(), doctor.FailMark) {
		t.Error("output should contain the fail mark")
	}
}

// ---------------------------------------------------------------------------
// vocabulary
// ---------------------------------------------------------------------------

func TestRun_VocabMissingFails(t *testing.T) {
	cfg := doctor.Config{
		LoadDict:  okDict,
		VocabPath: filepath.Join(t.TempDir(), "vocab.txt"),
	}

	var out strings.Builder
	result := doctor.Run(cfg, &out)

	if !hasFailureContaining(result.Failures(), "vocab file") {
		t.Errorf("expected vocab failure, got: %v", result.Failures())
	}
}

func TestRun_VocabWithoutSpecialFails(t *testing.T) {
	cfg := doctor.Config{
		LoadDict:  okDict,
		VocabPath: testutil.WriteVocab(t, []string{"[PAD]", "[UNK]", "[CLS]", "[SEP]", "食べ"}),
	}

	var out strings.Builder
	result := doctor.Run(cfg, &out)

	if !hasFailureContaining(result.Failures(), "[MASK]") {
		t.Errorf("expected failure naming [MASK], got: %v", result.Failures())
	}
}

// ---------------------------------------------------------------------------
// reserved ids
// ---------------------------------------------------------------------------

func TestRun_ReservedPolicyMismatch(t *testing.T) {
	tokens := []string{"[PAD]", "食べ", "[UNK]", "[CLS]", "[SEP]", "[MASK]"}
	cfg := doctor.Config{
		LoadDict:      okDict,
		VocabPath:     testutil.WriteVocab(t, tokens),
		ReservedBelow: 5,
	}

	var out strings.Builder
	result := doctor.Run(cfg, &out)

	failures := result.Failures()
	if !hasFailureContaining(failures, `"食べ"=1 would be dropped`) {
		t.Errorf("expected dropped-token failure, got: %v", failures)
	}
	if !hasFailureContaining(failures, "[MASK]=5 is not reserved") {
		t.Errorf("expected unreserved-special failure, got: %v", failures)
	}
}

func TestResult_AddFailure(t *testing.T) {
	var r doctor.Result
	if r.Failed() {
		t.Fatal("zero Result should not be failed")
	}
	r.AddFailure("server probe: refused")
	if !r.Failed() || r.Failures()[0] != "server probe: refused" {
		t.Errorf("Failures = %v", r.Failures())
	}
}
