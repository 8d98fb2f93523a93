package tokenizer

import (
	"errors"
	"testing"

	"github.com/example/go-bert-japanese/internal/config"
	"github.com/example/go-bert-japanese/internal/segment"
	"github.com/example/go-bert-japanese/internal/testutil"
)

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Tokenizer.AddSpecialTokens = false
	cfg.Tokenizer.DecodePolicy = "reserved"
	cfg.Tokenizer.ReservedBelow = 3
	cfg.Tokenizer.CacheSize = 0

	opts, err := OptionsFromConfig(cfg, nil)
	if err != nil {
		t.Fatalf("OptionsFromConfig error = %v", err)
	}

	got := defaultOptions()
	for _, fn := range opts {
		fn(&got)
	}
	if got.addSpecialTokens {
		t.Error("addSpecialTokens = true; want false")
	}
	if got.decodePolicy != DecodeSkipReserved {
		t.Errorf("decodePolicy = %v; want reserved", got.decodePolicy)
	}
	if got.reservedBelow != 3 {
		t.Errorf("reservedBelow = %d; want 3", got.reservedBelow)
	}
	if got.logger == nil {
		t.Error("logger should keep its default when none is given")
	}
}

func TestOptionsFromConfig_InvalidPolicy(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Tokenizer.DecodePolicy = "bogus"
	if _, err := OptionsFromConfig(cfg, nil); err == nil {
		t.Fatal("expected error for unknown decode policy")
	}
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Paths.DictPath = segment.BuiltinIPA
	cfg.Paths.VocabPath = testutil.WriteVocab(t, testutil.FixtureTokens)

	tok, err := NewFromConfig(cfg, nil)
	if err != nil {
		t.Fatalf("NewFromConfig error = %v", err)
	}
	if tok.Vocab().Size() != len(testutil.FixtureTokens) {
		t.Errorf("vocab size = %d; want %d", tok.Vocab().Size(), len(testutil.FixtureTokens))
	}
}

func TestNewFromConfig_MissingVocab(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Paths.VocabPath = t.TempDir() + "/absent.txt"

	_, err := NewFromConfig(cfg, nil)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %v; want *ConfigError", err)
	}
	if cfgErr.Resource != cfg.Paths.VocabPath {
		t.Errorf("Resource = %q; want %q", cfgErr.Resource, cfg.Paths.VocabPath)
	}
}
