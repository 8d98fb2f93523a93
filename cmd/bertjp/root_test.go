package main

import (
	"bytes"
	"io"
	"testing"

	"github.com/example/go-bert-japanese/internal/config"
)

// runCLI executes the root command with args and returns its stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	orig, origLoaded := activeCfg, cfgLoaded
	t.Cleanup(func() { activeCfg, cfgLoaded = orig, origLoaded })

	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestNewRootCmd_HasExpectedSubcommands(t *testing.T) {
	root := NewRootCmd()

	want := []string{"encode", "decode", "tokenize", "vocab", "serve", "health", "doctor", "bench"}
	for _, name := range want {
		found := false

		for _, sub := range root.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}

		if !found {
			t.Errorf("expected subcommand %q not found in root", name)
		}
	}
}

func TestNewRootCmd_HasPersistentFlags(t *testing.T) {
	root := NewRootCmd()
	for _, name := range []string{"config", "vocab-path", "dict-path", "add-special-tokens", "log-level"} {
		if root.PersistentFlags().Lookup(name) == nil {
			t.Errorf("expected --%s persistent flag to be registered", name)
		}
	}
}

func TestSetupLogger_DoesNotPanic(_ *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		setupLogger(level)
	}
}

func TestSetupLogger_InvalidLevelFallsBackToInfo(_ *testing.T) {
	// Should not panic on invalid level.
	setupLogger("not-a-level")
}

func TestRequireConfig_FailsWhenNotInitialized(t *testing.T) {
	orig, origLoaded := activeCfg, cfgLoaded

	t.Cleanup(func() { activeCfg, cfgLoaded = orig, origLoaded })

	activeCfg = config.Config{Paths: config.PathsConfig{VocabPath: "/some/vocab.txt"}}
	cfgLoaded = false

	_, err := requireConfig()
	if err == nil {
		t.Fatal("expected error when config is not loaded")
	}
}

func TestRequireConfig_SucceedsWhenLoaded(t *testing.T) {
	orig, origLoaded := activeCfg, cfgLoaded

	t.Cleanup(func() { activeCfg, cfgLoaded = orig, origLoaded })

	activeCfg = config.Config{
		Paths: config.PathsConfig{VocabPath: "/some/vocab.txt"},
	}
	cfgLoaded = true

	got, err := requireConfig()
	if err != nil {
		t.Fatalf("requireConfig returned unexpected error: %v", err)
	}

	if got.Paths.VocabPath != "/some/vocab.txt" {
		t.Errorf("unexpected VocabPath: %q", got.Paths.VocabPath)
	}
}

func TestProbeAddr(t *testing.T) {
	tests := []struct{ in, want string }{
		{":8080", "127.0.0.1:8080"},
		{"localhost:9000", "localhost:9000"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := probeAddr(tt.in); got != tt.want {
			t.Errorf("probeAddr(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}
