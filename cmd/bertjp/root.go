package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/example/go-bert-japanese/internal/config"
	"github.com/example/go-bert-japanese/internal/hub"
	"github.com/example/go-bert-japanese/internal/server"
	"github.com/example/go-bert-japanese/internal/tokenizer"
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	activeCfg config.Config
	cfgLoaded bool
)

func NewRootCmd() *cobra.Command {
	defaults := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:           "bertjp",
		Short:         "Japanese BERT tokenizer command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load(config.LoadOptions{
				Cmd:        cmd,
				ConfigFile: cfgFile,
				Defaults:   defaults,
			})
			if err != nil {
				return err
			}
			activeCfg = loaded
			cfgLoaded = true
			setupLogger(loaded.LogLevel)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Optional config file (yaml|toml|json)")
	config.RegisterFlags(cmd.PersistentFlags(), defaults)

	cmd.AddCommand(newEncodeCmd())
	cmd.AddCommand(newDecodeCmd())
	cmd.AddCommand(newTokenizeCmd())
	cmd.AddCommand(newVocabCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newHealthCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newBenchCmd())

	return cmd
}

// setupLogger configures the process-wide slog default logger.
func setupLogger(levelStr string) {
	lvl, err := server.ParseLogLevel(levelStr)
	if err != nil {
		lvl = slog.LevelInfo
	}
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(h))
}

func requireConfig() (config.Config, error) {
	if !cfgLoaded {
		return config.Config{}, fmt.Errorf("configuration not loaded")
	}
	return activeCfg, nil
}

// loadTokenizer builds the tokenizer described by cfg.
func loadTokenizer(cfg config.Config) (*tokenizer.Tokenizer, error) {
	tok, err := tokenizer.NewFromConfig(cfg, slog.Default())
	if err != nil {
		return nil, mapLoadError(cfg, err)
	}
	return tok, nil
}

// mapLoadError adds a next step to a missing-vocabulary error. The download
// hint is only given when the missing file is the one a download would write.
func mapLoadError(cfg config.Config, err error) error {
	if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if derived, derr := hub.VocabPath(cfg.Hub.OutDir, cfg.Hub.Repo); derr == nil && derived == cfg.Paths.VocabPath {
		return fmt.Errorf("%w; run `bertjp vocab download %s` first", err, cfg.Hub.Repo)
	}
	return fmt.Errorf("%w; check --vocab-path / BERTJP_PATHS_VOCAB_PATH, or drop it and run `bertjp vocab download`", err)
}
