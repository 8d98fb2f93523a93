package tokenizer

import (
	"log/slog"

	"github.com/example/go-bert-japanese/internal/config"
)

// OptionsFromConfig translates the tokenizer section of cfg into Options.
func OptionsFromConfig(cfg config.Config, logger *slog.Logger) ([]Option, error) {
	policy, err := config.NormalizeDecodePolicy(cfg.Tokenizer.DecodePolicy)
	if err != nil {
		return nil, err
	}
	p, err := ParseDecodePolicy(policy)
	if err != nil {
		return nil, err
	}

	opts := []Option{
		WithAddSpecialTokens(cfg.Tokenizer.AddSpecialTokens),
		WithDecodePolicy(p),
		WithReservedBelow(cfg.Tokenizer.ReservedBelow),
		WithCacheSize(cfg.Tokenizer.CacheSize),
		WithBatchWorkers(cfg.Tokenizer.BatchWorkers),
	}
	if logger != nil {
		opts = append(opts, WithLogger(logger))
	}
	return opts, nil
}

// NewFromConfig loads the dictionary and vocabulary named in cfg.Paths.
func NewFromConfig(cfg config.Config, logger *slog.Logger) (*Tokenizer, error) {
	opts, err := OptionsFromConfig(cfg, logger)
	if err != nil {
		return nil, &ConfigError{Resource: "tokenizer.decode_policy", Err: err}
	}
	return NewFromFiles(cfg.Paths.DictPath, cfg.Paths.VocabPath, opts...)
}
