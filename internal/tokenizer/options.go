package tokenizer

import (
	"fmt"
	"log/slog"
)

// DecodePolicy selects which ids Decode drops when skipping special tokens.
type DecodePolicy int

const (
	// DecodeSkipSpecial drops the five named special tokens.
	DecodeSkipSpecial DecodePolicy = iota
	// DecodeSkipReserved drops every id below the reserved threshold.
	DecodeSkipReserved
)

// DefaultReservedBelow matches the layout of the cl-tohoku vocabularies, whose
// first five lines are the special tokens.
const DefaultReservedBelow = 5

func (p DecodePolicy) String() string {
	switch p {
	case DecodeSkipSpecial:
		return "special"
	case DecodeSkipReserved:
		return "reserved"
	default:
		return fmt.Sprintf("DecodePolicy(%d)", int(p))
	}
}

// ParseDecodePolicy accepts the names returned by DecodePolicy.String.
func ParseDecodePolicy(s string) (DecodePolicy, error) {
	switch s {
	case "", "special":
		return DecodeSkipSpecial, nil
	case "reserved":
		return DecodeSkipReserved, nil
	default:
		return DecodeSkipSpecial, fmt.Errorf("unknown decode policy %q (want special|reserved)", s)
	}
}

type options struct {
	addSpecialTokens bool
	decodePolicy     DecodePolicy
	reservedBelow    int
	cacheSize        int
	batchWorkers     int
	logger           *slog.Logger
}

func defaultOptions() options {
	return options{
		addSpecialTokens: true,
		decodePolicy:     DecodeSkipSpecial,
		reservedBelow:    DefaultReservedBelow,
		logger:           slog.Default(),
	}
}

// Option configures a Tokenizer.
type Option func(*options)

// WithAddSpecialTokens sets whether Encode frames output with [CLS] and [SEP].
func WithAddSpecialTokens(on bool) Option {
	return func(o *options) { o.addSpecialTokens = on }
}

// WithDecodePolicy selects how Decode recognises special ids.
func WithDecodePolicy(p DecodePolicy) Option {
	return func(o *options) { o.decodePolicy = p }
}

// WithReservedBelow sets the threshold used by DecodeSkipReserved.
func WithReservedBelow(n int) Option {
	return func(o *options) { o.reservedBelow = n }
}

// WithCacheSize enables an LRU cache of n word splits. n <= 0 disables it.
func WithCacheSize(n int) Option {
	return func(o *options) { o.cacheSize = n }
}

// WithBatchWorkers bounds the goroutines EncodeBatch uses. n <= 0 selects
// runtime.GOMAXPROCS.
func WithBatchWorkers(n int) Option {
	return func(o *options) { o.batchWorkers = n }
}

// WithLogger sets the logger used for construction diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}
