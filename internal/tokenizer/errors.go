package tokenizer

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSegmenter is returned when New is called without a segmenter.
	ErrNoSegmenter = errors.New("segmenter must not be nil")
	// ErrNoVocabulary is returned when New is called without a vocabulary.
	ErrNoVocabulary = errors.New("vocabulary must not be nil")
)

// ConfigError reports a fatal construction failure: an unreadable or invalid
// dictionary, an unreadable vocabulary, or a vocabulary without a required
// special token.
type ConfigError struct {
	Resource string
	Err      error
}

func (e *ConfigError) Error() string {
	if e.Resource == "" {
		return fmt.Sprintf("tokenizer configuration: %v", e.Err)
	}
	return fmt.Sprintf("tokenizer configuration (%s): %v", e.Resource, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
