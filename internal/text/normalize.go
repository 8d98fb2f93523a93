package text

import (
	"errors"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrEmptyText is returned when the input text is empty or whitespace-only.
var ErrEmptyText = errors.New("text is empty")

// Normalize applies Unicode normalization form KC to s.
// The segmenter dictionary and the vocabulary are both built against NFKC text,
// so every sentence passes through here before segmentation.
func Normalize(s string) string {
	return norm.NFKC.String(s)
}

// IsNormalized reports whether s is already in NFKC form.
func IsNormalized(s string) bool {
	return norm.NFKC.IsNormalString(s)
}

// CleanInput prepares raw user input read from a flag, stdin or a request body.
// It normalizes line endings to \n, trims surrounding whitespace and rejects
// empty or whitespace-only input.
func CleanInput(s string) (string, error) {
	// CRLF → LF, then bare CR → LF.
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	s = strings.TrimSpace(s)

	if s == "" {
		return "", ErrEmptyText
	}

	return s, nil
}
