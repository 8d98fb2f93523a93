// Package wordpiece implements greedy longest-match-first subword splitting
// against a fixed vocabulary.
package wordpiece

import (
	"strings"
	"unicode/utf8"

	"github.com/example/go-bert-japanese/internal/vocab"
)

// MaxInputCharsPerWord is the rune length above which a piece is replaced by
// the unknown marker without attempting a match.
const MaxInputCharsPerWord = 100

// Vocab is the subset of the vocabulary the splitter needs.
type Vocab interface {
	Contains(tok string) bool
}

// PrefixMatcher is implemented by vocabularies that can answer longest-prefix
// queries directly. The splitter uses it instead of probing Contains once per
// candidate length. n is the number of bytes of s covered by tok.
type PrefixMatcher interface {
	LongestPrefix(s string, continuation bool) (tok string, n int, ok bool)
}

// Splitter turns one word-level token into vocabulary-aligned subword strings.
type Splitter struct {
	vocab    Vocab
	unknown  string
	maxChars int
	cache    *Cache
}

// Option configures a Splitter.
type Option func(*Splitter)

// WithUnknownToken overrides the marker emitted for unmatched pieces.
func WithUnknownToken(tok string) Option {
	return func(s *Splitter) { s.unknown = tok }
}

// WithMaxInputChars overrides MaxInputCharsPerWord.
func WithMaxInputChars(n int) Option {
	return func(s *Splitter) { s.maxChars = n }
}

// WithCache memoizes Split results per word.
func WithCache(c *Cache) Option {
	return func(s *Splitter) { s.cache = c }
}

// New returns a Splitter over v.
func New(v Vocab, opts ...Option) *Splitter {
	s := &Splitter{
		vocab:    v,
		unknown:  vocab.Unknown.Token(),
		maxChars: MaxInputCharsPerWord,
	}
	for _, fn := range opts {
		fn(s)
	}
	return s
}

// Split returns the subword pieces of word. The result is never empty for a
// word that contains non-whitespace characters.
//
// The word is first split on ASCII whitespace. Each piece longer than the
// character ceiling becomes a single unknown marker. Otherwise the longest
// vocabulary prefix is taken repeatedly, with continuation pieces looked up
// under the "##" prefix; if any position has no match, the whole piece
// collapses to one unknown marker.
func (s *Splitter) Split(word string) []string {
	if s.cache != nil {
		if pieces, ok := s.cache.Get(word); ok {
			return pieces
		}
	}

	var out []string
	for _, piece := range whitespaceFields(word) {
		out = append(out, s.splitPiece(piece)...)
	}

	if s.cache != nil {
		s.cache.Add(word, out)
	}

	return out
}

// SplitAll splits every word in order and concatenates the pieces.
func (s *Splitter) SplitAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		out = append(out, s.Split(w)...)
	}
	return out
}

func (s *Splitter) splitPiece(piece string) []string {
	// The ceiling counts code points. A UTF-16 count would reach it at 51
	// supplementary-plane characters (e.g. 𠮷) instead of 101.
	if utf8.RuneCountInString(piece) > s.maxChars {
		return []string{s.unknown}
	}

	if pm, ok := s.vocab.(PrefixMatcher); ok {
		return s.splitIndexed(pm, piece)
	}

	// Byte offsets of every rune boundary, so candidates never cut a rune.
	bounds := make([]int, 0, len(piece)+1)
	for i := range piece {
		bounds = append(bounds, i)
	}
	bounds = append(bounds, len(piece))

	var pieces []string
	start := 0
	for start < len(bounds)-1 {
		match := ""
		end := len(bounds) - 1
		for ; end > start; end-- {
			candidate := piece[bounds[start]:bounds[end]]
			if start > 0 {
				candidate = vocab.ContinuationPrefix + candidate
			}
			if s.vocab.Contains(candidate) {
				match = candidate
				break
			}
		}

		if match == "" {
			return []string{s.unknown}
		}

		pieces = append(pieces, match)
		start = end
	}

	return pieces
}

func (s *Splitter) splitIndexed(pm PrefixMatcher, piece string) []string {
	var pieces []string
	for rest := piece; rest != ""; {
		tok, n, ok := pm.LongestPrefix(rest, len(pieces) > 0)
		if !ok || n == 0 {
			return []string{s.unknown}
		}
		pieces = append(pieces, tok)
		rest = rest[n:]
	}
	return pieces
}

// whitespaceFields splits on space, tab, newline and carriage return and drops
// empty fields. Other Unicode spaces are left inside the piece.
func whitespaceFields(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
}

// StripContinuation removes a leading "##" marker.
func StripContinuation(piece string) string {
	return strings.TrimPrefix(piece, vocab.ContinuationPrefix)
}
