// Package vocab holds the line-ordered WordPiece vocabulary: a bidirectional,
// immutable mapping between token strings and dense integer ids.
package vocab

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ContinuationPrefix marks a subword piece that continues the previous piece
// without a word boundary.
const ContinuationPrefix = "##"

const byteOrderMark = "\ufeff"

// ErrEmptyVocabulary is returned when a vocabulary source contains no tokens.
var ErrEmptyVocabulary = errors.New("vocabulary is empty")

// Vocabulary maps token strings to ids and back. Ids are line positions,
// starting at 0 and contiguous. A Vocabulary is never mutated after Load and is
// safe for concurrent use.
type Vocabulary struct {
	ids      map[string]int
	tokens   []string
	specials [numSpecials]int
	index    prefixIndex
}

// New builds a Vocabulary from tokens in id order.
// Duplicate tokens and missing special tokens are configuration errors.
func New(tokens []string) (*Vocabulary, error) {
	if len(tokens) == 0 {
		return nil, ErrEmptyVocabulary
	}

	v := &Vocabulary{
		ids:    make(map[string]int, len(tokens)),
		tokens: make([]string, len(tokens)),
	}
	copy(v.tokens, tokens)

	for id, tok := range v.tokens {
		if prev, ok := v.ids[tok]; ok {
			return nil, fmt.Errorf("duplicate token %q at lines %d and %d", tok, prev, id)
		}
		v.ids[tok] = id
	}

	for _, s := range Specials {
		id, ok := v.ids[s.Token()]
		if !ok {
			return nil, &MissingSpecialError{Special: s}
		}
		v.specials[s] = id
	}

	v.index = newPrefixIndex(v.tokens)

	return v, nil
}

// Load reads a newline-delimited vocabulary. Line n becomes id n.
// A leading UTF-8 byte order mark and trailing carriage returns are stripped
// so files saved by Windows editors load identically.
func Load(r io.Reader) (*Vocabulary, error) {
	var tokens []string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if len(tokens) == 0 {
			line = strings.TrimPrefix(line, byteOrderMark)
		}
		tokens = append(tokens, strings.TrimSuffix(line, "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}

	return New(tokens)
}

// LoadFile reads a vocab.txt file from disk.
func LoadFile(path string) (*Vocabulary, error) {
	if path == "" {
		return nil, errors.New("vocabulary path must not be empty")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocabulary %q: %w", path, err)
	}
	defer f.Close()

	v, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("load vocabulary %q: %w", path, err)
	}

	return v, nil
}

// Size returns the number of tokens.
func (v *Vocabulary) Size() int { return len(v.tokens) }

// Contains reports whether tok is an exact vocabulary key.
func (v *Vocabulary) Contains(tok string) bool {
	_, ok := v.ids[tok]
	return ok
}

// Lookup returns the id of tok and whether it was present.
func (v *Vocabulary) Lookup(tok string) (int, bool) {
	id, ok := v.ids[tok]
	return id, ok
}

// ID returns the id of tok, or the id of [UNK] when tok is absent.
func (v *Vocabulary) ID(tok string) int {
	if id, ok := v.ids[tok]; ok {
		return id
	}
	return v.specials[Unknown]
}

// Token returns the string for id and whether id is in range.
func (v *Vocabulary) Token(id int) (string, bool) {
	if id < 0 || id >= len(v.tokens) {
		return "", false
	}
	return v.tokens[id], true
}

// SpecialID returns the id assigned to a special role.
func (v *Vocabulary) SpecialID(s Special) int { return v.specials[s] }

// IsSpecial reports whether id belongs to one of the special roles.
func (v *Vocabulary) IsSpecial(id int) bool {
	for _, sid := range v.specials {
		if sid == id {
			return true
		}
	}
	return false
}
