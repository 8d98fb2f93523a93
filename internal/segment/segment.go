// Package segment defines the word-segmentation capability consumed by the
// tokenizer and provides a kagome-backed morphological analyzer for it.
package segment

import (
	"strings"
	"unicode"
)

// Category is a coarse character class attached to each segment.
// CategoryBoundary marks segments that carry no content and are dropped.
type Category int

const (
	CategoryBoundary Category = iota
	CategoryOther
	CategoryKanji
	CategorySymbol
	CategoryNumeric
	CategoryAlpha
	CategoryHiragana
	CategoryKatakana
)

func (c Category) String() string {
	switch c {
	case CategoryBoundary:
		return "boundary"
	case CategoryOther:
		return "other"
	case CategoryKanji:
		return "kanji"
	case CategorySymbol:
		return "symbol"
	case CategoryNumeric:
		return "numeric"
	case CategoryAlpha:
		return "alpha"
	case CategoryHiragana:
		return "hiragana"
	case CategoryKatakana:
		return "katakana"
	default:
		return "unknown"
	}
}

// Segment is one unit produced by a Segmenter.
type Segment struct {
	Surface  string
	Category Category
}

// Segmenter splits a sentence into ordered segments.
// Implementations must be deterministic for a given input and must be safe for
// concurrent use.
type Segmenter interface {
	Segment(text string) []Segment
}

// Func adapts a plain function to the Segmenter interface.
type Func func(text string) []Segment

// Segment implements Segmenter.
func (f Func) Segment(text string) []Segment { return f(text) }

// Words runs seg over text and returns the surfaces of all content segments in
// order, dropping every segment whose category is CategoryBoundary.
func Words(seg Segmenter, text string) []string {
	segments := seg.Segment(text)

	words := make([]string, 0, len(segments))
	for _, s := range segments {
		if s.Category == CategoryBoundary {
			continue
		}
		words = append(words, s.Surface)
	}

	return words
}

// Classify derives the category of a surface string from its first rune.
// Empty and whitespace-only surfaces are boundaries.
func Classify(surface string) Category {
	if strings.TrimSpace(surface) == "" {
		return CategoryBoundary
	}

	for _, r := range surface {
		switch {
		case unicode.IsSpace(r):
			continue
		case unicode.Is(unicode.Han, r) || r == '々' || r == '〆':
			return CategoryKanji
		case unicode.Is(unicode.Hiragana, r):
			return CategoryHiragana
		case unicode.Is(unicode.Katakana, r) || r == 'ー':
			return CategoryKatakana
		case unicode.IsDigit(r):
			return CategoryNumeric
		case unicode.IsLetter(r):
			return CategoryAlpha
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			return CategorySymbol
		default:
			return CategoryOther
		}
	}

	return CategoryBoundary
}
