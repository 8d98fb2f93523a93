package segment

import (
	"fmt"

	"github.com/ikawaha/kagome-dict/dict"
	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// BuiltinIPA names the IPADIC dictionary embedded in the binary.
const BuiltinIPA = "ipa"

// Kagome segments Japanese text with the kagome morphological analyzer.
type Kagome struct {
	t *tokenizer.Tokenizer
}

// LoadDict resolves a dictionary resource. An empty resource or "ipa" selects
// the embedded IPADIC; anything else is read as a kagome dictionary archive.
func LoadDict(resource string) (*dict.Dict, error) {
	if resource == "" || resource == BuiltinIPA {
		return ipa.Dict(), nil
	}

	d, err := dict.LoadDictFile(resource)
	if err != nil {
		return nil, fmt.Errorf("load dictionary %q: %w", resource, err)
	}

	return d, nil
}

// NewKagome loads the dictionary resource and builds a segmenter over it.
func NewKagome(resource string) (*Kagome, error) {
	d, err := LoadDict(resource)
	if err != nil {
		return nil, err
	}

	t, err := tokenizer.New(d, tokenizer.OmitBosEos())
	if err != nil {
		return nil, fmt.Errorf("create kagome tokenizer: %w", err)
	}

	return &Kagome{t: t}, nil
}

// Segment implements Segmenter. BOS/EOS markers and whitespace-only surfaces
// are reported as CategoryBoundary.
func (k *Kagome) Segment(text string) []Segment {
	tokens := k.t.Tokenize(text)

	out := make([]Segment, 0, len(tokens))
	for _, tok := range tokens {
		cat := Classify(tok.Surface)
		if tok.Class == tokenizer.DUMMY {
			cat = CategoryBoundary
		}
		out = append(out, Segment{Surface: tok.Surface, Category: cat})
	}

	return out
}
