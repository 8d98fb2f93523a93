// Package tokenizer converts Japanese text into BERT token ids and back.
//
// Encoding runs NFKC normalization, morphological word segmentation, WordPiece
// subword splitting and vocabulary lookup, then frames the sequence with [CLS]
// and [SEP]. Decoding concatenates the surface of each id, dropping special
// tokens and "##" continuation markers. A Tokenizer is safe for concurrent use.
package tokenizer

import (
	"log/slog"
	"runtime"
	"strings"

	"github.com/sourcegraph/conc/pool"

	"github.com/example/go-bert-japanese/internal/segment"
	"github.com/example/go-bert-japanese/internal/text"
	"github.com/example/go-bert-japanese/internal/vocab"
	"github.com/example/go-bert-japanese/internal/wordpiece"
)

// Encoding is the result of encoding one sentence.
type Encoding struct {
	IDs           []int    `json:"input_ids"`
	AttentionMask []int    `json:"attention_mask"`
	Tokens        []string `json:"tokens"`
}

// Tokenizer owns a segmenter and a vocabulary.
type Tokenizer struct {
	seg      segment.Segmenter
	vocab    *vocab.Vocabulary
	splitter *wordpiece.Splitter
	cache    *wordpiece.Cache
	opts     options
}

// New assembles a Tokenizer from an already loaded segmenter and vocabulary.
func New(seg segment.Segmenter, v *vocab.Vocabulary, optFns ...Option) (*Tokenizer, error) {
	if seg == nil {
		return nil, &ConfigError{Err: ErrNoSegmenter}
	}
	if v == nil {
		return nil, &ConfigError{Err: ErrNoVocabulary}
	}

	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var (
		splitOpts []wordpiece.Option
		cache     *wordpiece.Cache
	)
	if opts.cacheSize > 0 {
		var err error
		cache, err = wordpiece.NewCache(opts.cacheSize)
		if err != nil {
			return nil, &ConfigError{Err: err}
		}
		splitOpts = append(splitOpts, wordpiece.WithCache(cache))
	}

	return &Tokenizer{
		seg:      seg,
		vocab:    v,
		splitter: wordpiece.New(v, splitOpts...),
		cache:    cache,
		opts:     opts,
	}, nil
}

// NewFromFiles loads the vocabulary at vocabPath and the segmenter dictionary
// named by dictResource. Any failure is returned as a *ConfigError.
func NewFromFiles(dictResource, vocabPath string, optFns ...Option) (*Tokenizer, error) {
	v, err := vocab.LoadFile(vocabPath)
	if err != nil {
		return nil, &ConfigError{Resource: vocabPath, Err: err}
	}

	seg, err := segment.NewKagome(dictResource)
	if err != nil {
		return nil, &ConfigError{Resource: dictResource, Err: err}
	}

	t, err := New(seg, v, optFns...)
	if err != nil {
		return nil, err
	}

	t.opts.logger.Debug("tokenizer loaded",
		slog.String("vocab_path", vocabPath),
		slog.Int("vocab_size", v.Size()),
		slog.String("dictionary", dictResource),
		slog.Int("cache_size", t.opts.cacheSize),
	)

	return t, nil
}

// CachedWords returns the number of memoized word splits.
func (t *Tokenizer) CachedWords() int {
	if t.cache == nil {
		return 0
	}
	return t.cache.Len()
}

// ResetCache drops every memoized word split.
func (t *Tokenizer) ResetCache() {
	if t.cache != nil {
		t.cache.Purge()
	}
}

// Vocab returns the vocabulary.
func (t *Tokenizer) Vocab() *vocab.Vocabulary { return t.vocab }

// Segmenter returns the word segmenter.
func (t *Tokenizer) Segmenter() segment.Segmenter { return t.seg }

// Words normalizes sentence and returns its word-level tokens.
func (t *Tokenizer) Words(sentence string) []string {
	return segment.Words(t.seg, text.Normalize(sentence))
}

// Tokenize returns the subword strings of sentence without special tokens.
func (t *Tokenizer) Tokenize(sentence string) []string {
	return t.splitter.SplitAll(t.Words(sentence))
}

// SplitWord applies WordPiece splitting to a single word-level token.
func (t *Tokenizer) SplitWord(word string) []string {
	return t.splitter.Split(word)
}

// Encode encodes sentence, framing it with [CLS] and [SEP] unless the
// tokenizer was built with WithAddSpecialTokens(false).
func (t *Tokenizer) Encode(sentence string) Encoding {
	return t.EncodePlus(sentence, t.opts.addSpecialTokens)
}

// EncodePlus encodes sentence with explicit control over special-token framing.
// The attention mask always has the same length as the ids and is all ones.
func (t *Tokenizer) EncodePlus(sentence string, addSpecialTokens bool) Encoding {
	tokens := t.Tokenize(sentence)
	if addSpecialTokens {
		framed := make([]string, 0, len(tokens)+2)
		framed = append(framed, vocab.Classifier.Token())
		framed = append(framed, tokens...)
		framed = append(framed, vocab.Separator.Token())
		tokens = framed
	}

	ids := t.ConvertTokensToIDs(tokens)
	mask := make([]int, len(ids))
	for i := range mask {
		mask[i] = 1
	}

	return Encoding{IDs: ids, AttentionMask: mask, Tokens: tokens}
}

// EncodeBatch encodes each sentence independently. Sentences are spread over
// a bounded goroutine pool; the result keeps input order.
func (t *Tokenizer) EncodeBatch(sentences []string) []Encoding {
	return t.EncodeBatchPlus(sentences, t.opts.addSpecialTokens)
}

// EncodeBatchPlus is EncodeBatch with explicit special-token framing.
func (t *Tokenizer) EncodeBatchPlus(sentences []string, addSpecialTokens bool) []Encoding {
	out := make([]Encoding, len(sentences))

	workers := t.opts.batchWorkers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, len(sentences))
	if workers <= 1 {
		for i, s := range sentences {
			out[i] = t.EncodePlus(s, addSpecialTokens)
		}
		return out
	}

	p := pool.New().WithMaxGoroutines(workers)
	for i, s := range sentences {
		p.Go(func() {
			out[i] = t.EncodePlus(s, addSpecialTokens)
		})
	}
	p.Wait()

	return out
}

// ConvertTokensToIDs maps tokens to ids, using the [UNK] id for misses.
func (t *Tokenizer) ConvertTokensToIDs(tokens []string) []int {
	ids := make([]int, len(tokens))
	for i, tok := range tokens {
		ids[i] = t.vocab.ID(tok)
	}
	return ids
}

// ConvertIDsToTokens maps ids to token strings. Ids outside the vocabulary
// are skipped.
func (t *Tokenizer) ConvertIDsToTokens(ids []int) []string {
	tokens := make([]string, 0, len(ids))
	for _, id := range ids {
		if tok, ok := t.vocab.Token(id); ok {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// Decode reconstructs a surface string from ids. Pieces are concatenated
// without separators after removing "##" markers. Ids outside the vocabulary
// are skipped. When skipSpecialTokens is set, ids recognised by the decode
// policy are omitted. Decoding is lossy: whitespace, normalization and the
// text behind [UNK] are not recovered.
func (t *Tokenizer) Decode(ids []int, skipSpecialTokens bool) string {
	var sb strings.Builder
	for _, id := range ids {
		tok, ok := t.vocab.Token(id)
		if !ok {
			continue
		}
		if skipSpecialTokens && t.skip(id) {
			continue
		}
		sb.WriteString(wordpiece.StripContinuation(tok))
	}
	return sb.String()
}

func (t *Tokenizer) skip(id int) bool {
	switch t.opts.decodePolicy {
	case DecodeSkipReserved:
		return id < t.opts.reservedBelow
	default:
		return t.vocab.IsSpecial(id)
	}
}
