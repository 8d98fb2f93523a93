package tokenizer

import (
	"strings"
	"testing"

	"github.com/example/go-bert-japanese/internal/segment"
	"github.com/example/go-bert-japanese/internal/testutil"
	"github.com/example/go-bert-japanese/internal/vocab"
)

func TestIntegration_RealVocabulary(t *testing.T) {
	path := testutil.RequireVocabFile(t)

	tok, err := NewFromFiles(segment.BuiltinIPA, path, WithCacheSize(1024))
	if err != nil {
		t.Fatalf("NewFromFiles: %v", err)
	}

	v := tok.Vocab()
	sentences := []string{
		"打ち合わせが終わった後にご飯を食べましょう。",
		"ご飯を食べましょう。",
		"打ち合わせ",
	}

	for _, s := range sentences {
		enc := tok.Encode(s)

		if enc.IDs[0] != v.SpecialID(vocab.Classifier) || enc.IDs[len(enc.IDs)-1] != v.SpecialID(vocab.Separator) {
			t.Errorf("Encode(%q) = %v; want [CLS] ... [SEP]", s, enc.IDs)
		}

		for _, id := range enc.IDs {
			if id < 0 || id >= v.Size() {
				t.Errorf("Encode(%q) produced out-of-range id %d", s, id)
			}
		}

		decoded := tok.Decode(enc.IDs, true)
		for _, sp := range vocab.Specials {
			if strings.Contains(decoded, sp.Token()) {
				t.Errorf("Decode(Encode(%q)) = %q contains %s", s, decoded, sp.Token())
			}
		}
	}
}
