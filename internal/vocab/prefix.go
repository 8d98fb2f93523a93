package vocab

import (
	"strings"

	radix "github.com/armon/go-radix"
)

// prefixIndex answers longest-prefix queries over the vocabulary. heads holds
// every token as written; tails holds "##" tokens with the marker removed, so
// a continuation lookup never matches a bare "#" token.
type prefixIndex struct {
	heads *radix.Tree
	tails *radix.Tree
}

func newPrefixIndex(tokens []string) prefixIndex {
	idx := prefixIndex{heads: radix.New(), tails: radix.New()}
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		idx.heads.Insert(tok, struct{}{})
		if rest, ok := strings.CutPrefix(tok, ContinuationPrefix); ok && rest != "" {
			idx.tails.Insert(rest, struct{}{})
		}
	}
	return idx
}

// LongestPrefix returns the longest vocabulary token matching the start of s
// and the number of bytes of s it covers. With continuation set, only "##"
// tokens are considered and the returned token carries the marker.
func (v *Vocabulary) LongestPrefix(s string, continuation bool) (string, int, bool) {
	tree := v.index.heads
	if continuation {
		tree = v.index.tails
	}

	key, _, ok := tree.LongestPrefix(s)
	if !ok || key == "" {
		return "", 0, false
	}
	if continuation {
		return ContinuationPrefix + key, len(key), true
	}
	return key, len(key), true
}
