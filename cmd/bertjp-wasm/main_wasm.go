//go:build js && wasm

package main

import (
	"bytes"
	"fmt"
	"sync"
	"syscall/js"

	"github.com/example/go-bert-japanese/internal/segment"
	"github.com/example/go-bert-japanese/internal/text"
	"github.com/example/go-bert-japanese/internal/tokenizer"
	"github.com/example/go-bert-japanese/internal/vocab"
)

const cacheSize = 4096

var (
	engineMu sync.RWMutex
	engine   *tokenizer.Tokenizer
)

func main() {
	kernel := map[string]any{
		"version":   "0.1.0-wasm",
		"loadVocab": js.FuncOf(loadVocabAsync),
		"normalize": js.FuncOf(normalizeText),
		"tokenize":  js.FuncOf(tokenizeText),
		"encode":    js.FuncOf(encodeText),
		"decode":    js.FuncOf(decodeIDs),
	}

	js.Global().Set("BertJapaneseKernel", js.ValueOf(kernel))
	println("bert-japanese wasm kernel loaded")
	select {}
}

// loadVocabAsync takes vocab.txt bytes (Uint8Array/ArrayBuffer) or its text
// and resolves with the vocabulary size once the tokenizer is ready.
func loadVocabAsync(_ js.Value, args []js.Value) any {
	promiseCtor := js.Global().Get("Promise")
	var handler js.Func
	handler = js.FuncOf(func(_ js.Value, pArgs []js.Value) any {
		defer handler.Release()
		resolve := pArgs[0]
		reject := pArgs[1]

		if len(args) < 1 {
			reject.Invoke("missing vocab.txt argument")
			return nil
		}

		raw, ok := copyJSBytes(args[0])
		if !ok && args[0].Type() == js.TypeString {
			raw, ok = []byte(args[0].String()), true
		}
		if !ok || len(raw) == 0 {
			reject.Invoke("vocab.txt must be a non-empty string, Uint8Array or ArrayBuffer")
			return nil
		}

		go func() {
			res, err := loadVocab(raw)
			if err != nil {
				reject.Invoke(err.Error())
				return
			}
			resolve.Invoke(js.ValueOf(res))
		}()

		return nil
	})

	return promiseCtor.New(handler)
}

func loadVocab(raw []byte) (map[string]any, error) {
	v, err := vocab.Load(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("load vocabulary: %w", err)
	}
	seg, err := segment.NewKagome(segment.BuiltinIPA)
	if err != nil {
		return nil, fmt.Errorf("load dictionary: %w", err)
	}
	tok, err := tokenizer.New(seg, v, tokenizer.WithCacheSize(cacheSize))
	if err != nil {
		return nil, err
	}

	engineMu.Lock()
	engine = tok
	engineMu.Unlock()

	return okResult(map[string]any{"size": v.Size()}), nil
}

func currentEngine() (*tokenizer.Tokenizer, bool) {
	engineMu.RLock()
	defer engineMu.RUnlock()
	return engine, engine != nil
}

func normalizeText(_ js.Value, args []js.Value) any {
	if len(args) < 1 {
		return errResult("missing text argument")
	}
	return okResult(map[string]any{"text": text.Normalize(args[0].String())})
}

func tokenizeText(_ js.Value, args []js.Value) any {
	if len(args) < 1 {
		return errResult("missing text argument")
	}
	tok, ok := currentEngine()
	if !ok {
		return errResult("vocabulary not loaded; call loadVocab first")
	}

	return okResult(map[string]any{"tokens": toAnySlice(tok.Tokenize(args[0].String()))})
}

// encodeText(text[, addSpecialTokens=true]).
func encodeText(_ js.Value, args []js.Value) any {
	if len(args) < 1 {
		return errResult("missing text argument")
	}
	tok, ok := currentEngine()
	if !ok {
		return errResult("vocabulary not loaded; call loadVocab first")
	}

	framed := true
	if len(args) > 1 && args[1].Type() == js.TypeBoolean {
		framed = args[1].Bool()
	}

	enc := tok.EncodePlus(args[0].String(), framed)
	return okResult(map[string]any{
		"input_ids":      toAnySlice(enc.IDs),
		"attention_mask": toAnySlice(enc.AttentionMask),
		"tokens":         toAnySlice(enc.Tokens),
	})
}

// decodeIDs(ids[, skipSpecialTokens=true]).
func decodeIDs(_ js.Value, args []js.Value) any {
	if len(args) < 1 || args[0].Type() != js.TypeObject {
		return errResult("missing ids array argument")
	}
	tok, ok := currentEngine()
	if !ok {
		return errResult("vocabulary not loaded; call loadVocab first")
	}

	skip := true
	if len(args) > 1 && args[1].Type() == js.TypeBoolean {
		skip = args[1].Bool()
	}

	n := args[0].Length()
	ids := make([]int, n)
	for i := range n {
		ids[i] = args[0].Index(i).Int()
	}

	return okResult(map[string]any{"text": tok.Decode(ids, skip)})
}

func toAnySlice[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

func copyJSBytes(v js.Value) ([]byte, bool) {
	if v.IsUndefined() || v.IsNull() {
		return nil, false
	}

	uint8Array := js.Global().Get("Uint8Array")
	if !uint8Array.IsUndefined() && v.InstanceOf(uint8Array) {
		buf := make([]byte, v.Get("length").Int())
		n := js.CopyBytesToGo(buf, v)
		return buf[:n], true
	}

	arrayBuffer := js.Global().Get("ArrayBuffer")
	if !arrayBuffer.IsUndefined() && v.InstanceOf(arrayBuffer) {
		wrapped := uint8Array.New(v)
		buf := make([]byte, wrapped.Get("length").Int())
		n := js.CopyBytesToGo(buf, wrapped)
		return buf[:n], true
	}

	return nil, false
}

func okResult(payload map[string]any) map[string]any {
	payload["ok"] = true
	return payload
}

func errResult(msg string) map[string]any {
	return map[string]any{
		"ok":    false,
		"error": msg,
	}
}
