package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/example/go-bert-japanese/internal/server"
	"github.com/example/go-bert-japanese/internal/testutil"
	"github.com/example/go-bert-japanese/internal/tokenizer"
	"github.com/example/go-bert-japanese/internal/vocab"
)

// blockingCodec holds every call until release is closed.
type blockingCodec struct {
	release chan struct{}
	started chan struct{}
	v       *vocab.Vocabulary
}

func (b *blockingCodec) EncodePlus(string, bool) tokenizer.Encoding {
	b.started <- struct{}{}
	<-b.release
	return tokenizer.Encoding{IDs: []int{}, AttentionMask: []int{}, Tokens: []string{}}
}

func (b *blockingCodec) EncodeBatchPlus(sentences []string, _ bool) []tokenizer.Encoding {
	b.started <- struct{}{}
	<-b.release
	return make([]tokenizer.Encoding, len(sentences))
}

func (b *blockingCodec) Decode([]int, bool) string {
	b.started <- struct{}{}
	<-b.release
	return ""
}

func (b *blockingCodec) Vocab() *vocab.Vocabulary { return b.v }

func newBlockingCodec(t *testing.T) *blockingCodec {
	t.Helper()
	b := &blockingCodec{
		release: make(chan struct{}),
		started: make(chan struct{}, 16),
		v:       testutil.FixtureVocab(t),
	}
	t.Cleanup(func() { close(b.release) })
	return b
}

func TestEncode_TimeoutReturns504(t *testing.T) {
	codec := newBlockingCodec(t)
	h := server.NewHandler(codec, server.WithRequestTimeout(20*time.Millisecond))

	rec := postJSON(t, h, "/encode", `{"text":"x"}`)
	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("want 504, got %d", rec.Code)
	}
}

func TestWorkers_CancelledWhileWaiting(t *testing.T) {
	codec := newBlockingCodec(t)
	h := server.NewHandler(codec, server.WithWorkers(1), server.WithRequestTimeout(time.Minute))

	// Occupy the only worker slot.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = postJSON(t, h, "/decode", `{"ids":[1]}`)
	}()
	<-codec.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/decode", strings.NewReader(`{"ids":[1]}`)).WithContext(ctx)
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("want 503, got %d", rec.Code)
	}

	codec.release <- struct{}{}
	wg.Wait()
}

func TestEncode_LogsRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := newTestHandler(t, server.WithLogger(logger))

	rec := postJSON(t, h, "/encode", `{"text":"食べましょう"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if entry["msg"] != "encode complete" {
		t.Errorf("msg = %v; want encode complete", entry["msg"])
	}
	if entry["tokens"] != float64(4) {
		t.Errorf("tokens = %v; want 4", entry["tokens"])
	}
	if _, ok := entry["duration_ms"]; !ok {
		t.Error("missing duration_ms attribute")
	}
	if entry["request_id"] != rec.Header().Get(server.RequestIDHeader) {
		t.Errorf("request_id = %v; want response header %q", entry["request_id"], rec.Header().Get(server.RequestIDHeader))
	}
}

func TestRequestID(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	id := rec.Header().Get(server.RequestIDHeader)
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("generated request id %q is not a UUID: %v", id, err)
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(server.RequestIDHeader, "client-42")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get(server.RequestIDHeader); got != "client-42" {
		t.Errorf("echoed request id = %q; want client-42", got)
	}
}
