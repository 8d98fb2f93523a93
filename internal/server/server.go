package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/go-bert-japanese/internal/config"
	"github.com/example/go-bert-japanese/internal/tokenizer"
	"github.com/example/go-bert-japanese/internal/vocab"
)

// ParseLogLevel converts a case-insensitive level string to slog.Level.
// An empty string returns slog.LevelInfo. Unknown strings return an error.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (want debug|info|warn|error)", s)
	}
}

// Codec is the tokenizer surface served over HTTP.
type Codec interface {
	EncodePlus(sentence string, addSpecialTokens bool) tokenizer.Encoding
	EncodeBatchPlus(sentences []string, addSpecialTokens bool) []tokenizer.Encoding
	Decode(ids []int, skipSpecialTokens bool) string
	Vocab() *vocab.Vocabulary
}

// ---------------------------------------------------------------------------
// Functional options
// ---------------------------------------------------------------------------

type options struct {
	maxTextBytes     int
	maxBodyBytes     int64
	workers          int
	requestTimeout   time.Duration
	addSpecialTokens bool
	logger           *slog.Logger
}

func defaultOptions() options {
	return options{
		maxTextBytes:     16384,
		workers:          4,
		requestTimeout:   10 * time.Second,
		addSpecialTokens: true,
		logger:           slog.Default(),
	}
}

// Option configures the HTTP handler.
type Option func(*options)

// WithMaxTextBytes sets the maximum total text size in bytes for POST /encode.
func WithMaxTextBytes(n int) Option {
	return func(o *options) { o.maxTextBytes = n }
}

// WithMaxBodyBytes caps the size of a request body. Zero derives the cap from
// the text limit, allowing for JSON escaping; negative disables it.
func WithMaxBodyBytes(n int64) Option {
	return func(o *options) { o.maxBodyBytes = n }
}

// bodyLimit returns the request body cap, or 0 for none.
func (o options) bodyLimit() int64 {
	switch {
	case o.maxBodyBytes > 0:
		return o.maxBodyBytes
	case o.maxBodyBytes < 0 || o.maxTextBytes <= 0:
		return 0
	default:
		// "\u00XX" is the longest JSON spelling of one input byte.
		return 6*int64(o.maxTextBytes) + 4096
	}
}

// WithWorkers sets the maximum number of concurrent encode/decode calls.
// Zero or less disables throttling.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithRequestTimeout sets the per-request deadline.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) { o.requestTimeout = d }
}

// WithAddSpecialTokens sets the framing used when a request does not choose.
func WithAddSpecialTokens(on bool) Option {
	return func(o *options) { o.addSpecialTokens = on }
}

// WithLogger sets the slog.Logger used for request logging.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// ---------------------------------------------------------------------------
// handler
// ---------------------------------------------------------------------------

type handler struct {
	codec Codec
	opts  options
	sem   chan struct{} // semaphore for worker pool
	log   *slog.Logger
}

// NewHandler returns an http.Handler that serves /health, /vocab, POST /encode
// and POST /decode.
func NewHandler(codec Codec, optFns ...Option) http.Handler {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	h := &handler{
		codec: codec,
		opts:  opts,
		log:   opts.logger,
	}
	if opts.workers > 0 {
		h.sem = make(chan struct{}, opts.workers)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/vocab", h.handleVocab)
	mux.HandleFunc("/encode", h.handleEncode)
	mux.HandleFunc("/decode", h.handleDecode)
	return withRequestID(mux)
}

// RequestIDHeader carries the per-request correlation id. A client-supplied
// value is echoed back; otherwise a random UUID is assigned.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// requestLog returns the request logger tagged with the request id.
func (h *handler) requestLog(r *http.Request) *slog.Logger {
	id, _ := r.Context().Value(requestIDKey{}).(string)
	return h.log.With(slog.String("request_id", id))
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildVersion(),
	})
}

type vocabResponse struct {
	Size          int            `json:"size"`
	SpecialTokens map[string]int `json:"special_tokens"`
}

func (h *handler) handleVocab(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	v := h.codec.Vocab()
	resp := vocabResponse{Size: v.Size(), SpecialTokens: make(map[string]int, len(vocab.Specials))}
	for _, s := range vocab.Specials {
		resp.SpecialTokens[s.Token()] = v.SpecialID(s)
	}
	writeJSON(w, http.StatusOK, resp)
}

type encodeRequest struct {
	Text             string   `json:"text"`
	Texts            []string `json:"texts"`
	AddSpecialTokens *bool    `json:"add_special_tokens"`
}

type encodeBatchResponse struct {
	Encodings []tokenizer.Encoding `json:"encodings"`
}

func (h *handler) handleEncode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req encodeRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	size := len(req.Text)
	for _, s := range req.Texts {
		size += len(s)
	}
	if h.opts.maxTextBytes > 0 && size > h.opts.maxTextBytes {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("text exceeds maximum size of %d bytes", h.opts.maxTextBytes))
		return
	}

	framed := h.opts.addSpecialTokens
	if req.AddSpecialTokens != nil {
		framed = *req.AddSpecialTokens
	}

	start := time.Now()
	var (
		result any
		tokens int
	)
	err := h.run(r.Context(), func() {
		if req.Texts == nil {
			enc := h.codec.EncodePlus(req.Text, framed)
			tokens = len(enc.IDs)
			result = enc
			return
		}
		out := encodeBatchResponse{Encodings: h.codec.EncodeBatchPlus(req.Texts, framed)}
		for _, enc := range out.Encodings {
			tokens += len(enc.IDs)
		}
		result = out
	})
	durationMS := time.Since(start).Milliseconds()
	if err != nil {
		h.fail(w, r, "encode", err,
			slog.Int("text_len", size),
			slog.Int64("duration_ms", durationMS),
		)
		return
	}

	h.requestLog(r).InfoContext(r.Context(), "encode complete",
		slog.Int("text_len", size),
		slog.Int("batch", len(req.Texts)),
		slog.Int("tokens", tokens),
		slog.Int64("duration_ms", durationMS),
	)
	writeJSON(w, http.StatusOK, result)
}

type decodeRequest struct {
	IDs               []int `json:"ids"`
	SkipSpecialTokens *bool `json:"skip_special_tokens"`
}

type decodeResponse struct {
	Text string `json:"text"`
}

func (h *handler) handleDecode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req decodeRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	skip := true
	if req.SkipSpecialTokens != nil {
		skip = *req.SkipSpecialTokens
	}

	start := time.Now()
	var text string
	err := h.run(r.Context(), func() {
		text = h.codec.Decode(req.IDs, skip)
	})
	durationMS := time.Since(start).Milliseconds()
	if err != nil {
		h.fail(w, r, "decode", err,
			slog.Int("ids", len(req.IDs)),
			slog.Int64("duration_ms", durationMS),
		)
		return
	}

	h.requestLog(r).InfoContext(r.Context(), "decode complete",
		slog.Int("ids", len(req.IDs)),
		slog.Int("text_len", len(text)),
		slog.Int64("duration_ms", durationMS),
	)
	writeJSON(w, http.StatusOK, decodeResponse{Text: text})
}

var errWorkerWait = errors.New("request cancelled while waiting for worker")

// run executes fn under a worker slot and the per-request timeout. fn keeps
// running to completion in the background if the deadline passes first.
func (h *handler) run(parent context.Context, fn func()) error {
	if h.sem != nil {
		select {
		case h.sem <- struct{}{}:
		case <-parent.Done():
			return errWorkerWait
		}
	}

	ctx := parent
	if h.opts.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, h.opts.requestTimeout)
		defer cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if h.sem != nil {
			defer func() { <-h.sem }()
		}
		fn()
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *handler) fail(w http.ResponseWriter, r *http.Request, op string, err error, attrs ...any) {
	attrs = append(attrs, slog.String("error", err.Error()))
	switch {
	case errors.Is(err, errWorkerWait):
		h.requestLog(r).WarnContext(r.Context(), op+" cancelled", attrs...)
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		h.requestLog(r).WarnContext(r.Context(), op+" timed out", attrs...)
		writeError(w, http.StatusGatewayTimeout, op+" timed out")
	default:
		h.requestLog(r).ErrorContext(r.Context(), op+" failed", attrs...)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *handler) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil || r.Body == http.NoBody {
		writeError(w, http.StatusBadRequest, "request body is required")
		return false
	}
	body := r.Body
	if limit := h.opts.bodyLimit(); limit > 0 {
		body = http.MaxBytesReader(w, r.Body, limit)
	}
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// ---------------------------------------------------------------------------
// Server: wires handler into net/http.Server with graceful shutdown
// ---------------------------------------------------------------------------

// Server wires the HTTP handler into a net/http.Server with graceful shutdown.
type Server struct {
	cfg    config.Config
	codec  Codec
	logger *slog.Logger
}

// New returns a Server. When codec is nil, Start loads a tokenizer from cfg.
func New(cfg config.Config, codec Codec) *Server {
	return &Server{cfg: cfg, codec: codec, logger: slog.Default()}
}

// WithLogger overrides the request logger.
func (s *Server) WithLogger(l *slog.Logger) *Server {
	s.logger = l
	return s
}

func (s *Server) Start(ctx context.Context) error {
	codec := s.codec
	if codec == nil {
		tok, err := tokenizer.NewFromConfig(s.cfg, s.logger)
		if err != nil {
			return err
		}
		codec = tok
	}

	h := NewHandler(codec,
		WithWorkers(s.cfg.Server.Workers),
		WithMaxTextBytes(s.cfg.Server.MaxTextBytes),
		WithRequestTimeout(s.cfg.Server.RequestTimeout),
		WithAddSpecialTokens(s.cfg.Tokenizer.AddSpecialTokens),
		WithLogger(s.logger),
	)

	httpServer := &http.Server{
		Addr:              s.cfg.Server.ListenAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	s.logger.Info("listening", slog.String("addr", s.cfg.Server.ListenAddr))

	select {
	case <-ctx.Done():
		shutdownTimeout := s.cfg.Server.ShutdownTimeout
		if shutdownTimeout <= 0 {
			shutdownTimeout = 30 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http listen: %w", err)
	}
}

func ProbeHTTP(addr string) error {
	resp, err := http.Get("http://" + addr + "/health") //nolint:noctx
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected health status: %s", resp.Status)
	}
	return nil
}
