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

	"github.com/example/go-deepqa/internal/config"
	"github.com/example/go-deepqa/internal/instance"
	"github.com/example/go-deepqa/internal/tokenizer"
	"github.com/google/uuid"
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

// Indexer turns request text into tokens and padded index arrays.
type Indexer interface {
	Tokenize(text string) tokenizer.Representation
	Index(ctx context.Context, texts []string) (*IndexResult, error)
	VocabSizes() map[string]int
}

// RequestIDHeader carries the request id on requests and responses.
const RequestIDHeader = "X-Request-ID"

// ---------------------------------------------------------------------------
// Functional options
// ---------------------------------------------------------------------------

type options struct {
	maxTextBytes   int
	workers        int
	requestTimeout time.Duration
	logger         *slog.Logger
}

func defaultOptions() options {
	return options{
		maxTextBytes:   4096,
		workers:        2,
		requestTimeout: 60 * time.Second,
		logger:         slog.Default(),
	}
}

// Option configures the HTTP handler.
type Option func(*options)

// WithMaxTextBytes sets the maximum size of each text in bytes. Zero
// disables the limit.
func WithMaxTextBytes(n int) Option {
	return func(o *options) { o.maxTextBytes = n }
}

// WithWorkers sets the maximum number of concurrent index calls. Zero
// disables throttling.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithRequestTimeout sets the per-request indexing deadline. Zero disables
// it.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) { o.requestTimeout = d }
}

// WithLogger sets the slog.Logger used for request logging.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// ---------------------------------------------------------------------------
// handler
// ---------------------------------------------------------------------------

type handler struct {
	indexer Indexer
	opts    options
	sem     chan struct{} // semaphore for worker pool
	log     *slog.Logger
}

// NewHandler returns an http.Handler that serves /health, /vocab,
// POST /tokenize and POST /index.
func NewHandler(indexer Indexer, optFns ...Option) http.Handler {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	h := &handler{
		indexer: indexer,
		opts:    opts,
		log:     opts.logger,
	}
	if opts.workers > 0 {
		h.sem = make(chan struct{}, opts.workers)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/vocab", h.handleVocab)
	mux.HandleFunc("/tokenize", h.handleTokenize)
	mux.HandleFunc("/index", h.handleIndex)

	return withRequestID(mux)
}

type requestIDKey struct{}

// withRequestID tags every request with the caller's X-Request-ID or a new
// random one, and echoes it on the response.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
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

func (h *handler) handleVocab(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, h.indexer.VocabSizes())
}

type textRequest struct {
	Text  string   `json:"text"`
	Texts []string `json:"texts"`
}

// texts returns Text followed by Texts, skipping an empty Text.
func (req textRequest) texts() []string {
	out := make([]string, 0, 1+len(req.Texts))
	if req.Text != "" {
		out = append(out, req.Text)
	}
	return append(out, req.Texts...)
}

// decodeTexts reads and validates a textRequest, writing the error response
// itself when it returns false.
func (h *handler) decodeTexts(w http.ResponseWriter, r *http.Request) ([]string, bool) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return nil, false
	}

	if r.Body == nil {
		writeError(w, http.StatusBadRequest, "request body is required")
		return nil, false
	}

	var req textRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return nil, false
	}

	texts := req.texts()
	if len(texts) == 0 {
		writeError(w, http.StatusBadRequest, "text or texts field is required")
		return nil, false
	}

	for i, text := range texts {
		if h.opts.maxTextBytes > 0 && len(text) > h.opts.maxTextBytes {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("text %d exceeds maximum size of %d bytes", i, h.opts.maxTextBytes))
			return nil, false
		}
	}

	return texts, true
}

type tokenizeResponse struct {
	RequestID string                     `json:"request_id"`
	Tokens    []tokenizer.Representation `json:"tokens"`
}

func (h *handler) handleTokenize(w http.ResponseWriter, r *http.Request) {
	texts, ok := h.decodeTexts(w, r)
	if !ok {
		return
	}

	tokens := make([]tokenizer.Representation, len(texts))
	for i, text := range texts {
		tokens[i] = h.indexer.Tokenize(text)
	}

	writeJSON(w, http.StatusOK, tokenizeResponse{RequestID: requestID(r.Context()), Tokens: tokens})
}

type arrayJSON struct {
	Shape []int `json:"shape"`
	Data  []int `json:"data"`
}

type indexResponse struct {
	RequestID      string                     `json:"request_id"`
	PaddingLengths map[string]int             `json:"padding_lengths"`
	Tokens         []tokenizer.Representation `json:"tokens"`
	Inputs         map[string]arrayJSON       `json:"inputs"`
}

func (h *handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	texts, ok := h.decodeTexts(w, r)
	if !ok {
		return
	}

	id := requestID(r.Context())

	// Acquire a worker slot, honouring cancellation while waiting.
	if h.sem != nil {
		select {
		case h.sem <- struct{}{}:
		case <-r.Context().Done():
			writeError(w, http.StatusServiceUnavailable, "request cancelled while waiting for worker")
			return
		}
		defer func() { <-h.sem }()
	}

	ctx := r.Context()
	if h.opts.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opts.requestTimeout)
		defer cancel()
	}

	start := time.Now()
	result, err := h.indexer.Index(ctx, texts)
	durationMS := time.Since(start).Milliseconds()

	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
			status = http.StatusGatewayTimeout
		case errors.Is(err, instance.ErrSequenceTooLong), errors.Is(err, instance.ErrUnsupportedStrategy):
			status = http.StatusUnprocessableEntity
		case errors.Is(err, ErrNoTexts):
			status = http.StatusBadRequest
		}

		h.log.WarnContext(r.Context(), "index failed",
			slog.String("request_id", id),
			slog.Int("texts", len(texts)),
			slog.Int("status", status),
			slog.Int64("duration_ms", durationMS),
			slog.String("error", err.Error()),
		)
		writeError(w, status, err.Error())
		return
	}

	h.log.InfoContext(r.Context(), "index complete",
		slog.String("request_id", id),
		slog.Int("texts", len(texts)),
		slog.Any("padding_lengths", result.Batch.Lengths),
		slog.Int64("duration_ms", durationMS),
	)

	inputs := make(map[string]arrayJSON, len(result.Batch.Inputs))
	for name, a := range result.Batch.Inputs {
		inputs[name] = arrayJSON{Shape: a.Shape, Data: a.Data}
	}

	writeJSON(w, http.StatusOK, indexResponse{
		RequestID:      id,
		PaddingLengths: result.Batch.Lengths,
		Tokens:         result.Tokens,
		Inputs:         inputs,
	})
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

type Server struct {
	cfg             config.Config
	indexer         Indexer
	logger          *slog.Logger
	shutdownTimeout time.Duration
}

func New(cfg config.Config, indexer Indexer) *Server {
	return &Server{
		cfg:             cfg,
		indexer:         indexer,
		logger:          slog.Default(),
		shutdownTimeout: time.Duration(cfg.Server.ShutdownTimeout) * time.Second,
	}
}

// WithShutdownTimeout overrides the graceful-shutdown drain period.
func (s *Server) WithShutdownTimeout(d time.Duration) *Server {
	s.shutdownTimeout = d
	return s
}

func (s *Server) WithLogger(l *slog.Logger) *Server {
	s.logger = l
	return s
}

func (s *Server) Start(ctx context.Context) error {
	if s.indexer == nil {
		return errors.New("server: no indexer configured")
	}

	h := NewHandler(s.indexer,
		WithWorkers(s.cfg.Server.Workers),
		WithMaxTextBytes(s.cfg.Server.MaxTextBytes),
		WithRequestTimeout(time.Duration(s.cfg.Server.RequestTimeout)*time.Second),
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

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
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

// Health is what a running server reports about itself.
type Health struct {
	Status  string         `json:"status"`
	Version string         `json:"version"`
	Vocab   map[string]int `json:"-"`
}

// CheckHealth queries /health and /vocab on the server at addr.
func CheckHealth(ctx context.Context, addr string) (Health, error) {
	var h Health
	if err := getJSON(ctx, "http://"+addr+"/health", &h); err != nil {
		return Health{}, fmt.Errorf("health: %w", err)
	}
	if h.Status != "ok" {
		return Health{}, fmt.Errorf("health: server reports status %q", h.Status)
	}
	if err := getJSON(ctx, "http://"+addr+"/vocab", &h.Vocab); err != nil {
		return Health{}, fmt.Errorf("vocab: %w", err)
	}
	return h, nil
}

func getJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
