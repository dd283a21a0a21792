package server_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/go-deepqa/internal/instance"
	"github.com/example/go-deepqa/internal/server"
)

// capturingHandler captures all slog records during a test.
type capturingHandler struct {
	records []slog.Record
}

func (c *capturingHandler) Enabled(_ context.Context, _ slog.Level) bool { return true }
func (c *capturingHandler) Handle(_ context.Context, r slog.Record) error {
	c.records = append(c.records, r)
	return nil
}
func (c *capturingHandler) WithAttrs(attrs []slog.Attr) slog.Handler { return c }
func (c *capturingHandler) WithGroup(name string) slog.Handler       { return c }

func (c *capturingHandler) attrMap(idx int) map[string]any {
	m := make(map[string]any)
	c.records[idx].Attrs(func(a slog.Attr) bool {
		m[a.Key] = a.Value.Any()
		return true
	})
	return m
}

func TestIndex_LogsRequestIDAndTextCount(t *testing.T) {
	cap := &capturingHandler{}
	h := newTestHandler(server.WithLogger(slog.New(cap)))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/index", strings.NewReader(`{"texts":["the cat","sat"]}`))
	req.Header.Set(server.RequestIDHeader, "log-test")
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}

	if len(cap.records) != 1 {
		t.Fatalf("want 1 log record, got %d", len(cap.records))
	}

	if cap.records[0].Level != slog.LevelInfo {
		t.Errorf("level = %v; want INFO", cap.records[0].Level)
	}

	attrs := cap.attrMap(0)
	if attrs["request_id"] != "log-test" {
		t.Errorf("request_id = %v; want log-test", attrs["request_id"])
	}

	if attrs["texts"] != int64(2) {
		t.Errorf("texts = %v; want 2", attrs["texts"])
	}

	if _, ok := attrs["duration_ms"]; !ok {
		t.Error("want duration_ms attr")
	}

	lengths, ok := attrs["padding_lengths"].(instance.PaddingLengths)
	if !ok || lengths[instance.KeySentenceWords] != 2 {
		t.Errorf("padding_lengths = %v; want num_sentence_words=2", attrs["padding_lengths"])
	}
}

func TestIndex_FailureLogsWarnWithStatus(t *testing.T) {
	cap := &capturingHandler{}
	h := server.NewHandler(blockingIndexer{},
		server.WithLogger(slog.New(cap)),
		server.WithRequestTimeout(10*time.Millisecond),
	)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/index", strings.NewReader(`{"text":"x"}`))
	h.ServeHTTP(rec, req)

	if len(cap.records) != 1 {
		t.Fatalf("want 1 log record, got %d", len(cap.records))
	}

	if cap.records[0].Level != slog.LevelWarn {
		t.Errorf("level = %v; want WARN", cap.records[0].Level)
	}

	attrs := cap.attrMap(0)
	if attrs["status"] != int64(http.StatusGatewayTimeout) {
		t.Errorf("status = %v; want 504", attrs["status"])
	}

	if attrs["error"] == "" {
		t.Error("want error attr")
	}
}
