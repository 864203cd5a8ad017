package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"hrpay/internal/requestctx"
)

type sampleRecorder struct {
	statuses []int
}

func (s *sampleRecorder) Record(status int, _ time.Duration) {
	s.statuses = append(s.statuses, status)
}

func TestRequestIDMiddleware(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetRequestID(r.Context()) == "" {
			t.Fatal("expected request id in context")
		}
		if ip := requestctx.GetClientIP(r.Context()); ip != "192.0.2.1" {
			t.Fatalf("expected client ip, got %q", ip)
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec = httptest.NewRecorder()
	RequestID(http.NotFoundHandler()).ServeHTTP(rec, req)
	if rec.Header().Get("X-Request-ID") != "abc" {
		t.Fatal("expected caller request id to be kept")
	}
}

func TestLoggerRecordsStatusAndMetrics(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	metrics := &sampleRecorder{}
	handler := Logger(zap.New(core), metrics)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/payroll/runs/2024-06-30/lock", nil))

	if len(metrics.statuses) != 1 || metrics.statuses[0] != http.StatusConflict {
		t.Fatalf("unexpected metrics: %v", metrics.statuses)
	}
	entries := logs.All()
	if len(entries) != 1 || entries[0].Level != zap.WarnLevel {
		t.Fatalf("expected one warn entry, got %+v", entries)
	}
	if entries[0].ContextMap()["status"] != int64(http.StatusConflict) {
		t.Fatalf("unexpected status field: %v", entries[0].ContextMap())
	}
}

func TestRecovererReturnsEnvelope(t *testing.T) {
	handler := Recoverer(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError || !strings.Contains(rec.Body.String(), "internal_error") {
		t.Fatalf("unexpected response: %d %s", rec.Code, rec.Body.String())
	}
}

func TestSecureHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecureHeaders(true)(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" || rec.Header().Get("Strict-Transport-Security") == "" {
		t.Fatalf("missing security headers: %v", rec.Header())
	}
}

func TestBodyLimit(t *testing.T) {
	reached := false
	handler := BodyLimit(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		buf := new(bytes.Buffer)
		if _, err := buf.ReadFrom(r.Body); err == nil {
			t.Fatal("expected body limit error")
		}
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789abcdef")))
	if rec.Code != http.StatusRequestEntityTooLarge || reached {
		t.Fatalf("expected 413 before the handler, got %d (reached=%v)", rec.Code, reached)
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789abcdef"))
	req.ContentLength = -1
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if !reached {
		t.Fatal("expected streamed body to reach the handler")
	}
}

func TestRequestHashDeterministic(t *testing.T) {
	if RequestHash([]byte("payload")) != RequestHash([]byte("payload")) {
		t.Fatal("expected deterministic hash")
	}
	if RequestHash([]byte("payload")) == RequestHash([]byte("other")) {
		t.Fatal("expected different hash for different payload")
	}
}

func TestIdempotencyReplaysAndRejectsConflicts(t *testing.T) {
	calls := 0
	handler := Idempotency(NewMemoryIdempotencyStore())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))

	send := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payroll/payslips/p1/payment", strings.NewReader(body))
		req.Header.Set(IdempotencyHeader, "key-1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	first := send(`{"method":"bank_transfer"}`)
	second := send(`{"method":"bank_transfer"}`)
	if calls != 1 {
		t.Fatalf("expected one handler call, got %d", calls)
	}
	if second.Code != http.StatusCreated || second.Body.String() != first.Body.String() || second.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("expected replayed response, got %d %q", second.Code, second.Body.String())
	}

	conflict := send(`{"method":"cash"}`)
	if conflict.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 on key reuse, got %d", conflict.Code)
	}
}
