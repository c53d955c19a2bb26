package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestIdempotencyKey_PropagatesHeader(t *testing.T) {
	var got string
	handler := IdempotencyKey(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = IdempotencyKeyFromContext(r.Context())
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transfers", bytes.NewBufferString(`{}`))
	req.Header.Set(IdempotencyKeyHeader, "key-123")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if got != "key-123" {
		t.Fatalf("expected key in context, got %q", got)
	}
	if rr.Header().Get(IdempotencyKeyHeader) != "key-123" {
		t.Fatalf("expected key echoed in response headers")
	}
}

func TestIdempotencyKey_RejectsMalformedKey(t *testing.T) {
	var called bool
	handler := IdempotencyKey(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	tests := []struct {
		name string
		key  string
	}{
		{"contains space", "key with space"},
		{"too long", strings.Repeat("k", 256)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called = false
			req := httptest.NewRequest(http.MethodPost, "/api/v1/transfers", nil)
			req.Header.Set(IdempotencyKeyHeader, tt.key)
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			if called {
				t.Fatalf("handler should not be called for a malformed key")
			}
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rr.Code)
			}
		})
	}
}

func TestIdempotencyKey_SkipsSafeMethodsAndMissingHeader(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodPost} {
		var got string
		called := false
		handler := IdempotencyKey(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			got = IdempotencyKeyFromContext(r.Context())
		}))

		req := httptest.NewRequest(method, "/api/v1/accounts", nil)
		if method == http.MethodGet {
			req.Header.Set(IdempotencyKeyHeader, "ignored")
		}
		handler.ServeHTTP(httptest.NewRecorder(), req)

		if !called || got != "" {
			t.Fatalf("%s: expected pass-through without key, called=%v key=%q", method, called, got)
		}
	}
}
