package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/infrastructure/metrics"
)

func TestRateLimiter_BlocksPerClient(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	rl := NewRateLimiter(1, 1).WithMetrics(m)
	handler := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	send := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/transfers", nil)
		req.RemoteAddr = remote
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	if rr := send("1.2.3.4:1000"); rr.Code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", rr.Code)
	}

	rr := send("1.2.3.4:2000")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected same host on another port to be throttled, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "1" {
		t.Fatalf("expected Retry-After 1, got %q", rr.Header().Get("Retry-After"))
	}

	if rr := send("5.6.7.8:1000"); rr.Code != http.StatusOK {
		t.Fatalf("expected other client to pass, got %d", rr.Code)
	}

	if got := testutil.ToFloat64(m.RateLimitHits.WithLabelValues("/api/v1/transfers")); got != 1 {
		t.Fatalf("expected 1 rate limit hit, got %v", got)
	}
}

func TestRateLimiter_KeysByPrincipal(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	handler := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	send := func(owner, remote string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/transfers", nil)
		req.RemoteAddr = remote
		req = req.WithContext(domain.ContextWithPrincipal(req.Context(), domain.Principal{OwnerID: owner, Role: domain.RoleCustomer}))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	if code := send("alice", "1.1.1.1:1"); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if code := send("bob", "1.1.1.1:1"); code != http.StatusOK {
		t.Fatalf("expected a different owner behind the same IP to pass, got %d", code)
	}
	if code := send("alice", "9.9.9.9:1"); code != http.StatusTooManyRequests {
		t.Fatalf("expected alice to be throttled from any IP, got %d", code)
	}
}

func TestRateLimiter_Cleanup(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(10, 10)
	rl.now = func() time.Time { return now }

	rl.getLimiter("ip:a")
	now = now.Add(2 * time.Hour)
	rl.getLimiter("ip:b")

	rl.Cleanup(time.Hour)

	if got := rl.size(); got != 1 {
		t.Fatalf("expected idle limiter to be dropped, %d left", got)
	}
}
