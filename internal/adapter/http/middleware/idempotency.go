package middleware

import (
	"context"
	"net/http"

	"github.com/iho/bankledger/internal/domain"
)

// IdempotencyKeyHeader is the header name for idempotency keys.
const IdempotencyKeyHeader = "Idempotency-Key"

type idempotencyKeyCtx struct{}

// WithIdempotencyKey stores a client idempotency key in ctx.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKeyCtx{}, key)
}

// IdempotencyKeyFromContext returns the key set by IdempotencyKey, or "".
func IdempotencyKeyFromContext(ctx context.Context) string {
	key, _ := ctx.Value(idempotencyKeyCtx{}).(string)
	return key
}

// IdempotencyKey validates the Idempotency-Key header on mutating requests and
// hands it to handlers through the request context. Replays are resolved by the
// ledger against the stored transaction, so responses are not cached here.
func IdempotencyKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodPut {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get(IdempotencyKeyHeader)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}

		if err := domain.ValidateIdempotencyKey(key); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}

		w.Header().Set(IdempotencyKeyHeader, key)
		next.ServeHTTP(w, r.WithContext(WithIdempotencyKey(r.Context(), key)))
	})
}
