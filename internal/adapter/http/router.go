package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/iho/bankledger/internal/adapter/http/handler"
	"github.com/iho/bankledger/internal/adapter/http/middleware"
	"github.com/iho/bankledger/internal/infrastructure/metrics"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	AccountHandler   *handler.AccountHandler
	TransferHandler  *handler.TransferHandler
	EntryHandler     *handler.EntryHandler
	StatementHandler *handler.StatementHandler
	LedgerHandler    *handler.LedgerHandler
	HealthHandler    *handler.HealthHandler

	Logger zerolog.Logger
	// Metrics and MetricsHandler are optional.
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler
	// RateLimiter throttles money movement endpoints when set.
	RateLimiter *middleware.RateLimiter
	// TokenVerifier enables bearer authentication on /api/v1 when set.
	TokenVerifier middleware.TokenVerifier
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(cfg.Metrics).Wrap)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	authEnabled := cfg.TokenVerifier != nil

	// operator wraps lifecycle and back-office routes; it is a no-op without auth
	operator := func(r chi.Router) chi.Router {
		if authEnabled {
			return r.With(middleware.RequireOperator)
		}
		return r
	}

	limited := func(r chi.Router) chi.Router {
		if cfg.RateLimiter != nil {
			return r.With(cfg.RateLimiter.Limit)
		}
		return r
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		if authEnabled {
			r.Use(middleware.Authenticate(cfg.TokenVerifier))
		}
		r.Use(middleware.IdempotencyKey)

		// Accounts
		r.Route("/accounts", func(r chi.Router) {
			operator(r).Post("/", cfg.AccountHandler.Open)
			operator(r).Get("/", cfg.AccountHandler.List)
			r.Get("/{id}", cfg.AccountHandler.Get)
			r.Get("/{id}/statement", cfg.StatementHandler.Get)
			r.Get("/{id}/entries", cfg.EntryHandler.ListByAccount)
			r.Get("/{id}/balance/history", cfg.EntryHandler.GetHistoricalBalance)
			operator(r).Get("/{id}/reconciliation", cfg.LedgerHandler.ReconcileAccount)
			operator(r).Get("/{id}/audit", cfg.AccountHandler.AuditTrail)
			operator(r).Get("/{id}/events", cfg.AccountHandler.Events)
			operator(r).Post("/{id}/freeze", cfg.AccountHandler.Freeze)
			operator(r).Post("/{id}/unfreeze", cfg.AccountHandler.Unfreeze)
			operator(r).Post("/{id}/close", cfg.AccountHandler.Close)
		})

		// Money movement
		limited(r).Post("/transfers", cfg.TransferHandler.Transfer)
		limited(r).Post("/payments", cfg.TransferHandler.Pay)
		limited(r).Post("/withdrawals", cfg.TransferHandler.Withdraw)
		limited(operator(r)).Post("/deposits", cfg.TransferHandler.Deposit)

		// Transactions
		r.Route("/transactions", func(r chi.Router) {
			r.Get("/{id}", cfg.TransferHandler.GetTransaction)
			r.Get("/{id}/entries", cfg.EntryHandler.ListByTransaction)
		})

		// Ledger
		r.Route("/ledger", func(r chi.Router) {
			operator(r).Get("/consistency", cfg.LedgerHandler.CheckConsistency)
			operator(r).Get("/reconciliation", cfg.LedgerHandler.Report)
		})
	})

	return r
}
