package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bankledger"

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Ledger metrics
	Transactions      *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	TransactionAmount *prometheus.HistogramVec
	IdempotentReplays *prometheus.CounterVec
	LockTimeouts      prometheus.Counter

	// Account metrics
	AccountsOpened       prometheus.Counter
	AccountStatusChanges *prometheus.CounterVec

	// Reconciliation metrics
	ReconciliationDiscrepancies prometheus.Gauge
	LedgerConsistent            prometheus.Gauge

	// Outbox metrics
	OutboxPublished prometheus.Counter
	OutboxFailed    prometheus.Counter
	OutboxLag       prometheus.Histogram

	// API metrics
	HTTPRequests  *prometheus.CounterVec
	HTTPDuration  *prometheus.HistogramVec
	HTTPInFlight  prometheus.Gauge
	RateLimitHits *prometheus.CounterVec
}

// New creates all metrics and registers them with reg.
// A nil reg registers with the default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	return &Metrics{
		Transactions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transactions_total",
				Help:      "Ledger operations by type and outcome",
			},
			[]string{"type", "outcome"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of ledger operations",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"type"},
		),
		TransactionAmount: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "transaction_amount",
				Help:      "Amounts of completed transactions",
				Buckets:   []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
			},
			[]string{"type"},
		),
		IdempotentReplays: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "idempotent_replays_total",
				Help:      "Requests answered from a previously recorded transaction",
			},
			[]string{"type"},
		),
		LockTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lock_timeouts_total",
			Help:      "Operations that could not acquire account locks in time",
		}),

		AccountsOpened: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accounts_opened_total",
			Help:      "Total number of accounts opened",
		}),
		AccountStatusChanges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "account_status_changes_total",
				Help:      "Account status transitions by target status",
			},
			[]string{"status"},
		),

		ReconciliationDiscrepancies: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reconciliation_discrepancies",
			Help:      "Accounts whose balance disagreed with their transactions in the last run",
		}),
		LedgerConsistent: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ledger_consistent",
			Help:      "1 if the last conservation check passed",
		}),

		OutboxPublished: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_published_total",
			Help:      "Outbox events published",
		}),
		OutboxFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_failed_total",
			Help:      "Outbox events that failed to publish",
		}),
		OutboxLag: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "outbox_lag_seconds",
			Help:      "Delay between event creation and publication",
			Buckets:   []float64{.01, .05, .1, .5, 1, 2, 5, 10, 30, 60},
		}),

		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),
		HTTPInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		}),
		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Requests rejected by the rate limiter",
			},
			[]string{"route"},
		),
	}
}
