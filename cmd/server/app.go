package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	httpAdapter "github.com/iho/bankledger/internal/adapter/http"
	"github.com/iho/bankledger/internal/adapter/http/handler"
	"github.com/iho/bankledger/internal/adapter/http/middleware"
	"github.com/iho/bankledger/internal/adapter/repository/memory"
	postgresRepo "github.com/iho/bankledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/bankledger/internal/adapter/repository/redis"
	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/infrastructure/auth"
	"github.com/iho/bankledger/internal/infrastructure/config"
	"github.com/iho/bankledger/internal/infrastructure/eventpublisher"
	"github.com/iho/bankledger/internal/infrastructure/metrics"
	"github.com/iho/bankledger/internal/infrastructure/postgres"
	"github.com/iho/bankledger/internal/infrastructure/redis"
	"github.com/iho/bankledger/internal/infrastructure/tracing"
	"github.com/iho/bankledger/internal/usecase"
)

const (
	rateLimiterSweep   = 10 * time.Minute
	rateLimiterMaxIdle = time.Hour
)

// storage is the set of repositories behind the use cases.
type storage struct {
	txManager    usecase.TransactionManager
	accounts     usecase.AccountRepository
	transactions usecase.TransactionRepository
	entries      usecase.EntryRepository
	outbox       usecase.OutboxRepository
	audit        usecase.AuditRepository
	ledger       usecase.LedgerRepository
	// retrier is nil for the in-memory driver, which never deadlocks.
	retrier usecase.Retrier
	checks  map[string]handler.Check
	close   func()
}

func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		log.Warn().Msg("using in-memory storage; data is lost on restart")

		store := memory.NewStore(cfg.LockTimeout)
		return &storage{
			txManager:    memory.NewTxManager(store),
			accounts:     memory.NewAccountRepository(store),
			transactions: memory.NewTransactionRepository(store),
			entries:      memory.NewEntryRepository(store),
			outbox:       memory.NewOutboxRepository(store),
			audit:        memory.NewAuditRepository(store),
			ledger:       memory.NewLedgerRepository(store),
			checks:       map[string]handler.Check{},
			close:        func() {},
		}, nil
	}

	if cfg.MigrateOnStart {
		if err := postgres.RunMigrations(cfg.DatabaseURL, log); err != nil {
			return nil, err
		}
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.DatabaseTimeout)
	defer cancel()

	pool, err := postgres.NewPool(connectCtx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	log.Info().Msg("connected to postgres")

	return &storage{
		txManager:    postgresRepo.NewTxManager(pool, cfg.LockTimeout),
		accounts:     postgresRepo.NewAccountRepository(pool),
		transactions: postgresRepo.NewTransactionRepository(pool),
		entries:      postgresRepo.NewEntryRepository(pool),
		outbox:       postgresRepo.NewOutboxRepository(pool),
		audit:        postgresRepo.NewAuditRepository(pool),
		ledger:       postgresRepo.NewLedgerRepository(pool),
		retrier:      postgresRepo.NewRetrier(log),
		checks:       map[string]handler.Check{"postgres": pool.Ping},
		close:        pool.Close,
	}, nil
}

// connectRedis returns nil when Redis is disabled or unreachable. The ledger
// stays correct without it; only the in-flight guard and lookup cache are lost.
func connectRedis(ctx context.Context, cfg *config.Config, log zerolog.Logger) *goredis.Client {
	if !cfg.RedisEnabled {
		return nil
	}

	client, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable; continuing without idempotency guard and cache")
		return nil
	}

	log.Info().Msg("connected to redis")
	return client
}

type app struct {
	handler     http.Handler
	publisher   *eventpublisher.EventPublisher
	rateLimiter *middleware.RateLimiter
	close       func()
}

func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*app, error) {
	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	idGen := postgresRepo.NewULIDGenerator()
	opts := []usecase.TransferOption{
		usecase.WithMetrics(m),
		usecase.WithLogger(log),
		usecase.WithTransactionTimeout(cfg.TransactionTimeout),
	}
	if store.retrier != nil {
		opts = append(opts, usecase.WithRetrier(store.retrier))
	}

	var eventSink eventpublisher.Publisher = eventpublisher.NewLogPublisher(log)
	closers := []func(){store.close}

	if client := connectRedis(ctx, cfg, log); client != nil {
		opts = append(opts,
			usecase.WithIdempotencyStore(redisRepo.NewIdempotencyStore(client)),
			usecase.WithCache(redisRepo.NewCache(client)),
		)
		store.checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		eventSink = eventpublisher.NewRedisPublisher(client)
		closers = append([]func(){func() { _ = client.Close() }}, closers...)
	}

	transferUC := usecase.NewTransferUseCase(
		store.txManager,
		store.accounts,
		store.transactions,
		store.entries,
		store.outbox,
		idGen,
		domain.NewExternalRouter(cfg.ExternalRoutingPrefixes),
		opts...,
	)
	accountUC := usecase.NewAccountUseCase(
		store.txManager, store.accounts, store.outbox, store.audit, idGen, cfg.DefaultCurrency, m,
	)
	ledgerUC := usecase.NewLedgerUseCase(store.ledger, m)
	reconciliationUC := usecase.NewReconciliationUseCase(store.accounts, store.transactions, ledgerUC, m)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).WithMetrics(m)

	routerCfg := httpAdapter.RouterConfig{
		AccountHandler:   handler.NewAccountHandler(accountUC),
		TransferHandler:  handler.NewTransferHandler(transferUC),
		EntryHandler:     handler.NewEntryHandler(usecase.NewEntryUseCase(store.accounts, store.entries)),
		StatementHandler: handler.NewStatementHandler(usecase.NewStatementUseCase(store.accounts, store.transactions)),
		LedgerHandler:    handler.NewLedgerHandler(ledgerUC, reconciliationUC),
		HealthHandler:    handler.NewHealthHandler(store.checks),
		Logger:           log,
		Metrics:          m,
		MetricsHandler:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		RateLimiter:      rateLimiter,
	}
	if cfg.AuthEnabled {
		routerCfg.TokenVerifier = auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration)
	}

	publisher := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: store.outbox,
		Publisher:  eventSink,
		Logger:     log,
		Metrics:    m,
		BatchSize:  cfg.OutboxBatchSize,
		Interval:   cfg.OutboxPollInterval,
		Retention:  cfg.OutboxRetention,
	})

	return &app{
		handler:     httpAdapter.NewRouter(routerCfg),
		publisher:   publisher,
		rateLimiter: rateLimiter,
		close: func() {
			for _, c := range closers {
				c()
			}
		},
	}, nil
}

// run serves HTTP and relays outbox events until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.ServiceName,
		Insecure:    true,
	})
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn().Err(err).Msg("failed to flush traces")
		}
	}()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      a.handler,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("port", cfg.HTTPPort).Str("storage", cfg.StorageDriver).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		err := a.publisher.Start(gCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		a.rateLimiter.Run(gCtx, rateLimiterSweep, rateLimiterMaxIdle)
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		log.Info().Msg("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
