package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirinyoku/slotgo/internal/auth"
	"github.com/kirinyoku/slotgo/internal/config"
	"github.com/kirinyoku/slotgo/internal/kafka"
	mongox "github.com/kirinyoku/slotgo/internal/mongo"
	"github.com/kirinyoku/slotgo/internal/postgres"
	redisx "github.com/kirinyoku/slotgo/internal/redis"
	"github.com/kirinyoku/slotgo/internal/repository"
	mongorepo "github.com/kirinyoku/slotgo/internal/repository/mongo"
	postgresrepo "github.com/kirinyoku/slotgo/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/slotgo/internal/repository/redis"
	"github.com/kirinyoku/slotgo/internal/service"
	"github.com/kirinyoku/slotgo/internal/service/admission"
	"github.com/kirinyoku/slotgo/internal/service/ledger"
	httpgin "github.com/kirinyoku/slotgo/internal/transport/http/gin"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	hub        *httpgin.Hub
	pubsub     *redisrepo.EventsPubSub

	// closers run in reverse order on Close
	closers []func() error
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	const op = "app.New"

	a := &App{cfg: cfg, logger: logger}

	// release whatever was opened when a later step fails
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	store, err := a.openStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	rdb, err := redisx.New(ctx, redisx.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Timeout:  cfg.Store.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: redis: %w", op, err)
	}
	a.closers = append(a.closers, rdb.Close)

	cache := redisrepo.NewCache(rdb)
	a.pubsub = redisrepo.NewEventsPubSub(rdb)
	flags := redisrepo.NewReconciliationQueue(rdb, 0)
	limiter := redisrepo.NewSlidingWindowLimiter(rdb, "bookings", cfg.Admission.RateLimit, cfg.Admission.RateWindow)
	idem := redisrepo.NewIdempotencyStore(rdb, cfg.Admission.IdempotencyTTL)

	var publisher admission.BookingPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(kafka.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("%s: kafka: %w", op, err)
		}
		a.closers = append(a.closers, producer.Close)
		publisher = producer
	} else {
		logger.Info("kafka disabled, booking notifications are not published")
	}

	services := service.NewServices(store, cache, a.pubsub, flags, publisher, service.Config{
		Ledger: ledger.Config{
			StoreTimeout:    cfg.Store.Timeout,
			ReleaseAttempts: cfg.Admission.CompensationAttempts,
		},
		Admission: admission.Config{
			StoreTimeout: cfg.Store.Timeout,
		},
	}, logger)

	var tokens httpgin.TokenVerifier
	if cfg.Auth.JWTSecret != "" {
		tokens = auth.NewTokens(cfg.Auth.JWTSecret)
	} else {
		logger.Warn("JWT_SECRET not set, identity comes from the request body and admin routes are open")
	}

	a.hub = httpgin.NewHub()

	router := httpgin.NewRouter(httpgin.Deps{
		Bookings:    services.Admission,
		Events:      services.Query,
		Admin:       services.Admin,
		Idempotency: idem,
		Limiter:     limiter,
		Tokens:      tokens,
		Hub:         a.hub,
		Logger:      logger,
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return a, nil
}

// openStore connects the configured backend and prepares its schema.
func (a *App) openStore(ctx context.Context) (repository.Set, error) {
	switch a.cfg.Store.Driver {
	case config.DriverPostgres:
		pool, err := postgres.New(ctx, postgres.Config{
			DSN:      a.cfg.Postgres.DSN(),
			MaxConns: a.cfg.Postgres.MaxConns,
		})
		if err != nil {
			return repository.Set{}, fmt.Errorf("postgres: %w", err)
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })

		if err := postgres.Migrate(ctx, pool); err != nil {
			return repository.Set{}, err
		}

		return postgresrepo.NewStore(pool).Set(), nil

	case config.DriverMongo:
		client, err := mongox.New(ctx, mongox.Config{
			URI:              a.cfg.Mongo.URI,
			OperationTimeout: a.cfg.Store.Timeout,
		})
		if err != nil {
			return repository.Set{}, fmt.Errorf("mongo: %w", err)
		}
		a.closers = append(a.closers, func() error {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return client.Disconnect(ctx)
		})

		store := mongorepo.NewStore(client, a.cfg.Mongo.DB, a.cfg.Mongo.Transactions)
		if err := store.EnsureIndexes(ctx); err != nil {
			return repository.Set{}, err
		}

		return store.Set(), nil

	default:
		return repository.Set{}, fmt.Errorf("unknown store driver %q", a.cfg.Store.Driver)
	}
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Fan out "event changed" notifications to availability streams
	g.Go(func() error {
		err := a.hub.Run(gCtx, a.pubsub)
		if err != nil && gCtx.Err() == nil {
			return fmt.Errorf("event change subscription: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}

// Close releases every client opened by New.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
