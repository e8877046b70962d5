package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/kirinyoku/concertix/internal/broker"
	"github.com/kirinyoku/concertix/internal/config"
	"github.com/kirinyoku/concertix/internal/domain"
	"github.com/kirinyoku/concertix/internal/postgres"
	"github.com/kirinyoku/concertix/internal/redis"
	"github.com/kirinyoku/concertix/internal/repository"
	"github.com/kirinyoku/concertix/internal/repository/memory"
	postgresrepo "github.com/kirinyoku/concertix/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/concertix/internal/repository/redis"
	"github.com/kirinyoku/concertix/internal/service"
	"github.com/kirinyoku/concertix/internal/service/query"
	"github.com/kirinyoku/concertix/internal/service/reservation"
	"github.com/kirinyoku/concertix/internal/sweeper"
	httpgin "github.com/kirinyoku/concertix/internal/transport/http/gin"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	sweeper    *sweeper.Sweeper
	pubsub     *redisrepo.ConcertsPubSub
	cache      *redisrepo.Cache
	closers    []io.Closer
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}

	deps := reservation.Deps{Log: logger}
	var idem *redisrepo.IdempotencyStore

	if cfg.Redis.Addr != "" {
		rdb, err := redis.New(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}

		a.closers = append(a.closers, rdb)
		a.cache = redisrepo.NewCache(rdb)
		a.pubsub = redisrepo.NewConcertsPubSub(rdb)

		deps.Cache = a.cache
		deps.Notifier = a.pubsub
		deps.Limiter = redisrepo.NewSlidingWindowLimiter(rdb, "reserve", cfg.RateLimit.Limit, cfg.RateLimit.Window)
		idem = redisrepo.NewIdempotencyStore(rdb, 24*time.Hour, time.Minute)
	} else {
		logger.Warn("REDIS_ADDR not set; running without cache, rate limiting and idempotency")
	}

	if cfg.RabbitMQ.URL != "" {
		pub, err := broker.Dial(cfg.RabbitMQ.URL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize rabbitmq: %w", err)
		}

		a.closers = append(a.closers, pub)
		deps.Publisher = pub
	}

	services := service.NewServices(store, a.cache, deps, service.Config{
		Reservation: reservation.Config{
			HoldTTL:      cfg.Reservation.HoldTTL,
			MinHoldTTL:   cfg.Reservation.MinHoldTTL,
			MaxHoldTTL:   cfg.Reservation.MaxHoldTTL,
			CancelCutoff: &cfg.Reservation.CancelCutoff,
		},
		Query:        query.Config{},
		TxMaxRetries: cfg.Reservation.TxMaxRetries,
	})

	a.sweeper, err = sweeper.New(services.Reservation, cfg.Reservation.SweepInterval, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	shed := rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst)
	router := httpgin.NewRouter(services, idem, logger, httpgin.LoadShedMiddleware(shed))

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return a, nil
}

func (a *App) openStore(ctx context.Context) (repository.Store, error) {
	if a.cfg.StoreDriver == config.DriverMemory {
		store := memory.NewStore()
		seedDemoUsers(store)
		a.logger.Warn("using in-memory store; data is lost on exit")

		return store, nil
	}

	pgxPool, err := postgres.New(ctx, postgres.Config{
		DSN:      a.cfg.Postgres.DSN(),
		MaxConns: a.cfg.Postgres.MaxConns,
	}, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	a.closers = append(a.closers, closerFunc(func() error {
		pgxPool.Close()
		return nil
	}))

	store := postgresrepo.NewStore(pgxPool)
	if err := store.Migrate(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to migrate postgres: %w", err)
	}

	return store, nil
}

// seedDemoUsers gives a memory store one admin and one regular user so the
// API is usable without an auth service.
func seedDemoUsers(store *memory.Store) {
	store.PutUser(domain.User{ID: 1, Email: "admin@concertix.local", Nickname: "admin", IsAdmin: true})
	store.PutUser(domain.User{ID: 2, Email: "fan@concertix.local", Nickname: "fan", RemainingPoint: 10000})
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	defer a.Close()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return a.sweeper.Run(gCtx)
	})

	// drop cached views when another replica changes a concert
	if a.pubsub != nil {
		g.Go(func() error {
			err := a.pubsub.Subscribe(gCtx, func(ctx context.Context, concertID int64) {
				if err := a.cache.InvalidateConcert(ctx, concertID); err != nil {
					a.logger.Warn("cache invalidation failed", slog.Int64("concert_id", concertID), slog.Any("error", err))
				}
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}

// Close releases connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("close failed", slog.Any("error", err))
		}
	}

	a.closers = nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
