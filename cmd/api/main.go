package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // market time zones on hosts without zoneinfo

	"github.com/atharvakonge/papertrade/internal/admin"
	"github.com/atharvakonge/papertrade/internal/auth"
	"github.com/atharvakonge/papertrade/internal/config"
	"github.com/atharvakonge/papertrade/internal/db"
	"github.com/atharvakonge/papertrade/internal/handlers"
	"github.com/atharvakonge/papertrade/internal/ledger"
	"github.com/atharvakonge/papertrade/internal/logger"
	"github.com/atharvakonge/papertrade/internal/market"
	"github.com/atharvakonge/papertrade/internal/metrics"
	"github.com/atharvakonge/papertrade/internal/pricing"
	"github.com/atharvakonge/papertrade/internal/repository"
	"github.com/atharvakonge/papertrade/internal/scheduler"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	sessionPurgeInterval = 10 * time.Minute
	shutdownTimeout      = 10 * time.Second
)

func main() {
	cfg := config.MustLoad()

	zlog, flush, err := logger.Init(cfg.Log)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	if err := run(cfg, zlog); err != nil {
		zlog.Error("server stopped with error", zap.Error(err))
		flush()
		os.Exit(1)
	}
	flush()
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	conn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer conn.Close()

	catalog, err := db.LoadCatalog(cfg.CatalogFile)
	if err != nil {
		return err
	}
	if _, err := db.SeedCatalog(ctx, conn, catalog); err != nil {
		return err
	}

	repo := repository.New(conn)
	m := metrics.New()

	loc, err := time.LoadLocation(cfg.Market.Timezone)
	if err != nil {
		return fmt.Errorf("market time zone: %w", err)
	}
	holidays, err := market.ParseHolidays(cfg.Market.Holidays)
	if err != nil {
		return err
	}
	gate := market.NewGate(loc, holidays)

	sessions, purge, err := newSessionStore(ctx, cfg)
	if err != nil {
		return err
	}
	authSvc := auth.NewService(repo, sessions, cfg.StartingBalance)
	if err := authSvc.EnsureAdmin(ctx, cfg.Admin); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}

	executor := ledger.NewExecutor(repo, gate, ledger.WithMetrics(m))

	// Initialize order processor
	orders := handlers.NewOrderProcessor(cfg.NumWorkers, executor)
	orders.Start()
	defer orders.Stop()

	hub := handlers.NewPriceHub(repo, pricing.NewFeed(cfg.Pricing.Seed, cfg.Pricing.Band), m)

	jobs, err := scheduler.New()
	if err != nil {
		return err
	}
	if err := jobs.Every("price-tick", cfg.Pricing.TickInterval, hub.Tick, true); err != nil {
		return err
	}
	if purge != nil {
		if err := jobs.Every("session-purge", sessionPurgeInterval, purge, false); err != nil {
			return err
		}
	}
	jobs.Start()
	defer func() {
		if err := jobs.Stop(); err != nil {
			log.Warn("scheduler shutdown", zap.Error(err))
		}
	}()

	gin.SetMode(cfg.GinMode)
	router := gin.New()
	handlers.New(handlers.Deps{
		Repo:    repo,
		Auth:    authSvc,
		Admin:   admin.NewService(repo),
		Orders:  orders,
		Cash:    executor,
		Feed:    pricing.NewFeed(cfg.Pricing.Seed, cfg.Pricing.Band),
		Gate:    gate,
		Hub:     hub,
		Metrics: m,
		Session: cfg.Session,
	}).Routes(router)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("addr", srv.Addr), zap.String("market_tz", loc.String()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newSessionStore builds the configured store. purge is non-nil when the
// store needs periodic cleanup.
func newSessionStore(ctx context.Context, cfg *config.Config) (auth.Store, func(context.Context) error, error) {
	if cfg.Session.Backend == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("redis: %w", err)
		}
		zap.L().Info("Redis connected", zap.String("addr", client.Options().Addr))
		return auth.NewRedisStore(client, cfg.Session.TTL), nil, nil
	}

	store := auth.NewMemoryStore(cfg.Session.TTL)
	purge := func(ctx context.Context) error {
		if n := store.Purge(ctx); n > 0 {
			zap.L().Debug("expired sessions purged", zap.Int("sessions", n))
		}
		return nil
	}
	return store, purge, nil
}
