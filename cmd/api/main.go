package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/quickmed/quickmed-backend/api/controllers"
	"github.com/quickmed/quickmed-backend/api/routes"
	"github.com/quickmed/quickmed-backend/internal/address"
	"github.com/quickmed/quickmed-backend/internal/cart"
	medicine "github.com/quickmed/quickmed-backend/internal/medicines"
	"github.com/quickmed/quickmed-backend/internal/orders"
	prescription "github.com/quickmed/quickmed-backend/internal/prescriptions"
	"github.com/quickmed/quickmed-backend/internal/users"
	"github.com/quickmed/quickmed-backend/pkg/auth"
	"github.com/quickmed/quickmed-backend/pkg/config"
	"github.com/quickmed/quickmed-backend/pkg/db"
	"github.com/quickmed/quickmed-backend/pkg/logger"
	"github.com/quickmed/quickmed-backend/pkg/metrics"
	"github.com/quickmed/quickmed-backend/pkg/migrate"
	"github.com/quickmed/quickmed-backend/pkg/redis"
	"github.com/quickmed/quickmed-backend/pkg/storage"
	"github.com/quickmed/quickmed-backend/pkg/storage/s3"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api exited with error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	health := map[string]controllers.Pinger{"db": dbClient}
	deps := routes.Deps{
		Config:   cfg,
		Logger:   logg,
		Verifier: auth.NewVerifier(cfg.JWT),
		Health:   health,
	}

	// Without redis the API still serves; rate limiting and idempotent
	// replay are switched off.
	if cfg.Redis.Enabled() {
		redisClient, redisErr := redis.New(ctx, cfg.Redis, logg)
		if redisErr != nil {
			return redisErr
		}
		defer func() { err = multierr.Append(err, redisClient.Close()) }()
		health["redis"] = redisClient
		deps.RateLimiter = redisClient
		deps.Idempotency = redisClient
	} else {
		logg.Warn(ctx, "redis not configured; rate limiting and idempotency disabled")
	}

	resolver, err := newResolver(ctx, cfg, logg, health)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	deps.Registry = registry

	conn := dbClient.DB()
	medicineRepo := medicine.NewRepository(conn)
	prescriptionRepo := prescription.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)
	userRepo := users.NewRepository(conn)

	if deps.Medicines, err = medicine.NewService(medicineRepo, resolver); err != nil {
		return err
	}
	if deps.Prescriptions, err = prescription.NewService(prescriptionRepo, medicineRepo, resolver, cfg.Prescriptions.DefaultValidity); err != nil {
		return err
	}
	if deps.Users, err = users.NewService(userRepo); err != nil {
		return err
	}
	if deps.Cart, err = cart.NewService(cartRepo, dbClient, medicineRepo, prescriptionRepo); err != nil {
		return err
	}
	deps.Orders, err = orders.NewService(orders.ServiceParams{
		Repo:          orders.NewRepository(conn),
		Tx:            dbClient,
		Carts:         cartRepo,
		Addresses:     address.NewRepository(conn),
		Medicines:     medicineRepo,
		Prescriptions: prescriptionRepo,
		Partners:      userRepo,
		Resolver:      resolver,
		Metrics:       metrics.NewOrderMetrics(registry),
		Logger:        logg,
		Config:        cfg.Orders,
	})
	if err != nil {
		return err
	}

	addr := ":" + cfg.App.Port
	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logCtx := logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "addr": addr})
	logg.Info(logCtx, "starting api server")

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newResolver(ctx context.Context, cfg *config.Config, logg *logger.Logger, health map[string]controllers.Pinger) (storage.Resolver, error) {
	if !strings.EqualFold(strings.TrimSpace(cfg.Storage.Mode), config.StorageModeS3) {
		return storage.NewStaticResolver(cfg.Storage.BaseURL), nil
	}
	resolver, err := s3.New(ctx, cfg.Storage, cfg.AWS, logg)
	if err != nil {
		return nil, err
	}
	health["storage"] = resolver
	return resolver, nil
}
