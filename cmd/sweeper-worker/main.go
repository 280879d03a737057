package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nqtuan-dev/vietshop-backend/internal/cart"
	"github.com/nqtuan-dev/vietshop-backend/internal/payments"
	"github.com/nqtuan-dev/vietshop-backend/internal/suborders"
	"github.com/nqtuan-dev/vietshop-backend/internal/sweeper"
	"github.com/nqtuan-dev/vietshop-backend/internal/vouchers"
	"github.com/nqtuan-dev/vietshop-backend/pkg/config"
	"github.com/nqtuan-dev/vietshop-backend/pkg/db"
	"github.com/nqtuan-dev/vietshop-backend/pkg/logger"
	"github.com/nqtuan-dev/vietshop-backend/pkg/metrics"
	"github.com/nqtuan-dev/vietshop-backend/pkg/migrate"
	"github.com/nqtuan-dev/vietshop-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "sweeper-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "sweeper-worker"

	logg = logger.New(logger.Options{
		ServiceName: "sweeper-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	vouchersService, err := vouchers.NewService(vouchers.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create voucher service", err)
		os.Exit(1)
	}

	expirationJob, err := sweeper.NewOrderExpirationJob(
		dbClient,
		suborders.NewRepository(dbClient.DB()),
		payments.NewRepository(dbClient.DB()),
		vouchersService,
		logg.Zerolog(),
		cfg.Sweeper.OrderTTL,
		cfg.Sweeper.ExpirationInterval,
		cfg.Cart.ScanBatchSize,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create order expiration job", err)
		os.Exit(1)
	}

	cartSyncJob, err := sweeper.NewCartIdleSyncJob(
		redisClient,
		cart.NewSnapshotRepository(dbClient.DB()),
		logg.Zerolog(),
		cfg.Cart.IdleThreshold,
		cfg.Cart.SyncInterval,
		cfg.Cart.ScanBatchSize,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart sync job", err)
		os.Exit(1)
	}

	jobMetrics := metrics.NewSweeperJobMetrics(prometheus.DefaultRegisterer)
	var runner *sweeper.Runner
	if cfg.Sweeper.UseDistributedLock {
		runner = sweeper.NewRunner(redisClient, jobMetrics, logg.Zerolog())
	} else {
		runner = sweeper.NewRunner(nil, jobMetrics, logg.Zerolog())
	}
	runner.Register(expirationJob)
	runner.Register(cartSyncJob)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting sweeper worker")

	// Clear any backlog accumulated while the worker was down before
	// settling into the ticker loops.
	runner.RunOnce(ctx, expirationJob)
	runner.Start(ctx)

	logg.Info(ctx, "sweeper worker shutting down gracefully")
}
