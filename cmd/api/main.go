package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/nqtuan-dev/vietshop-backend/api/routes"
	"github.com/nqtuan-dev/vietshop-backend/internal/cart"
	"github.com/nqtuan-dev/vietshop-backend/internal/catalog"
	"github.com/nqtuan-dev/vietshop-backend/internal/checkout"
	"github.com/nqtuan-dev/vietshop-backend/internal/orders"
	"github.com/nqtuan-dev/vietshop-backend/internal/payments"
	"github.com/nqtuan-dev/vietshop-backend/internal/suborders"
	"github.com/nqtuan-dev/vietshop-backend/internal/vouchers"
	"github.com/nqtuan-dev/vietshop-backend/pkg/config"
	"github.com/nqtuan-dev/vietshop-backend/pkg/db"
	"github.com/nqtuan-dev/vietshop-backend/pkg/logger"
	"github.com/nqtuan-dev/vietshop-backend/pkg/migrate"
	"github.com/nqtuan-dev/vietshop-backend/pkg/redis"
)

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

	catalogRepo := catalog.NewRepository(dbClient.DB())
	cartService, err := cart.NewService(redisClient, cart.NewSnapshotRepository(dbClient.DB()), catalogRepo, cfg.Cart.TTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	vouchersService, err := vouchers.NewService(vouchers.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create voucher service", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	ordersService, err := orders.NewService(ordersRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	paymentsRepo := payments.NewRepository(dbClient.DB())
	paymentsService, err := payments.NewService(dbClient, paymentsRepo, logg.Zerolog())
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	subOrdersService, err := suborders.NewService(dbClient, suborders.NewRepository(dbClient.DB()), ordersRepo, paymentsService)
	if err != nil {
		logg.Error(context.Background(), "failed to create suborders service", err)
		os.Exit(1)
	}

	commissionRate, err := cfg.Checkout.CommissionRate()
	if err != nil {
		logg.Error(context.Background(), "invalid commission rate", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(
		dbClient,
		cartService,
		catalogRepo,
		vouchersService,
		ordersRepo,
		paymentsRepo,
		commissionRate,
		logg.Zerolog(),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			cartService,
			checkoutService,
			ordersService,
			subOrdersService,
			paymentsService,
			vouchersService,
		),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "error shutting down api server", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down gracefully")
}
