package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/makolahq/makola-backend/api/routes"
	"github.com/makolahq/makola-backend/internal/cart"
	"github.com/makolahq/makola-backend/internal/catalog"
	checkoutsvc "github.com/makolahq/makola-backend/internal/checkout"
	"github.com/makolahq/makola-backend/internal/coupons"
	"github.com/makolahq/makola-backend/internal/delivery"
	"github.com/makolahq/makola-backend/internal/orders"
	"github.com/makolahq/makola-backend/internal/pricing"
	"github.com/makolahq/makola-backend/internal/sellers"
	paystackwebhook "github.com/makolahq/makola-backend/internal/webhooks/paystack"
	"github.com/makolahq/makola-backend/pkg/config"
	"github.com/makolahq/makola-backend/pkg/db"
	"github.com/makolahq/makola-backend/pkg/logger"
	"github.com/makolahq/makola-backend/pkg/metrics"
	"github.com/makolahq/makola-backend/pkg/migrate"
	"github.com/makolahq/makola-backend/pkg/outbox"
	"github.com/makolahq/makola-backend/pkg/paystack"
	"github.com/makolahq/makola-backend/pkg/redis"
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

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}

	var gateway *paystack.Client
	if cfg.Paystack.SecretKey != "" {
		gateway, err = paystack.NewClient(context.Background(), cfg.Paystack, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap paystack client", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "paystack not configured, gateway payment methods disabled")
	}

	registry := prometheus.NewRegistry()
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	catalogRepo := catalog.NewRepository(dbClient.DB())
	cartRepo := cart.NewRepository(dbClient.DB())
	couponRepo := coupons.NewRepository(dbClient.DB())
	sellerRepo := sellers.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())

	cartService, err := cart.NewService(cartRepo, catalogRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	pricer, err := pricing.NewEngine(couponRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create pricing engine", err)
		os.Exit(1)
	}

	partitioner, err := checkoutsvc.NewPartitioner(delivery.NewCalculator(cfg.Delivery), cfg.Checkout)
	if err != nil {
		logg.Error(context.Background(), "failed to create seller partitioner", err)
		os.Exit(1)
	}

	checkoutService, err := newCheckoutService(dbClient, cartRepo, couponRepo, sellerRepo, pricer, partitioner, outboxService, gateway, checkoutMetrics, logg, cfg.Checkout)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(ordersRepo, dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	webhookService, err := paystackwebhook.NewService(paystackwebhook.ServiceParams{
		OrdersRepo:        ordersRepo,
		TransactionRunner: dbClient,
		Events:            outboxService,
		Idempotency:       redisClient,
		IdempotencyTTL:    cfg.Webhook.IdempotencyTTL,
		Metrics:           checkoutMetrics,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	routerParams := routes.RouterParams{
		Config:          cfg,
		Logger:          logg,
		DB:              dbClient,
		Redis:           redisClient,
		Metrics:         registry,
		CartService:     cartService,
		CheckoutService: checkoutService,
		OrdersService:   ordersService,
		WebhookService:  webhookService,
	}
	if gateway != nil {
		routerParams.WebhookVerifier = gateway
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(routerParams),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	var closeErr error
	closeErr = multierr.Append(closeErr, server.Shutdown(shutdownCtx))
	closeErr = multierr.Append(closeErr, redisClient.Close())
	closeErr = multierr.Append(closeErr, dbClient.Close())
	if closeErr != nil {
		logg.Error(ctx, "shutdown finished with errors", closeErr)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down cleanly")
}

// newCheckoutService passes a literal nil when no gateway is configured; a
// typed nil *paystack.Client would register as a present gateway.
func newCheckoutService(
	dbClient *db.Client,
	cartRepo cart.Repository,
	couponRepo coupons.Repository,
	sellerRepo sellers.Repository,
	pricer *pricing.Engine,
	partitioner *checkoutsvc.Partitioner,
	events *outbox.Service,
	gateway *paystack.Client,
	m *metrics.CheckoutMetrics,
	logg *logger.Logger,
	cfg config.CheckoutConfig,
) (checkoutsvc.Service, error) {
	if gateway == nil {
		return checkoutsvc.NewService(dbClient, cartRepo, couponRepo, sellerRepo, pricer, partitioner, events, nil, m, logg, cfg)
	}
	return checkoutsvc.NewService(dbClient, cartRepo, couponRepo, sellerRepo, pricer, partitioner, events, gateway, m, logg, cfg)
}
