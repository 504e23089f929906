// Package main is the entry point for the ledger API. It loads
// configuration, wires the services and serves HTTP until interrupted.
package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"ledgerpay/internal/config"
	"ledgerpay/internal/events"
	"ledgerpay/internal/handlers"
	"ledgerpay/internal/logger"
	"ledgerpay/internal/metrics"
	"ledgerpay/internal/middleware"
	"ledgerpay/internal/models"
	"ledgerpay/internal/repositories"
	"ledgerpay/internal/repositories/cache"
	"ledgerpay/internal/routes"
	"ledgerpay/internal/services/funding"
	"ledgerpay/internal/services/identity"
	"ledgerpay/internal/services/limits"
	"ledgerpay/internal/services/processor"
	"ledgerpay/internal/services/refcode"
	"ledgerpay/internal/services/topup"
	"ledgerpay/internal/services/transfer"
	"ledgerpay/internal/services/wallet"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	cacheTTL        = 5 * time.Minute
	shutdownTimeout = 10 * time.Second
)

func main() {
	config.LoadEnv()
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	db, err := repositories.InitDB(cfg.Database, log)
	if err != nil {
		log.WithError(err).Fatal("database unavailable")
	}
	defer func() {
		if err := repositories.Close(db); err != nil {
			log.WithError(err).Warn("failed to close database")
		}
	}()

	rdb := cache.NewRedisClient(cfg.Redis)
	defer rdb.Close()
	caches := cache.NewCacheService(rdb, cacheTTL)
	if err := caches.HealthCheck(context.Background()); err != nil {
		// Reads fall through to Postgres on every cache error.
		log.WithError(err).Warn("redis unavailable, continuing without a warm cache")
	}

	publisher, err := events.NewPublisher(cfg.Events, log)
	if err != nil {
		log.WithError(err).Fatal("event publisher unavailable")
	}
	defer publisher.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.New(registry)

	limitCfg := limitsConfig(cfg.Ledger)
	if err := limitCfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid transfer limits")
	}

	store := repositories.NewStore(db)
	users := identity.NewService(repositories.NewUserRepository(db, caches))
	client := processor.NewStripeClient(cfg.Stripe.SecretKey, log)

	ledger := wallet.NewService(store, wallet.WalletConfig{
		DefaultCashbackRate: cfg.Ledger.DefaultCashbackRate,
	}, log,
		wallet.WithCache(caches),
		wallet.WithPublisher(publisher),
		wallet.WithMetrics(collector),
	)
	guard := limits.NewGuard(store, limitCfg, log)
	transfers := transfer.NewService(store, ledger, guard, users,
		refcode.New(cfg.Ledger.ReferencePrefix, log),
		transfer.Config{
			FeeRate:      cfg.Ledger.PlatformFeeRate,
			FeeMinAmount: cfg.Ledger.PlatformFeeMinAmount,
		}, log,
		transfer.WithPublisher(publisher),
		transfer.WithMetrics(collector),
	)
	cards := funding.NewService(store, ledger, client, funding.Config{Currency: cfg.Stripe.Currency}, log,
		funding.WithPublisher(publisher),
		funding.WithMetrics(collector),
	)
	topups := topup.NewService(store, ledger, client, topup.Config{
		Currency:  cfg.Stripe.Currency,
		MinAmount: cfg.Ledger.TopUpMinAmount,
		MaxAmount: cfg.Ledger.TopUpMaxAmount,
	}, log, topup.WithPublisher(publisher))

	app := fiber.New(fiber.Config{
		AppName:      "ledgerpay",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.CORSOrigins, ","),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowCredentials: true,
	}))
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	routes.SetupRoutes(app, routes.Handlers{
		Auth:     middleware.NewAuthMiddleware(cfg.JWTSecret, users, log),
		Health:   handlers.Health(db, rdb),
		Wallet:   handlers.NewWalletHandler(ledger, log),
		Transfer: handlers.NewTransferHandler(transfers, guard, log),
		Card:     handlers.NewCardHandler(cards, log),
		TopUp:    handlers.NewTopUpHandler(topups, log),
		Admin:    handlers.NewAdminHandler(ledger, transfers, guard, log),
		Webhook: handlers.NewWebhookHandler(client, cards, topups,
			cfg.Stripe.IssuingWebhookSecret, cfg.Stripe.PaymentsWebhookSecret, log),
		Gatherer:     registry,
		TransferRate: cfg.TransferRate,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			log.WithError(err).Warn("graceful shutdown failed")
		}
	}()

	log.WithField("port", cfg.Port).Info("ledger api listening")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.WithError(err).Error("server stopped")
	}
}

// limitsConfig maps the tier table from the environment onto the guard's
// configuration.
func limitsConfig(cfg config.LedgerConfig) limits.Config {
	out := limits.Config{Tiers: make(map[models.TransferTier]limits.Limits, len(cfg.Tiers))}
	for name, t := range cfg.Tiers {
		out.Tiers[models.TransferTier(name)] = limits.Limits{
			MinPerTransaction: t.MinPerTransaction,
			MaxPerTransaction: t.MaxPerTransaction,
			Daily:             t.Daily,
			Monthly:           t.Monthly,
		}
	}
	return out
}
