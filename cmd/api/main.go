package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/resend/resend-go/v2"

	"github.com/lafabrik/boutique-backend/api/routes"
	authsvc "github.com/lafabrik/boutique-backend/internal/auth"
	checkoutsvc "github.com/lafabrik/boutique-backend/internal/checkout"
	"github.com/lafabrik/boutique-backend/internal/emailqueue"
	ordersvc "github.com/lafabrik/boutique-backend/internal/orders"
	pickupsvc "github.com/lafabrik/boutique-backend/internal/pickup"
	"github.com/lafabrik/boutique-backend/internal/webhooks"
	"github.com/lafabrik/boutique-backend/pkg/config"
	"github.com/lafabrik/boutique-backend/pkg/db"
	"github.com/lafabrik/boutique-backend/pkg/logger"
	"github.com/lafabrik/boutique-backend/pkg/metrics"
	"github.com/lafabrik/boutique-backend/pkg/migrate"
	pkgredis "github.com/lafabrik/boutique-backend/pkg/redis"
	pkgstripe "github.com/lafabrik/boutique-backend/pkg/stripe"
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

	redisClient, err := pkgredis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := pkgstripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	ordersRepo := ordersvc.NewRepository(dbClient.DB())
	tokensRepo := pickupsvc.NewRepository(dbClient.DB())
	emailsRepo := emailqueue.NewRepository(dbClient.DB())
	eventsRepo := webhooks.NewEventsRepository(dbClient.DB())

	emailSender, err := emailqueue.NewSender(emailqueue.SenderParams{
		Orders:         ordersRepo,
		Secrets:        redisClient,
		Transport:      resend.NewClient(cfg.Resend.APIKey).Emails,
		From:           cfg.Resend.DefaultFrom,
		BaseURL:        cfg.App.BaseURL,
		PickupLocation: cfg.Pickup.LocationID,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create email sender", err)
		os.Exit(1)
	}

	emailService, err := emailqueue.NewService(emailqueue.ServiceParams{
		Repo:        emailsRepo,
		Sender:      emailSender,
		Logger:      logg,
		Metrics:     metrics.NewEmailQueueMetrics(prometheus.DefaultRegisterer),
		BatchSize:   cfg.EmailQueue.BatchSize,
		MaxAttempts: cfg.EmailQueue.MaxAttempts,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create email queue service", err)
		os.Exit(1)
	}

	authService, err := authsvc.NewService(cfg.Staff, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	ordersService, err := ordersvc.NewService(ordersRepo, dbClient, emailService)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	pickupService, err := pickupsvc.NewService(tokensRepo, ordersRepo, dbClient, cfg.Pickup.TokenValidityDays)
	if err != nil {
		logg.Error(context.Background(), "failed to create pickup service", err)
		os.Exit(1)
	}

	sessions, err := checkoutsvc.NewSessionCreator(stripeClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe session creator", err)
		os.Exit(1)
	}

	checkoutService, err := checkoutsvc.NewService(checkoutsvc.ServiceParams{
		Orders:           ordersRepo,
		Tx:               dbClient,
		Sessions:         sessions,
		BaseURL:          cfg.App.BaseURL,
		SuccessPath:      cfg.Checkout.SuccessPath,
		CancelPath:       cfg.Checkout.CancelPath,
		PickupLocationID: cfg.Pickup.LocationID,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	webhookService, err := webhooks.NewService(webhooks.ServiceParams{
		Events:         eventsRepo,
		Orders:         ordersRepo,
		Pickup:         pickupService,
		Emails:         emailService,
		Tx:             dbClient,
		Idempotency:    redisClient,
		Secrets:        redisClient,
		Logger:         logg,
		IdempotencyTTL: cfg.Stripe.IdempotencyTTL,
		SecretCacheTTL: cfg.Pickup.SecretCacheTTL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
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
			authService,
			checkoutService,
			pickupService,
			ordersService,
			webhookService,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		<-shutdownCtx.Done()
		timeout, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(timeout); err != nil {
			logg.Error(ctx, "error during shutdown", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "api server shut down gracefully")
}
