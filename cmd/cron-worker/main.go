package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/resend/resend-go/v2"

	"github.com/lafabrik/boutique-backend/internal/cron"
	"github.com/lafabrik/boutique-backend/internal/emailqueue"
	ordersvc "github.com/lafabrik/boutique-backend/internal/orders"
	pickupsvc "github.com/lafabrik/boutique-backend/internal/pickup"
	"github.com/lafabrik/boutique-backend/pkg/config"
	"github.com/lafabrik/boutique-backend/pkg/db"
	"github.com/lafabrik/boutique-backend/pkg/logger"
	"github.com/lafabrik/boutique-backend/pkg/metrics"
	"github.com/lafabrik/boutique-backend/pkg/migrate"
	pkgredis "github.com/lafabrik/boutique-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	ordersRepo := ordersvc.NewRepository(dbClient.DB())
	tokensRepo := pickupsvc.NewRepository(dbClient.DB())
	emailsRepo := emailqueue.NewRepository(dbClient.DB())

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

	emailJob, err := cron.NewEmailQueueJob(cron.EmailQueueJobParams{
		Logger: logg,
		Queue:  emailService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create email queue job", err)
		os.Exit(1)
	}

	reminderJob, err := cron.NewPickupReminderJob(cron.PickupReminderJobParams{
		Logger: logg,
		DB:     dbClient,
		Tokens: tokensRepo,
		Orders: ordersRepo,
		Dedupe: emailsRepo,
		Emails: emailService,
		Window: cfg.Pickup.ReminderWindow,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create pickup reminder job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker"), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(emailJob, reminderJob),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
