package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/clinic-booking-engine/internal/appointment"
	"github.com/hackgods/clinic-booking-engine/internal/config"
	"github.com/hackgods/clinic-booking-engine/internal/db"
	"github.com/hackgods/clinic-booking-engine/internal/dispatch"
	"github.com/hackgods/clinic-booking-engine/internal/logging"
	"github.com/hackgods/clinic-booking-engine/internal/notify"
	redisclient "github.com/hackgods/clinic-booking-engine/internal/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("reminder-worker starting up",
		zap.String("env", cfg.Env),
		zap.Duration("interval", cfg.ReminderInterval),
		zap.Duration("lead_time", cfg.ReminderLeadTime),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg)
	cancelPg()
	if err != nil {
		logger.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	logger.Info("connected to Postgres")

	// Reminders are de-duplicated in Redis, so it is required here.
	rdb, err := redisclient.NewRedisClient(rootCtx, cfg)
	if err != nil {
		logger.Fatal("redis connection error", zap.Error(err))
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Warn("error closing redis", zap.Error(err))
		}
	}()
	logger.Info("connected to Redis")

	notifier, closeNotifier, err := notify.New(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("notifier init error", zap.Error(err))
	}
	defer func() { _ = closeNotifier() }()

	dispatcher := dispatch.New(nil, notifier, dispatch.Options{
		QueueSize: cfg.DispatchQueueSize,
		Workers:   cfg.DispatchWorkers,
	}, logger, nil)
	dispatcher.Start(rootCtx)
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := dispatcher.Close(drainCtx); err != nil {
			logger.Warn("dispatcher did not drain", zap.Error(err))
		}
	}()

	scanner := appointment.NewReminderScanner(
		appointment.NewPgRepository(pgPool),
		dispatcher,
		redisclient.NewMarker(rdb),
		cfg,
		logger,
	)

	// Run once at startup
	runOnce(rootCtx, scanner, logger)

	ticker := time.NewTicker(cfg.ReminderInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info("shutdown signal received, stopping reminder worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, scanner, logger)
		}
	}
}

func runOnce(ctx context.Context, scanner *appointment.ReminderScanner, logger *zap.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	queued, err := scanner.Run(runCtx, start)
	if err != nil {
		logger.Error("reminder run error", zap.Error(err))
		return
	}
	logger.Info("reminder run complete", zap.Int("queued", queued), zap.Duration("took", time.Since(start)))
}
