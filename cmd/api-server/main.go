package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-booking-engine/internal/api"
	"github.com/hackgods/clinic-booking-engine/internal/appointment"
	"github.com/hackgods/clinic-booking-engine/internal/audit"
	"github.com/hackgods/clinic-booking-engine/internal/config"
	"github.com/hackgods/clinic-booking-engine/internal/db"
	"github.com/hackgods/clinic-booking-engine/internal/dispatch"
	"github.com/hackgods/clinic-booking-engine/internal/logging"
	"github.com/hackgods/clinic-booking-engine/internal/metrics"
	"github.com/hackgods/clinic-booking-engine/internal/notify"
	redisclient "github.com/hackgods/clinic-booking-engine/internal/redis"
	"github.com/hackgods/clinic-booking-engine/internal/schedule"
)

var version = "dev"

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

	logger.Info("api-server starting up",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort),
		zap.String("version", version),
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

	// Redis is optional: without it bookings rely on the store transaction alone.
	var (
		rdb    *goredis.Client
		locker appointment.SlotLocker
	)
	if cfg.RedisAddr != "" {
		rdb, err = redisclient.NewRedisClient(rootCtx, cfg)
		if err != nil {
			logger.Warn("redis unavailable, slot lock disabled", zap.Error(err))
		} else {
			defer func() {
				if err := rdb.Close(); err != nil {
					logger.Warn("error closing redis", zap.Error(err))
				}
			}()
			locker = redisclient.NewSlotLocker(rdb, cfg.LockTTL, cfg.LockWait)
			logger.Info("connected to Redis")
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	bookingMetrics := metrics.NewBookingMetrics(reg)

	notifier, closeNotifier, err := notify.New(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("notifier init error", zap.Error(err))
	}
	defer func() {
		if err := closeNotifier(); err != nil {
			logger.Warn("error closing notifier", zap.Error(err))
		}
	}()

	dispatcher := dispatch.New(audit.NewPgSink(pgPool), notifier, dispatch.Options{
		QueueSize: cfg.DispatchQueueSize,
		Workers:   cfg.DispatchWorkers,
	}, logger, bookingMetrics)
	dispatcher.Start(rootCtx)

	store := appointment.NewPgRepository(pgPool)
	directory := schedule.NewPgDirectory(pgPool)

	router := api.NewRouter(api.RouterConfig{
		Availability:   appointment.NewAvailability(store, directory, cfg),
		Coordinator:    appointment.NewCoordinator(store, directory, locker, dispatcher, cfg, logger).WithMetrics(bookingMetrics),
		Lifecycle:      appointment.NewLifecycle(store, dispatcher, cfg, logger).WithMetrics(bookingMetrics),
		Health:         api.NewHealthHandler(pgPool, rdb, cfg.Env, version),
		Metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Logger:         logger,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-rootCtx.Done()
	logger.Info("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	// Drain side effects of requests that already committed.
	if err := dispatcher.Close(shutdownCtx); err != nil {
		logger.Warn("dispatcher did not drain", zap.Error(err))
	}

	logger.Info("api-server stopped")
}
