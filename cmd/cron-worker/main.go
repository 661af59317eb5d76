package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/maximegiguere1one/garantiepro-sub004/internal/cron"
	"github.com/maximegiguere1one/garantiepro-sub004/internal/generation"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/config"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/db"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/instance"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/logger"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/metrics"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/migrate"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/redis"
)

const lockScope = "cron-worker"

func main() {
	once := flag.Bool("once", false, "run a single maintenance cycle and exit")
	only := flag.String("jobs", "", "comma separated job names to run (default all)")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

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

	var lock cron.Lock = &cron.LocalLock{}
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		redisLock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockScope, envName(cfg.App.Env)), 2*cfg.Cron.Interval)
		if err != nil {
			logg.Error(context.Background(), "failed to create cron lock", err)
			os.Exit(1)
		}
		lock = redisLock
	} else {
		logg.Warn(context.Background(), "redis not configured, cron lock is local to this process")
	}

	staleJob, err := cron.NewStaleGenerationJob(cron.StaleGenerationJobParams{
		Logger:   logg,
		Statuses: generation.NewStatusRepository(dbClient.DB()),
		After:    cfg.Cron.StaleGenerationAfter,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stale generation job", err)
		os.Exit(1)
	}
	retentionJob, err := cron.NewGenerationErrorRetentionJob(cron.GenerationErrorRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: generation.NewErrorLog(dbClient.DB(), nil),
		Retention:  cfg.Cron.ErrorRetentionDays,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create generation error retention job", err)
		os.Exit(1)
	}

	registry, err := cron.NewRegistry(staleJob, retentionJob).Select(splitJobs(*only)...)
	if err != nil {
		logg.Error(context.Background(), "invalid -jobs selection", err)
		os.Exit(2)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewMaintenanceMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"instance": instance.ID(),
		"interval": cfg.Cron.Interval.String(),
		"once":     *once,
	})

	if *once {
		report, err := service.RunOnce(ctx)
		if err == nil {
			err = report.Err()
		}
		if err != nil {
			logg.Error(ctx, "maintenance cycle failed", err)
			os.Exit(1)
		}
		return
	}

	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func splitJobs(raw string) []string {
	var names []string
	for _, name := range strings.Split(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func envName(env string) string {
	if env == "" {
		return "local"
	}
	return env
}
