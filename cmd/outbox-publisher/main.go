package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/maximegiguere1one/garantiepro-sub004/pkg/config"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/db"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/instance"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/logger"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/migrate"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/outbox"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/redis"
)

const serviceName = "outbox-publisher"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})
	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "outbox publisher stopped unexpectedly", err)
		os.Exit(1)
	}
}

// run publishes until SIGINT or SIGTERM. Events need somewhere to go, so
// Redis is mandatory here even though the api can run without it.
func run(cfg *config.Config, logg *logger.Logger) (err error) {
	if !cfg.Redis.Enabled() {
		return errors.New("outbox publisher needs GARANTIE_REDIS_URL or GARANTIE_REDIS_ADDR")
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"instance": instance.ID(),
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()
	if err = migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	var bus *redis.Client
	bus, err = redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, bus.Close()) }()

	var service *Service
	service, err = NewService(ServiceParams{
		Config:     cfg.Outbox,
		Logger:     logg,
		DB:         dbClient,
		Bus:        bus,
		Repository: outbox.NewRepository(dbClient.DB()),
	})
	if err != nil {
		return err
	}

	logg.Info(ctx, "outbox publisher started")
	if err = service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logg.Info(ctx, "outbox publisher stopped")
	return nil
}
