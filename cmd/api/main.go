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
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/maximegiguere1one/garantiepro-sub004/api/routes"
	"github.com/maximegiguere1one/garantiepro-sub004/internal/claims"
	"github.com/maximegiguere1one/garantiepro-sub004/internal/documents"
	"github.com/maximegiguere1one/garantiepro-sub004/internal/generation"
	"github.com/maximegiguere1one/garantiepro-sub004/internal/rendering"
	"github.com/maximegiguere1one/garantiepro-sub004/internal/templates"
	"github.com/maximegiguere1one/garantiepro-sub004/internal/warranties"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/config"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/db"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/instance"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/logger"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/metrics"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/migrate"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/outbox"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/redis"
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

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		return err
	}

	deps := routes.Deps{DB: dbClient}
	var locker generation.Locker
	if cfg.Redis.Enabled() {
		var redisClient *redis.Client
		redisClient, err = redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Append(err, redisClient.Close())
		}()
		deps.Redis = redisClient
		var redisLocker *generation.RedisLocker
		redisLocker, err = generation.NewRedisLocker(redisClient, cfg.Documents.LockTTL)
		if err != nil {
			return err
		}
		locker = redisLocker
	} else if cfg.App.IsProd() {
		return errors.New("redis is required in production: set GARANTIE_REDIS_URL or GARANTIE_REDIS_ADDR")
	} else {
		logg.Warn(context.Background(), "redis not configured, concurrent generations of one warranty are not serialized")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	genMetrics := metrics.NewGenerationMetrics(registry)
	deps.Metrics = registry

	loader, err := rendering.NewLoader(rendering.LoaderParams{
		Modules: rendering.DefaultModules{},
		Config: rendering.LoaderConfig{
			SettleDelay:  cfg.Rendering.SettleDelay,
			PollInterval: cfg.Rendering.PollInterval,
			PollRetries:  cfg.Rendering.PollRetries,
		},
		Metrics: genMetrics,
		Logger:  logg,
	})
	if err != nil {
		return err
	}
	deps.Engine = loader

	templateService, err := templates.NewService(templates.NewRepository(dbClient.DB()))
	if err != nil {
		return err
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg, outbox.WithSource("api"))
	statuses := generation.NewStatusRepository(dbClient.DB())
	store := generation.NewDocumentRepository(dbClient.DB(), outboxService)
	deps.Statuses = statuses
	deps.Documents = store

	params := generation.ServiceParams{
		Engine:    loader,
		Renderer:  documents.NewRenderer(documents.Options{Currency: cfg.Documents.Currency, TaxLabel: cfg.Documents.TaxLabel}, logg),
		Statuses:  statuses,
		Store:     store,
		Reporter:  generation.NewErrorLog(dbClient.DB(), outboxService),
		Templates: templateService,
		Locker:    locker,
		Metrics:   genMetrics,
		Limits:    warranties.Limits{MaxPlausible: cfg.Documents.MaxPlausibleAmount},
		Logger:    logg,
	}
	if cfg.Claims.Enabled() {
		claimService, err := claims.NewService(claims.NewRepository(dbClient.DB()), cfg.Claims.BaseURL, cfg.Claims.QRSize)
		if err != nil {
			return err
		}
		params.Claims = claimService
	}
	generator, err := generation.NewService(params)
	if err != nil {
		return err
	}
	deps.Generator = generator

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"claims":   cfg.Claims.Enabled(),
		"instance": instance.ID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-sigCtx.Done():
	}

	logg.Info(ctx, "api server shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
