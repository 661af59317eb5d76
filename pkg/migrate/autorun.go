package migrate

import (
	"context"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/maximegiguere1one/garantiepro-sub004/pkg/config"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/db"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/logger"
)

// MaybeRunDev brings a dev database up to the embedded migrations. It does
// nothing outside dev or when GARANTIE_AUTO_MIGRATE is off; deployed
// environments run cmd/migrate instead.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	dialect := Dialect(cfg.DB.Driver)
	if err := Run(ctx, sqlDB, dialect, "", "up"); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	version, err := goose.GetDBVersionContext(ctx, sqlDB)
	if err != nil {
		return fmt.Errorf("auto-migrate: read version: %w", err)
	}
	logg.Info(logg.WithFields(ctx, map[string]any{
		"dialect": dialect,
		"version": version,
	}), "dev database migrated")
	return nil
}
