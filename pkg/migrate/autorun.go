package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/memorial-backend/pkg/config"
	"github.com/angelmondragon/memorial-backend/pkg/db"
	"github.com/angelmondragon/memorial-backend/pkg/db/models"
	"github.com/angelmondragon/memorial-backend/pkg/logger"
)

// Preparer returns the schema step used by the readiness gate. SQLite stores
// are synced from the models; Postgres runs the embedded goose migrations when
// auto-migrate is enabled.
func Preparer(cfg *config.Config, logg *logger.Logger, client *db.Client) db.PrepareFunc {
	return func(ctx context.Context) error {
		return Prepare(ctx, cfg, logg, client)
	}
}

// Prepare brings the schema up to date. Safe to call repeatedly.
func Prepare(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if client == nil {
		return fmt.Errorf("db client is required")
	}

	if client.Dialect() == db.DialectSQLite {
		if err := client.DB().WithContext(ctx).AutoMigrate(models.All()...); err != nil {
			return fmt.Errorf("sqlite auto-migrate: %w", err)
		}
		if logg != nil {
			logg.Info(logg.WithField(ctx, "dialect", client.Dialect()), "schema synced from models")
		}
		return nil
	}

	if cfg != nil && !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.SQL()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "dialect", client.Dialect()), "running goose migrations")
	}
	if err := UpEmbedded(ctx, sqlDB, client.Dialect()); err != nil {
		return err
	}
	if logg != nil {
		logg.Info(ctx, "goose migrations completed")
	}
	return nil
}
