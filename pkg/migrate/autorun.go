package migrate

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/tollwatch-backend/pkg/config"
	"github.com/angelmondragon/tollwatch-backend/pkg/db"
	"github.com/angelmondragon/tollwatch-backend/pkg/db/models"
	"github.com/angelmondragon/tollwatch-backend/pkg/logger"
)

// MaybeRunDev prepares the schema when the app runs in dev mode with the
// auto-migrate flag enabled. Postgres runs the embedded goose migrations;
// sqlite, which the goose SQL does not target, gets a gorm AutoMigrate.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.App.AutoMigrate {
		return nil
	}

	if cfg.DB.IsSQLite() {
		logg.Info(ctx, "running gorm auto-migrate for sqlite (dev auto-run)")
		if err := client.DB().WithContext(ctx).AutoMigrate(models.AlertTables()...); err != nil {
			return fmt.Errorf("sqlite auto-migrate: %w", err)
		}
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dir": EmbeddedDir})
	logg.Info(ctx, "running goose migrations (dev auto-run)")

	var report strings.Builder
	if err := Run(ctx, sqlDB, "", CommandUp, &report); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}
	logg.Info(logg.WithField(ctx, "applied", strings.Count(report.String(), "\n")), "goose migrations completed")
	return nil
}
