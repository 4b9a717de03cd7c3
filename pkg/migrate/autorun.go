package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/ttml-backend/pkg/config"
	"github.com/angelmondragon/ttml-backend/pkg/db"
	"github.com/angelmondragon/ttml-backend/pkg/logger"
)

// ApplyOnBoot brings a dev database up to date when TTML_DB_AUTO_MIGRATE is set.
// Elsewhere it only warns about pending migrations, which are applied by cmd/migrate.
func ApplyOnBoot(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	runner, err := NewRunner(sqlDB, nil, logg)
	if err != nil {
		return err
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})
	if cfg.App.IsDev() && cfg.DB.AutoMigrate {
		return runner.Up(ctx)
	}

	pending, err := runner.Pending(ctx)
	if err != nil {
		logg.Warn(ctx, "could not check for pending migrations")
		return nil
	}
	if pending {
		logg.Warn(ctx, "database schema is behind the embedded migrations")
	}
	return nil
}
