package migration

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/pricewise/internal/config"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if !cfg.RunMigrations {
			log.Info("migration.skipped")
			return nil
		}
		if err := Run(conn, cfg.DBType); err != nil {
			return err
		}
		log.Info("migration.applied", zap.String("db_type", cfg.DBType))
		return nil
	}),
)
