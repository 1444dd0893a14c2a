package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/smallbiznis/pricewise/internal/category"
	"github.com/smallbiznis/pricewise/internal/clock"
	"github.com/smallbiznis/pricewise/internal/config"
	"github.com/smallbiznis/pricewise/internal/item"
	"github.com/smallbiznis/pricewise/internal/lock"
	"github.com/smallbiznis/pricewise/internal/matching"
	"github.com/smallbiznis/pricewise/internal/metricspush"
	"github.com/smallbiznis/pricewise/internal/migration"
	"github.com/smallbiznis/pricewise/internal/observability"
	"github.com/smallbiznis/pricewise/internal/scheduler"
	"github.com/smallbiznis/pricewise/pkg/db"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		lock.Module,
		migration.Module,
		metricspush.Module,

		// Functional Domains
		category.Module,
		item.Module,
		matching.Module,
		scheduler.Module,

		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
