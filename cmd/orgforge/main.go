package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/orgforge/orgforge/internal/clock"
	"github.com/orgforge/orgforge/internal/config"
	"github.com/orgforge/orgforge/internal/logger"
	"github.com/orgforge/orgforge/internal/migration"
	"github.com/orgforge/orgforge/internal/observability"
	"github.com/orgforge/orgforge/internal/seed"
	"github.com/orgforge/orgforge/internal/server"
	"github.com/orgforge/orgforge/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Schema first, then the HTTP surface, then bootstrap seeding.
		migration.Module,
		server.Module,
		seed.Module,
	)
	app.Run()
}

func RegisterSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
