package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/trashforcoin/internal/clock"
	"github.com/smallbiznis/trashforcoin/internal/config"
	"github.com/smallbiznis/trashforcoin/internal/migration"
	"github.com/smallbiznis/trashforcoin/internal/observability"
	"github.com/smallbiznis/trashforcoin/internal/server"
	"github.com/smallbiznis/trashforcoin/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
