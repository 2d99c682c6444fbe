package main

import (
	"github.com/basangdata/ingestd/internal/clock"
	"github.com/basangdata/ingestd/internal/config"
	"github.com/basangdata/ingestd/internal/logger"
	"github.com/basangdata/ingestd/internal/migration"
	"github.com/basangdata/ingestd/internal/server"
	"github.com/basangdata/ingestd/pkg/db"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
