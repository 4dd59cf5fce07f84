package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tutorbase/internal/clock"
	"github.com/smallbiznis/tutorbase/internal/config"
	"github.com/smallbiznis/tutorbase/internal/lock"
	"github.com/smallbiznis/tutorbase/internal/migration"
	"github.com/smallbiznis/tutorbase/internal/observability"
	"github.com/smallbiznis/tutorbase/internal/scheduler"
	"github.com/smallbiznis/tutorbase/internal/server"
	"github.com/smallbiznis/tutorbase/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		lock.Module,

		// Insurance domains and the http api
		server.Module,

		// Background sweeper
		scheduler.Module,
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
