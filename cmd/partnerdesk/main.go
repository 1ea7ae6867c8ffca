package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/partnerdesk/internal/clock"
	"github.com/smallbiznis/partnerdesk/internal/config"
	"github.com/smallbiznis/partnerdesk/internal/migration"
	"github.com/smallbiznis/partnerdesk/internal/observability"
	"github.com/smallbiznis/partnerdesk/internal/scheduler"
	"github.com/smallbiznis/partnerdesk/internal/server"
	"github.com/smallbiznis/partnerdesk/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// HTTP API plus the partner, settlement and invoice domains
		server.Module,

		// Monthly close runs in-process unless SCHEDULER_ENABLED=false
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
