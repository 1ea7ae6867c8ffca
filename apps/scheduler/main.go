package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/partnerdesk/internal/audit"
	"github.com/smallbiznis/partnerdesk/internal/clock"
	"github.com/smallbiznis/partnerdesk/internal/config"
	"github.com/smallbiznis/partnerdesk/internal/observability"
	"github.com/smallbiznis/partnerdesk/internal/ratelimit"
	"github.com/smallbiznis/partnerdesk/internal/scheduler"
	"github.com/smallbiznis/partnerdesk/internal/settlement"
	"github.com/smallbiznis/partnerdesk/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Domain services required by scheduler
		audit.Module,
		settlement.Module,
		ratelimit.Module,

		// No server module!
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
