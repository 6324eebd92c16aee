package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/hookbill/hookbill/internal/audit"
	"github.com/hookbill/hookbill/internal/billing"
	"github.com/hookbill/hookbill/internal/clock"
	"github.com/hookbill/hookbill/internal/config"
	"github.com/hookbill/hookbill/internal/fraud"
	"github.com/hookbill/hookbill/internal/gateway"
	"github.com/hookbill/hookbill/internal/logger"
	"github.com/hookbill/hookbill/internal/migration"
	"github.com/hookbill/hookbill/internal/notify"
	"github.com/hookbill/hookbill/internal/observability"
	"github.com/hookbill/hookbill/internal/ratelimit"
	"github.com/hookbill/hookbill/internal/server"
	"github.com/hookbill/hookbill/pkg/db"
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
		migration.Module,
		ratelimit.Module,

		// Functional domains
		gateway.Module,
		fraud.Module,
		audit.Module,
		notify.Module,
		billing.Module,

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
