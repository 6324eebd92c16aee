package gateway

import (
	"time"

	"github.com/hookbill/hookbill/internal/config"
	"github.com/hookbill/hookbill/internal/gateway/adapters"
	"github.com/hookbill/hookbill/internal/gateway/adapters/paypal"
	"github.com/hookbill/hookbill/internal/gateway/verifier"
	"go.uber.org/fx"
)

var Module = fx.Module("gateway",
	fx.Provide(func(cfg config.Config) *adapters.Registry {
		timeout := time.Duration(cfg.VerifyTimeoutSeconds) * time.Second
		return adapters.NewRegistry(
			paypal.NewFactory(timeout),
		)
	}),
	fx.Provide(verifier.New),
)
