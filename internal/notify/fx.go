package notify

import (
	"github.com/hookbill/hookbill/internal/notify/service"
	"go.uber.org/fx"
)

var Module = fx.Module("notify",
	fx.Provide(service.NewService),
)
