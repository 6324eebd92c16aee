package fraud

import (
	"github.com/hookbill/hookbill/internal/fraud/service"
	"go.uber.org/fx"
)

var Module = fx.Module("fraud",
	fx.Provide(service.NewService),
)
