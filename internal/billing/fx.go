package billing

import (
	"github.com/hookbill/hookbill/internal/billing/repository"
	"github.com/hookbill/hookbill/internal/billing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("billing",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
