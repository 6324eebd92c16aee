package audit

import (
	"github.com/hookbill/hookbill/internal/audit/repository"
	"github.com/hookbill/hookbill/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
