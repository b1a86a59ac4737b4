package orguser

import (
	"github.com/orgforge/orgforge/internal/orguser/repository"
	"github.com/orgforge/orgforge/internal/orguser/service"
	"go.uber.org/fx"
)

var Module = fx.Module("orguser.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
