package identity

import (
	"github.com/orgforge/orgforge/internal/identity/repository"
	"github.com/orgforge/orgforge/internal/identity/service"
	"go.uber.org/fx"
)

var Module = fx.Module("identity.store",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
