package invitation

import (
	"github.com/orgforge/orgforge/internal/invitation/repository"
	"github.com/orgforge/orgforge/internal/invitation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invitation.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
