package profile

import (
	"github.com/orgforge/orgforge/internal/profile/repository"
	"github.com/orgforge/orgforge/internal/profile/service"
	"go.uber.org/fx"
)

var Module = fx.Module("profile.attachment",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
