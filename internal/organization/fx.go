package organization

import (
	"github.com/orgforge/orgforge/internal/organization/repository"
	"github.com/orgforge/orgforge/internal/organization/service"
	"go.uber.org/fx"
)

var Module = fx.Module("organization.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewProvisioner),
)
