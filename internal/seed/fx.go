package seed

import (
	"github.com/orgforge/orgforge/internal/config"
	organizationdomain "github.com/orgforge/orgforge/internal/organization/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("seed",
	fx.Invoke(func(repo organizationdomain.Repository, cfg config.Config, provisioner organizationdomain.Provisioner, log *zap.Logger) error {
		if cfg.IsCloud() || !cfg.Bootstrap.EnsureDefaultOrg {
			return nil
		}
		return EnsureDefaultOrg(repo, cfg, provisioner, log)
	}),
)
