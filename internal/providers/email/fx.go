package email

import (
	"github.com/orgforge/orgforge/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.email",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config, log *zap.Logger) Provider {
	if cfg.SMTPHost == "" {
		log.Info("smtp not configured, email delivery disabled")
		return &NoOpProvider{}
	}

	provider, err := NewSMTP(Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
	if err != nil {
		log.Warn("smtp provider unavailable, email delivery disabled", zap.Error(err))
		return &NoOpProvider{}
	}
	return provider
}
