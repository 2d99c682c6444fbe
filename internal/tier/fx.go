package tier

import (
	"github.com/basangdata/ingestd/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("tier.policy",
	fx.Provide(func(cfg config.Config, log *zap.Logger) (*Policy, error) {
		return NewPolicy(cfg.TierPolicyPath, log)
	}),
)
