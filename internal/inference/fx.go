package inference

import (
	"github.com/basangdata/ingestd/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("inference.client",
	fx.Provide(func(cfg config.Config) Client {
		return New(cfg.Inference)
	}),
)
