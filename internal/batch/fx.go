package batch

import (
	"github.com/basangdata/ingestd/internal/batch/service"
	"go.uber.org/fx"
)

var Module = fx.Module("batch.manager",
	fx.Provide(service.New),
)
