package sink

import (
	"github.com/basangdata/ingestd/internal/sink/service"
	"go.uber.org/fx"
)

var Module = fx.Module("sink.rows",
	fx.Provide(service.New),
)
