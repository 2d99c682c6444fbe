package quota

import (
	"github.com/basangdata/ingestd/internal/quota/service"
	"go.uber.org/fx"
)

var Module = fx.Module("quota.ledger",
	fx.Provide(service.NewService),
)
