package activity

import (
	"github.com/basangdata/ingestd/internal/activity/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("activity.store",
	fx.Provide(repository.New),
)
