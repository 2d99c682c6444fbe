package migration

import (
	"github.com/basangdata/ingestd/internal/config"
	"github.com/basangdata/ingestd/internal/seed"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, genID *snowflake.Node, cfg config.Config) error {
		if err := RunMigrations(conn); err != nil {
			return err
		}
		return seed.EnsureAdmins(conn, genID, cfg.AdminUserIDs)
	}),
)
