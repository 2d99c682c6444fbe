package migration

import (
	"errors"

	activitydomain "github.com/basangdata/ingestd/internal/activity/domain"
	sinkdomain "github.com/basangdata/ingestd/internal/sink/domain"
	userdomain "github.com/basangdata/ingestd/internal/user/domain"
	"gorm.io/gorm"
)

// RunMigrations creates the full schema on startup so local and
// self-hosted deployments work out of the box, on both postgres and
// sqlite.
func RunMigrations(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	return conn.AutoMigrate(
		&userdomain.User{},
		&activitydomain.Record{},
		&sinkdomain.Row{},
	)
}
