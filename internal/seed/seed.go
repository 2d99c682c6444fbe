// Package seed provisions configured accounts at startup so a fresh
// deployment is usable without manual inserts.
package seed

import (
	"errors"

	userdomain "github.com/basangdata/ingestd/internal/user/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// EnsureAdmins creates a user row on the admin tier for every allowlisted
// external identity. Existing rows are promoted, never downgraded.
func EnsureAdmins(conn *gorm.DB, genID *snowflake.Node, adminIDs []string) error {
	for _, externalID := range adminIDs {
		if externalID == "" {
			continue
		}

		var existing userdomain.User
		err := conn.Where("external_id = ?", externalID).First(&existing).Error
		switch {
		case err == nil:
			if existing.Tier != "admin" {
				if err := conn.Model(&existing).Update("tier", "admin").Error; err != nil {
					return err
				}
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			usr := userdomain.User{
				ID:         genID.Generate(),
				ExternalID: externalID,
				Tier:       "admin",
			}
			if err := conn.Create(&usr).Error; err != nil {
				return err
			}
		default:
			return err
		}
	}
	return nil
}
