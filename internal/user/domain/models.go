// Package domain contains the user model and service contract.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// User is created on first contact and never deleted; downgrading the tier
// is how an account is retired.
type User struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	ExternalID string       `gorm:"type:text;not null;uniqueIndex"`
	Username   *string      `gorm:"type:text"`
	Tier       string       `gorm:"type:text;not null"`

	// SinkRef selects the user's own delivery sink. Null means the
	// default shared sink.
	SinkRef *string `gorm:"type:text"`

	// Template overrides the default extraction field order. Stored as a
	// JSON array of field names; null means the system default.
	Template datatypes.JSONSlice[string] `gorm:"type:jsonb"`

	// CustomPrompt overrides the default extraction prompt.
	CustomPrompt *string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

type GetOrCreateRequest struct {
	ExternalID string  `json:"external_id"`
	Username   *string `json:"username"`
}

type Service interface {
	// GetOrCreate registers the user on first contact. IDs on the admin
	// allowlist are promoted to the admin tier.
	GetOrCreate(ctx context.Context, req GetOrCreateRequest) (*User, bool, error)
	GetByExternalID(ctx context.Context, externalID string) (*User, error)
	SetTier(ctx context.Context, externalID, tierName string) (*User, error)
	SetSinkRef(ctx context.Context, externalID string, sinkRef *string) (*User, error)
	SetTemplate(ctx context.Context, externalID string, fields []string) (*User, error)
	SetCustomPrompt(ctx context.Context, externalID string, prompt *string) (*User, error)
	CountByTier(ctx context.Context) (map[string]int64, error)
}

var (
	ErrNotFound          = errors.New("user_not_found")
	ErrInvalidExternalID = errors.New("invalid_external_id")
	ErrInvalidTemplate   = errors.New("invalid_template")
)
