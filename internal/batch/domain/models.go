package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrSessionAlreadyOpen = errors.New("batch_session_already_open")
	ErrSessionNotOpen     = errors.New("batch_session_not_open")
	ErrNotEligible        = errors.New("batch_not_eligible")
)

// Artifact is a finished batch file on disk.
type Artifact struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Result is what a closed session yields. Primary is always set when Close
// succeeds; Secondary is nil when the richer rendering failed, in which
// case SecondaryError carries the reason and the primary is still
// delivered.
type Result struct {
	Primary        Artifact  `json:"primary"`
	Secondary      *Artifact `json:"secondary,omitempty"`
	SecondaryError string    `json:"secondary_error,omitempty"`
	Rows           int       `json:"rows"`
	Units          int       `json:"units"`
	OpenedAt       time.Time `json:"opened_at"`
}

// Session is the public view of an open collection window.
type Session struct {
	UserID   snowflake.ID `json:"user_id"`
	Handle   string       `json:"handle"`
	Fields   []string     `json:"fields"`
	Rows     int          `json:"rows"`
	Units    int          `json:"units"`
	OpenedAt time.Time    `json:"opened_at"`
}

// Manager owns at most one open session per user.
type Manager interface {
	Open(ctx context.Context, userID snowflake.ID, fields []string) (Session, error)
	Append(ctx context.Context, userID snowflake.ID, rows [][]string) error
	IsOpen(userID snowflake.ID) bool
	Close(ctx context.Context, userID snowflake.ID) (Result, error)
	Discard(ctx context.Context, userID snowflake.ID) error
}
