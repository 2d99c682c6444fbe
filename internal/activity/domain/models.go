// Package domain contains persistence models for the activity audit trail.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UnitType identifies what kind of item consumed an attempt.
type UnitType string

const (
	UnitImage        UnitType = "image"
	UnitDocumentPage UnitType = "document_page"
	UnitText         UnitType = "text"
)

// Outcome is the attempt-level result.
//
// OutcomeAccepted means the unit was admitted against the user's daily
// quota; the attempt may still fail downstream, in which case the record is
// completed as OutcomeFailed with the failure detail. Both outcomes count as
// consumed quota: an admitted attempt is never refunded. OutcomeRejected is
// reserved for diagnostics and never participates in quota accounting.
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeRejected Outcome = "rejected_by_quota"
	OutcomeFailed   Outcome = "failed"
)

// Record stores a single unit-level attempt. Append-only: rows are written
// by Reserve, completed exactly once, and never deleted.
type Record struct {
	ID               snowflake.ID      `gorm:"primaryKey"`
	UserID           snowflake.ID      `gorm:"not null;index:idx_activity_user_time"`
	UnitType         UnitType          `gorm:"type:text;not null"`
	Outcome          Outcome           `gorm:"type:text;not null;index"`
	RecordsExtracted int               `gorm:"not null;default:0"`
	ErrorDetail      *string           `gorm:"type:text"`
	Metadata         datatypes.JSONMap `gorm:"type:jsonb"`
	Timestamp        time.Time         `gorm:"not null;index:idx_activity_user_time"`
}

// TableName sets the database table name.
func (Record) TableName() string { return "activity_records" }

// Stats is the admin aggregate view.
type Stats struct {
	TotalAttempts  int64 `json:"total_attempts"`
	TodayAttempts  int64 `json:"today_attempts"`
	TodaySucceeded int64 `json:"today_succeeded"`
}

type Repository interface {
	WithTrx(tx *gorm.DB) Repository
	Insert(ctx context.Context, rec *Record) error
	// CountConsumed counts attempts that consumed quota (accepted or
	// failed) for a user in [from, to). Usable inside the reservation
	// transaction via WithTrx.
	CountConsumed(ctx context.Context, userID snowflake.ID, from, to time.Time) (int64, error)
	// Complete finishes an admitted attempt exactly once. A nil errDetail
	// records success; otherwise the record flips to OutcomeFailed.
	Complete(ctx context.Context, id snowflake.ID, recordsExtracted int, errDetail *string) error
	Stats(ctx context.Context, dayStart time.Time) (Stats, error)
}
