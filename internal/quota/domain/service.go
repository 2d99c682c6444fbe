// Package domain defines the quota ledger contract.
package domain

import (
	"context"
	"fmt"
	"time"

	activitydomain "github.com/basangdata/ingestd/internal/activity/domain"
	"github.com/basangdata/ingestd/internal/tier"
	"github.com/bwmarrin/snowflake"
)

// Reservation is a granted attempt. RecordID identifies the activity record
// appended atomically with the grant; the caller must complete it exactly
// once via CompleteSuccess or CompleteFailure.
type Reservation struct {
	RecordID snowflake.ID
	Used     int
	Limit    int
}

// DeniedError reports a reservation denied by the daily limit. Denials are
// not retried automatically; the quota resets at the next day boundary.
type DeniedError struct {
	Used  int
	Limit int
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("quota_denied: used %d of %d", e.Used, e.Limit)
}

// Usage is the read-only quota view.
type Usage struct {
	Used      int  `json:"used"`
	Limit     int  `json:"limit"`
	Unlimited bool `json:"unlimited"`
}

// Ledger enforces the per-user daily unit limit.
//
// Reserve grants iff the tier is unlimited or the user's consumed count for
// the current day window is strictly below the limit. The grant and the
// activity record append are one atomic unit per user: two concurrent
// reservations at limit-1 can never both succeed. Reserve never blocks on
// downstream work.
type Ledger interface {
	Reserve(ctx context.Context, userID snowflake.ID, t tier.Tier, unit activitydomain.UnitType) (*Reservation, error)
	UsedToday(ctx context.Context, userID snowflake.ID, t tier.Tier) (Usage, error)
	// Remaining returns how many more units the user may consume today.
	// Unlimited tiers report the requested ceiling.
	Remaining(ctx context.Context, userID snowflake.ID, t tier.Tier, ceiling int) (int, error)
	CompleteSuccess(ctx context.Context, recordID snowflake.ID, recordsExtracted int) error
	CompleteFailure(ctx context.Context, recordID snowflake.ID, detail string) error
	// DayWindow returns the quota accounting window containing now, in the
	// service's fixed offset zone.
	DayWindow(now time.Time) (from, to time.Time)
}
