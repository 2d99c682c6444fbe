package repository

import (
	"context"
	"time"

	activitydomain "github.com/basangdata/ingestd/internal/activity/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func New(db *gorm.DB) activitydomain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTrx(tx *gorm.DB) activitydomain.Repository {
	return &repository{db: tx}
}

func (r *repository) Insert(ctx context.Context, rec *activitydomain.Record) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *repository) CountConsumed(ctx context.Context, userID snowflake.ID, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&activitydomain.Record{}).
		Where("user_id = ? AND timestamp >= ? AND timestamp < ? AND outcome IN ?",
			userID, from, to,
			[]activitydomain.Outcome{activitydomain.OutcomeAccepted, activitydomain.OutcomeFailed}).
		Count(&count).Error
	return count, err
}

func (r *repository) Complete(ctx context.Context, id snowflake.ID, recordsExtracted int, errDetail *string) error {
	values := map[string]any{
		"records_extracted": recordsExtracted,
	}
	if errDetail != nil {
		values["outcome"] = activitydomain.OutcomeFailed
		values["error_detail"] = *errDetail
	}
	return r.db.WithContext(ctx).
		Model(&activitydomain.Record{}).
		Where("id = ?", id).
		Updates(values).Error
}

func (r *repository) Stats(ctx context.Context, dayStart time.Time) (activitydomain.Stats, error) {
	var stats activitydomain.Stats
	db := r.db.WithContext(ctx).Model(&activitydomain.Record{})

	if err := db.Session(&gorm.Session{}).Count(&stats.TotalAttempts).Error; err != nil {
		return stats, err
	}
	if err := db.Session(&gorm.Session{}).
		Where("timestamp >= ?", dayStart).
		Count(&stats.TodayAttempts).Error; err != nil {
		return stats, err
	}
	if err := db.Session(&gorm.Session{}).
		Where("timestamp >= ? AND outcome = ? AND error_detail IS NULL", dayStart, activitydomain.OutcomeAccepted).
		Count(&stats.TodaySucceeded).Error; err != nil {
		return stats, err
	}
	return stats, nil
}
