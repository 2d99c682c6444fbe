package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

var ErrSinkUnavailable = errors.New("sink_unavailable")

// Row is one delivered record in a destination sink. The shared sink and
// every per-user sink are partitions of the same table, keyed by SinkRef.
type Row struct {
	ID        snowflake.ID               `json:"id" gorm:"primaryKey"`
	SinkRef   string                     `json:"sink_ref" gorm:"index:idx_sink_rows_ref_time;not null"`
	UserID    snowflake.ID               `json:"user_id" gorm:"index"`
	Fields    datatypes.JSONSlice[string] `json:"fields"`
	Values    datatypes.JSONMap          `json:"values"`
	CreatedAt time.Time                  `json:"created_at" gorm:"index:idx_sink_rows_ref_time"`
}

func (Row) TableName() string {
	return "sink_rows"
}

// Sink delivers extracted records to their destination.
type Sink interface {
	AppendRows(ctx context.Context, ref string, rows []Row) error
}
