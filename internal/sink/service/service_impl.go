package service

import (
	"context"
	"fmt"

	"github.com/basangdata/ingestd/internal/sink/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In
	DB  *gorm.DB
	Log *zap.Logger
}

type rowSink struct {
	db  *gorm.DB
	log *zap.Logger
}

// New returns the database-backed sink. Rows for every ref land in the same
// table; the ref is the partition key, so per-user sinks cost nothing to
// provision.
func New(p ServiceParam) domain.Sink {
	return &rowSink{
		db:  p.DB,
		log: p.Log.Named("sink.rows"),
	}
}

func (s *rowSink) AppendRows(ctx context.Context, ref string, rows []domain.Row) error {
	if len(rows) == 0 {
		return nil
	}
	for i := range rows {
		rows[i].SinkRef = ref
	}
	if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
		s.log.Error("append rows failed", zap.String("sink_ref", ref), zap.Int("rows", len(rows)), zap.Error(err))
		return fmt.Errorf("%w: %v", domain.ErrSinkUnavailable, err)
	}
	return nil
}
