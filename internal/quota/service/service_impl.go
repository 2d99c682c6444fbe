package service

import (
	"context"
	"fmt"
	"time"

	activitydomain "github.com/basangdata/ingestd/internal/activity/domain"
	"github.com/basangdata/ingestd/internal/clock"
	"github.com/basangdata/ingestd/internal/config"
	"github.com/basangdata/ingestd/internal/metrics"
	quotadomain "github.com/basangdata/ingestd/internal/quota/domain"
	"github.com/basangdata/ingestd/internal/tier"
	"github.com/basangdata/ingestd/pkg/keylock"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Cfg     config.Config
	Records activitydomain.Repository
	Metrics *metrics.Metrics `optional:"true"`
}

// Service is the quota ledger. Per-user serialization is a keyed mutex held
// across the count-then-append transaction; users never contend with each
// other. A naive read-count-then-later-write would race two concurrent
// reservations past the limit.
type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	records activitydomain.Repository
	metrics *metrics.Metrics

	locks *keylock.KeyLock
	zone  *time.Location
}

func NewService(p ServiceParam) quotadomain.Ledger {
	offset := p.Cfg.QuotaUTCOffsetHours
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("quota.ledger"),
		genID:   p.GenID,
		clock:   p.Clock,
		records: p.Records,
		metrics: p.Metrics,
		locks:   keylock.New(),
		zone:    time.FixedZone(fmt.Sprintf("UTC%+d", offset), offset*3600),
	}
}

func (s *Service) Reserve(ctx context.Context, userID snowflake.ID, t tier.Tier, unit activitydomain.UnitType) (*quotadomain.Reservation, error) {
	key := userID.String()
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	now := s.clock.Now()
	from, to := s.DayWindow(now)

	var res *quotadomain.Reservation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		used, err := s.records.WithTrx(tx).CountConsumed(ctx, userID, from, to)
		if err != nil {
			return err
		}

		if !t.Unlimited() && int(used) >= t.DailyLimit {
			if s.metrics != nil {
				s.metrics.QuotaDeniedTotal.WithLabelValues(t.Name).Inc()
			}
			return &quotadomain.DeniedError{Used: int(used), Limit: t.DailyLimit}
		}

		rec := &activitydomain.Record{
			ID:        s.genID.Generate(),
			UserID:    userID,
			UnitType:  unit,
			Outcome:   activitydomain.OutcomeAccepted,
			Timestamp: now.UTC(),
		}
		if err := s.records.WithTrx(tx).Insert(ctx, rec); err != nil {
			return err
		}

		res = &quotadomain.Reservation{
			RecordID: rec.ID,
			Used:     int(used) + 1,
			Limit:    t.DailyLimit,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug("reservation granted",
		zap.String("user_id", key),
		zap.Int("used", res.Used),
		zap.Int("limit", res.Limit),
	)
	return res, nil
}

func (s *Service) UsedToday(ctx context.Context, userID snowflake.ID, t tier.Tier) (quotadomain.Usage, error) {
	from, to := s.DayWindow(s.clock.Now())
	used, err := s.records.CountConsumed(ctx, userID, from, to)
	if err != nil {
		return quotadomain.Usage{}, err
	}
	return quotadomain.Usage{
		Used:      int(used),
		Limit:     t.DailyLimit,
		Unlimited: t.Unlimited(),
	}, nil
}

func (s *Service) Remaining(ctx context.Context, userID snowflake.ID, t tier.Tier, ceiling int) (int, error) {
	if t.Unlimited() {
		return ceiling, nil
	}
	usage, err := s.UsedToday(ctx, userID, t)
	if err != nil {
		return 0, err
	}
	remaining := usage.Limit - usage.Used
	if remaining < 0 {
		remaining = 0
	}
	if remaining > ceiling {
		remaining = ceiling
	}
	return remaining, nil
}

func (s *Service) CompleteSuccess(ctx context.Context, recordID snowflake.ID, recordsExtracted int) error {
	return s.records.Complete(ctx, recordID, recordsExtracted, nil)
}

func (s *Service) CompleteFailure(ctx context.Context, recordID snowflake.ID, detail string) error {
	return s.records.Complete(ctx, recordID, 0, &detail)
}

// DayWindow shifts now into the fixed offset zone and truncates to
// midnight. No DST, no host timezone.
func (s *Service) DayWindow(now time.Time) (time.Time, time.Time) {
	local := now.In(s.zone)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.zone)
	return start.UTC(), start.Add(24 * time.Hour).UTC()
}
