package service

import (
	"context"
	"sync"
	"time"

	"github.com/basangdata/ingestd/internal/batch/artifact"
	"github.com/basangdata/ingestd/internal/batch/domain"
	"github.com/basangdata/ingestd/internal/clock"
	"github.com/basangdata/ingestd/internal/config"
	"github.com/basangdata/ingestd/internal/metrics"
	"github.com/basangdata/ingestd/pkg/keylock"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ManagerParam struct {
	fx.In
	Log     *zap.Logger
	Cfg     config.Config
	Clock   clock.Clock
	Metrics *metrics.Metrics
}

type session struct {
	handle   string
	fields   []string
	csv      *artifact.CSVArtifact
	rows     [][]string
	units    int
	openedAt time.Time
}

// manager keeps live sessions in memory. locks serializes operations per
// user so one user's disk writes never stall another's; mu guards only the
// map itself.
type manager struct {
	log     *zap.Logger
	clk     clock.Clock
	metrics *metrics.Metrics
	store   *artifact.Store
	locks   *keylock.KeyLock

	mu       sync.Mutex
	sessions map[snowflake.ID]*session
}

// New builds the in-memory session manager. Sessions do not survive a
// restart; their CSV files on disk do, and stay readable up to the last
// appended row.
func New(p ManagerParam) (domain.Manager, error) {
	store, err := artifact.NewStore(p.Cfg.ArtifactDir)
	if err != nil {
		return nil, err
	}
	return &manager{
		log:      p.Log.Named("batch.manager"),
		clk:      p.Clock,
		metrics:  p.Metrics,
		store:    store,
		locks:    keylock.New(),
		sessions: make(map[snowflake.ID]*session),
	}, nil
}

func (m *manager) Open(ctx context.Context, userID snowflake.ID, fields []string) (domain.Session, error) {
	key := userID.String()
	m.locks.Lock(key)
	defer m.locks.Unlock(key)

	m.mu.Lock()
	_, open := m.sessions[userID]
	m.mu.Unlock()
	if open {
		return domain.Session{}, domain.ErrSessionAlreadyOpen
	}

	handle := m.store.NewHandle()
	csvArtifact, err := m.store.CreateCSV(handle, fields)
	if err != nil {
		return domain.Session{}, err
	}

	now := m.clk.Now()
	m.mu.Lock()
	m.sessions[userID] = &session{
		handle:   handle,
		fields:   fields,
		csv:      csvArtifact,
		openedAt: now,
	}
	m.mu.Unlock()
	m.metrics.BatchSessionsOpen.Inc()
	m.log.Info("session opened",
		zap.String("user_id", userID.String()),
		zap.String("handle", handle),
	)

	return domain.Session{
		UserID:   userID,
		Handle:   handle,
		Fields:   fields,
		OpenedAt: now,
	}, nil
}

func (m *manager) Append(ctx context.Context, userID snowflake.ID, rows [][]string) error {
	key := userID.String()
	m.locks.Lock(key)
	defer m.locks.Unlock(key)

	m.mu.Lock()
	sess, ok := m.sessions[userID]
	m.mu.Unlock()
	if !ok {
		return domain.ErrSessionNotOpen
	}
	if err := sess.csv.Append(rows); err != nil {
		return err
	}
	sess.rows = append(sess.rows, rows...)
	sess.units++
	return nil
}

func (m *manager) IsOpen(userID snowflake.ID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[userID]
	return ok
}

// Close seals the session. The CSV is the contract: once it closes cleanly
// the result carries it, whatever happens to the PDF rendering afterwards.
func (m *manager) Close(ctx context.Context, userID snowflake.ID) (domain.Result, error) {
	key := userID.String()
	m.locks.Lock(key)
	defer m.locks.Unlock(key)

	m.mu.Lock()
	sess, ok := m.sessions[userID]
	if ok {
		delete(m.sessions, userID)
	}
	m.mu.Unlock()

	if !ok {
		return domain.Result{}, domain.ErrSessionNotOpen
	}
	m.metrics.BatchSessionsOpen.Dec()

	if err := sess.csv.Close(); err != nil {
		m.store.Remove(sess.handle)
		return domain.Result{}, err
	}

	result := domain.Result{
		Primary: domain.Artifact{
			Name: sess.handle + ".csv",
			Path: m.store.CSVPath(sess.handle),
		},
		Rows:     len(sess.rows),
		Units:    sess.units,
		OpenedAt: sess.openedAt,
	}

	if err := m.store.RenderPDF(sess.handle, sess.fields, sess.rows); err != nil {
		m.log.Warn("pdf render failed, delivering csv only",
			zap.String("handle", sess.handle),
			zap.Error(err),
		)
		result.SecondaryError = err.Error()
		return result, nil
	}
	result.Secondary = &domain.Artifact{
		Name: sess.handle + ".pdf",
		Path: m.store.PDFPath(sess.handle),
	}

	m.log.Info("session closed",
		zap.String("user_id", userID.String()),
		zap.String("handle", sess.handle),
		zap.Int("rows", result.Rows),
	)
	return result, nil
}

// Discard drops the session and deletes its artifacts.
func (m *manager) Discard(ctx context.Context, userID snowflake.ID) error {
	key := userID.String()
	m.locks.Lock(key)
	defer m.locks.Unlock(key)

	m.mu.Lock()
	sess, ok := m.sessions[userID]
	if ok {
		delete(m.sessions, userID)
	}
	m.mu.Unlock()

	if !ok {
		return domain.ErrSessionNotOpen
	}
	m.metrics.BatchSessionsOpen.Dec()

	sess.csv.Close()
	m.store.Remove(sess.handle)
	m.log.Info("session discarded",
		zap.String("user_id", userID.String()),
		zap.String("handle", sess.handle),
	)
	return nil
}
