package service

import (
	"context"
	"encoding/csv"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/basangdata/ingestd/internal/batch/domain"
	"github.com/basangdata/ingestd/internal/clock"
	"github.com/basangdata/ingestd/internal/config"
	"github.com/basangdata/ingestd/internal/metrics"
	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testMetrics = metrics.New()

func newTestManager(t *testing.T) domain.Manager {
	t.Helper()

	mgr, err := New(ManagerParam{
		Log:     zap.NewNop(),
		Cfg:     config.Config{ArtifactDir: t.TempDir()},
		Clock:   clock.NewFakeClock(time.Date(2025, 3, 10, 4, 0, 0, 0, time.UTC)),
		Metrics: testMetrics,
	})
	require.NoError(t, err)
	return mgr
}

func TestOpenIsExclusivePerUser(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()
	userID := snowflake.ID(1)

	_, err := mgr.Open(ctx, userID, []string{"barang"})
	require.NoError(t, err)

	_, err = mgr.Open(ctx, userID, []string{"barang"})
	assert.ErrorIs(t, err, domain.ErrSessionAlreadyOpen)

	// A different user is unaffected.
	_, err = mgr.Open(ctx, snowflake.ID(2), []string{"barang"})
	require.NoError(t, err)
}

func TestAppendRequiresOpenSession(t *testing.T) {
	mgr := newTestManager(t)

	err := mgr.Append(context.Background(), snowflake.ID(1), [][]string{{"x"}})
	assert.ErrorIs(t, err, domain.ErrSessionNotOpen)
}

func TestCloseWritesArtifacts(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()
	userID := snowflake.ID(3)
	fields := []string{"barang", "harga"}

	_, err := mgr.Open(ctx, userID, fields)
	require.NoError(t, err)
	require.NoError(t, mgr.Append(ctx, userID, [][]string{
		{"Kopi", "25000"},
		{"Teh", "8000"},
	}))

	result, err := mgr.Close(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Rows)
	assert.Equal(t, 1, result.Units)
	assert.Empty(t, result.SecondaryError)
	assert.False(t, mgr.IsOpen(userID))

	f, err := os.Open(result.Primary.Path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, fields, rows[0])
	assert.Equal(t, []string{"Kopi", "25000"}, rows[1])
	assert.Equal(t, []string{"Teh", "8000"}, rows[2])

	require.NotNil(t, result.Secondary)
	info, err := os.Stat(result.Secondary.Path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

// Sessions for distinct users must not serialize behind each other: every
// goroutine drives its own user through a full open-append-close cycle and
// each CSV ends up with exactly that user's rows.
func TestSessionsIndependentAcrossUsers(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()
	const users = 8

	var wg sync.WaitGroup
	results := make([]domain.Result, users)
	errs := make([]error, users)

	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			userID := snowflake.ID(i + 100)
			if _, err := mgr.Open(ctx, userID, []string{"barang"}); err != nil {
				errs[i] = err
				return
			}
			for j := 0; j < 3; j++ {
				if err := mgr.Append(ctx, userID, [][]string{{strconv.Itoa(i)}}); err != nil {
					errs[i] = err
					return
				}
			}
			results[i], errs[i] = mgr.Close(ctx, userID)
		}(i)
	}
	wg.Wait()

	for i := 0; i < users; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, 3, results[i].Rows)

		f, err := os.Open(results[i].Primary.Path)
		require.NoError(t, err)
		rows, err := csv.NewReader(f).ReadAll()
		f.Close()
		require.NoError(t, err)
		require.Len(t, rows, 4)
		for _, row := range rows[1:] {
			assert.Equal(t, []string{strconv.Itoa(i)}, row)
		}
	}
}

func TestCloseWithoutSession(t *testing.T) {
	mgr := newTestManager(t)

	_, err := mgr.Close(context.Background(), snowflake.ID(9))
	assert.ErrorIs(t, err, domain.ErrSessionNotOpen)
}

func TestReopenAfterClose(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()
	userID := snowflake.ID(4)

	_, err := mgr.Open(ctx, userID, []string{"barang"})
	require.NoError(t, err)
	_, err = mgr.Close(ctx, userID)
	require.NoError(t, err)

	_, err = mgr.Open(ctx, userID, []string{"barang"})
	require.NoError(t, err)
}

func TestDiscardRemovesArtifacts(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()
	userID := snowflake.ID(5)

	sess, err := mgr.Open(ctx, userID, []string{"barang"})
	require.NoError(t, err)
	require.NoError(t, mgr.Append(ctx, userID, [][]string{{"Kopi"}}))

	require.NoError(t, mgr.Discard(ctx, userID))
	assert.False(t, mgr.IsOpen(userID))

	impl := mgr.(*manager)
	_, err = os.Stat(impl.store.CSVPath(sess.Handle))
	assert.True(t, os.IsNotExist(err))
}
