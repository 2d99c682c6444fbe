package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/basangdata/ingestd/internal/config"
	"github.com/basangdata/ingestd/internal/tier"
	userdomain "github.com/basangdata/ingestd/internal/user/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", ulid.Make().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&userdomain.User{}))
	return db
}

func newServiceOn(t *testing.T, db *gorm.DB, adminIDs ...string) userdomain.Service {
	t.Helper()

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	policy, err := tier.NewPolicy("", zap.NewNop())
	require.NoError(t, err)

	return NewService(ServiceParam{
		DB:     db,
		Log:    zap.NewNop(),
		GenID:  node,
		Cfg:    config.Config{AdminUserIDs: adminIDs},
		Policy: policy,
	})
}

func newTestService(t *testing.T, adminIDs ...string) userdomain.Service {
	return newServiceOn(t, newTestDB(t), adminIDs...)
}

func TestGetOrCreateRegistersOnFirstContact(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	name := "budi"
	usr, created, err := svc.GetOrCreate(ctx, userdomain.GetOrCreateRequest{
		ExternalID: "tg:12345",
		Username:   &name,
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "free", usr.Tier)

	again, created, err := svc.GetOrCreate(ctx, userdomain.GetOrCreateRequest{ExternalID: "tg:12345"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, usr.ID, again.ID)
}

func TestGetOrCreateRejectsEmptyID(t *testing.T) {
	svc := newTestService(t)

	_, _, err := svc.GetOrCreate(context.Background(), userdomain.GetOrCreateRequest{ExternalID: "  "})
	assert.ErrorIs(t, err, userdomain.ErrInvalidExternalID)
}

func TestAllowlistedIDBecomesAdmin(t *testing.T) {
	svc := newTestService(t, "tg:999")
	ctx := context.Background()

	usr, _, err := svc.GetOrCreate(ctx, userdomain.GetOrCreateRequest{ExternalID: "tg:999"})
	require.NoError(t, err)
	assert.Equal(t, "admin", usr.Tier)
}

func TestExistingUserPromotedWhenAllowlisted(t *testing.T) {
	// Registered before the allowlist knew them.
	db := newTestDB(t)
	plain := newServiceOn(t, db)
	ctx := context.Background()
	_, _, err := plain.GetOrCreate(ctx, userdomain.GetOrCreateRequest{ExternalID: "tg:777"})
	require.NoError(t, err)

	svc := newServiceOn(t, db, "tg:777")
	usr, _, err := svc.GetOrCreate(ctx, userdomain.GetOrCreateRequest{ExternalID: "tg:777"})
	require.NoError(t, err)
	assert.Equal(t, "admin", usr.Tier)
}

func TestSetTierValidatesAgainstPolicy(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.GetOrCreate(ctx, userdomain.GetOrCreateRequest{ExternalID: "tg:1"})
	require.NoError(t, err)

	usr, err := svc.SetTier(ctx, "tg:1", "Gold")
	require.NoError(t, err)
	assert.Equal(t, "gold", usr.Tier)

	_, err = svc.SetTier(ctx, "tg:1", "diamond")
	assert.ErrorIs(t, err, tier.ErrUnknownTier)
}

func TestSetTemplateAndPrompt(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.GetOrCreate(ctx, userdomain.GetOrCreateRequest{ExternalID: "tg:2"})
	require.NoError(t, err)

	usr, err := svc.SetTemplate(ctx, "tg:2", []string{"barang", "harga"})
	require.NoError(t, err)
	assert.Equal(t, []string{"barang", "harga"}, []string(usr.Template))

	_, err = svc.SetTemplate(ctx, "tg:2", []string{"barang", " "})
	assert.ErrorIs(t, err, userdomain.ErrInvalidTemplate)

	prompt := "extract every line item"
	usr, err = svc.SetCustomPrompt(ctx, "tg:2", &prompt)
	require.NoError(t, err)
	require.NotNil(t, usr.CustomPrompt)
	assert.Equal(t, prompt, *usr.CustomPrompt)
}

func TestSetSinkRef(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.GetOrCreate(ctx, userdomain.GetOrCreateRequest{ExternalID: "tg:3"})
	require.NoError(t, err)

	ref := "sheet-abc"
	usr, err := svc.SetSinkRef(ctx, "tg:3", &ref)
	require.NoError(t, err)
	require.NotNil(t, usr.SinkRef)
	assert.Equal(t, "sheet-abc", *usr.SinkRef)

	usr, err = svc.SetSinkRef(ctx, "tg:3", nil)
	require.NoError(t, err)
	assert.Nil(t, usr.SinkRef)
}

func TestCountByTier(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, err := svc.GetOrCreate(ctx, userdomain.GetOrCreateRequest{
			ExternalID: fmt.Sprintf("tg:%d", i),
		})
		require.NoError(t, err)
	}
	_, err := svc.SetTier(ctx, "tg:0", "gold")
	require.NoError(t, err)

	counts, err := svc.CountByTier(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, counts["free"])
	assert.EqualValues(t, 1, counts["gold"])
}

func TestGetByExternalIDNotFound(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.GetByExternalID(context.Background(), "tg:missing")
	assert.ErrorIs(t, err, userdomain.ErrNotFound)
}
