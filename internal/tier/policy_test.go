package tier

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPolicyDefaults(t *testing.T) {
	p, err := NewPolicy("", zap.NewNop())
	require.NoError(t, err)

	free, err := p.Lookup("free")
	require.NoError(t, err)
	assert.Equal(t, 5, free.DailyLimit)
	assert.False(t, free.OwnSink)
	assert.False(t, free.BatchCapable)

	gold, err := p.Lookup("gold")
	require.NoError(t, err)
	assert.Equal(t, 150, gold.DailyLimit)
	assert.True(t, gold.OwnSink)
	assert.True(t, gold.BatchCapable)

	admin, err := p.Lookup("admin")
	require.NoError(t, err)
	assert.True(t, admin.Unlimited())

	_, err = p.Lookup("diamond")
	assert.ErrorIs(t, err, ErrUnknownTier)
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	p, err := NewPolicy("", zap.NewNop())
	require.NoError(t, err)

	silver, err := p.Lookup("  Silver ")
	require.NoError(t, err)
	assert.Equal(t, 50, silver.DailyLimit)
}

func TestPolicyLoadsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiers.yaml")
	content := `tiers:
  - name: trial
    dailyLimit: 2
  - name: pro
    dailyLimit: 500
    ownSink: true
    batchCapable: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	p, err := NewPolicy(path, zap.NewNop())
	require.NoError(t, err)

	pro, err := p.Lookup("pro")
	require.NoError(t, err)
	assert.Equal(t, 500, pro.DailyLimit)
	assert.True(t, pro.BatchCapable)

	// File config replaces the defaults wholesale.
	_, err = p.Lookup("free")
	assert.ErrorIs(t, err, ErrUnknownTier)
}

func TestPolicyRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiers.yaml")
	content := `tiers:
  - name: dup
    dailyLimit: 1
  - name: dup
    dailyLimit: 2
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := NewPolicy(path, zap.NewNop())
	assert.Error(t, err)
}

func TestValidateLimits(t *testing.T) {
	assert.Error(t, validate([]Tier{{Name: "bad", DailyLimit: -2}}))
	assert.NoError(t, validate([]Tier{{Name: "ok", DailyLimit: UnlimitedLimit}}))
	assert.NoError(t, validate([]Tier{{Name: "zero", DailyLimit: 0}}))
	assert.Error(t, validate(nil))
}
