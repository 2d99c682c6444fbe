package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/basangdata/ingestd/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const (
	keySubmitUser     = "ingest:submit:user:%s"
	keySubmitDocLock  = "ingest:submit:doclock:%s"
	defaultDocLockTTL = 5 * time.Minute
)

// SubmitLimiter throttles submissions per user at the HTTP boundary. It is
// independent of the daily quota: the quota is the business entitlement,
// this is burst protection. Disabled configs produce a nil limiter and
// every check passes.
type SubmitLimiter struct {
	enabled bool

	bucket *TokenBucket
	locker *Locker

	rate  float64
	burst int
}

func NewSubmitLimiter(cfg config.Config) (*SubmitLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.SubmitRate <= 0 || limitCfg.SubmitBurst <= 0 {
		return nil, errors.New("submit rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})

	return &SubmitLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		locker:  NewLocker(client),
		rate:    limitCfg.SubmitRate,
		burst:   limitCfg.SubmitBurst,
	}, nil
}

func (l *SubmitLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *SubmitLimiter) AllowUser(ctx context.Context, externalID string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	key := fmt.Sprintf(keySubmitUser, strings.TrimSpace(externalID))
	return l.bucket.Allow(ctx, key, l.rate, l.burst)
}

// TryLockDocument guards against a user running two multi-page document
// submissions at once; the quota allocator's prefix math assumes one.
func (l *SubmitLimiter) TryLockDocument(ctx context.Context, externalID string) (string, bool, error) {
	if !l.Enabled() {
		return "", true, nil
	}
	key := fmt.Sprintf(keySubmitDocLock, strings.TrimSpace(externalID))
	return l.locker.TryLock(ctx, key, defaultDocLockTTL)
}

func (l *SubmitLimiter) ReleaseDocument(ctx context.Context, externalID, token string) error {
	if !l.Enabled() {
		return nil
	}
	key := fmt.Sprintf(keySubmitDocLock, strings.TrimSpace(externalID))
	return l.locker.Release(ctx, key, token)
}
