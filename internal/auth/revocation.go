package auth

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/taskhub/internal/cache"
	"github.com/geocoder89/taskhub/internal/redisclient"
	"github.com/redis/go-redis/v9"
)

// Revoker is the logout blacklist consulted on every authenticated request.
type Revoker interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// MemoryRevoker keeps revoked token ids in process memory. Entries expire with
// the token they revoke; everything is lost on restart.
type MemoryRevoker struct {
	entries *cache.Cache
	now     func() time.Time
}

func NewMemoryRevoker() *MemoryRevoker {
	return &MemoryRevoker{
		entries: cache.New(24 * time.Hour),
		now:     time.Now,
	}
}

func (r *MemoryRevoker) Revoke(_ context.Context, jti string, expiresAt time.Time) error {
	if jti == "" {
		return ErrMissingJTI
	}
	now := r.now().UTC()
	if expiresAt.IsZero() {
		expiresAt = now.Add(24 * time.Hour)
	}
	r.entries.SetUntil(jti, now, expiresAt)
	return nil
}

func (r *MemoryRevoker) IsRevoked(_ context.Context, jti string) (bool, error) {
	_, ok := r.entries.Get(jti)
	return ok, nil
}

// Cleanup discards entries revoked more than maxAge ago along with expired ones.
func (r *MemoryRevoker) Cleanup(maxAge time.Duration) int {
	return r.entries.Sweep(maxAge)
}

func (r *MemoryRevoker) Len() int {
	return r.entries.Len()
}

// RedisRevoker stores revoked ids in Redis so every API process shares them.
// Keys expire when the token would have.
type RedisRevoker struct {
	client *redisclient.Client
	now    func() time.Time
}

func NewRedisRevoker(client *redisclient.Client) *RedisRevoker {
	return &RedisRevoker{client: client, now: time.Now}
}

func revokedKey(jti string) string {
	return "revoked:" + jti
}

func (r *RedisRevoker) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if jti == "" {
		return ErrMissingJTI
	}
	now := r.now().UTC()
	ttl := expiresAt.Sub(now)
	if expiresAt.IsZero() || ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return r.client.Raw().Set(ctx, revokedKey(jti), now.Format(time.RFC3339), ttl).Err()
}

func (r *RedisRevoker) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := r.client.Raw().Get(ctx, revokedKey(jti)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// RunSweeper calls Cleanup every interval until ctx is done. report, when set,
// receives the number of removed and remaining entries after each pass.
func (r *MemoryRevoker) RunSweeper(ctx context.Context, interval, maxAge time.Duration, report func(removed, remaining int)) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := r.Cleanup(maxAge)
			if report != nil {
				report(removed, r.Len())
			}
		}
	}
}
