package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "auth:revoked:"

// Revoker keeps logged out token ids in Redis until the token would have expired,
// so every server instance rejects them.
type Revoker struct {
	client redis.UniversalClient
}

func NewRevoker(client redis.UniversalClient) *Revoker {
	return &Revoker{client: client}
}

func (r *Revoker) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if err := r.client.Set(ctx, revokedKeyPrefix+tokenID, 1, ttl).Err(); err != nil {
		return fmt.Errorf("redis revoke token: %w", err)
	}
	return nil
}

func (r *Revoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, revokedKeyPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("redis check revoked token: %w", err)
	}
	return n > 0, nil
}
