package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revocations records signed-out sessions in Redis until their token expires:
// SET session:revoked:{sessionID} 1 PX {remaining}
type Revocations struct {
	client *redis.Client
	clock  func() time.Time
}

func NewRevocations(client *redis.Client) *Revocations {
	return &Revocations{client: client, clock: time.Now}
}

func (r *Revocations) Revoke(ctx context.Context, sessionID string, until time.Time) error {
	ttl := time.Duration(0)
	if !until.IsZero() {
		ttl = until.Sub(r.clock())
		if ttl <= 0 {
			return nil
		}
	}
	return r.client.Set(ctx, r.key(sessionID), "1", ttl).Err()
}

func (r *Revocations) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(sessionID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *Revocations) key(sessionID string) string {
	return "session:revoked:" + sessionID
}
