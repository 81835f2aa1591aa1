package auth

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// MemoryRevocations keeps revoked sessions in process until their tokens expire.
type MemoryRevocations struct {
	cache *ttlcache.Cache[string, struct{}]
	clock func() time.Time
}

func NewMemoryRevocations() *MemoryRevocations {
	cache := ttlcache.New[string, struct{}]()
	go cache.Start()
	return &MemoryRevocations{cache: cache, clock: time.Now}
}

func (r *MemoryRevocations) Revoke(_ context.Context, sessionID string, until time.Time) error {
	ttl := ttlcache.NoTTL
	if !until.IsZero() {
		ttl = until.Sub(r.clock())
		if ttl <= 0 {
			return nil
		}
	}
	r.cache.Set(sessionID, struct{}{}, ttl)
	return nil
}

func (r *MemoryRevocations) IsRevoked(_ context.Context, sessionID string) (bool, error) {
	item := r.cache.Get(sessionID, ttlcache.WithDisableTouchOnHit[string, struct{}]())
	return item != nil, nil
}

// Stop halts the expiry loop.
func (r *MemoryRevocations) Stop() {
	r.cache.Stop()
}
