package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"quiz-progress-service/internal/domain"
)

// StorageFactory returns the storage scoped to a single user's progress.
type StorageFactory func(userID string) ProgressStorage

// FailureHandlerFactory returns the failure handler for one user's store.
type FailureHandlerFactory func(userID string) FailureHandler

// ProgressRegistry owns one ProgressStore per active user. A store is created
// and initialized on first access and disposed after idleTTL without access,
// on sign-out, or when the registry closes.
type ProgressRegistry struct {
	factory   StorageFactory
	onFailure FailureHandlerFactory

	mu    sync.Mutex
	cache *ttlcache.Cache[string, *ProgressStore]
}

func NewProgressRegistry(factory StorageFactory, idleTTL time.Duration, onFailure FailureHandlerFactory) *ProgressRegistry {
	cache := ttlcache.New[string, *ProgressStore](
		ttlcache.WithTTL[string, *ProgressStore](idleTTL),
	)
	cache.OnEviction(func(_ context.Context, _ ttlcache.EvictionReason, item *ttlcache.Item[string, *ProgressStore]) {
		item.Value().Dispose()
	})
	go cache.Start()

	return &ProgressRegistry{
		factory:   factory,
		onFailure: onFailure,
		cache:     cache,
	}
}

// Get returns the user's store, creating and initializing it if needed.
// Storage reads happen outside the registry lock, so a slow first load only
// blocks callers for the same user.
func (r *ProgressRegistry) Get(ctx context.Context, userID string) *ProgressStore {
	store := r.lookupOrCreate(userID)
	store.Initialize(ctx)
	return store
}

func (r *ProgressRegistry) lookupOrCreate(userID string) *ProgressStore {
	if item := r.cache.Get(userID); item != nil {
		return item.Value()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if item := r.cache.Get(userID); item != nil {
		return item.Value()
	}

	var opts []StoreOption
	if r.onFailure != nil {
		opts = append(opts, WithFailureHandler(r.onFailure(userID)))
	}
	store := NewProgressStore(r.factory(userID), opts...)
	r.cache.Set(userID, store, ttlcache.DefaultTTL)
	return store
}

// Award adds points to the user's progress. A store evicted between lookup and
// use is replaced once.
func (r *ProgressRegistry) Award(ctx context.Context, userID string, points int) (domain.ProgressUpdate, error) {
	update, err := r.Get(ctx, userID).Award(ctx, points)
	if errors.Is(err, domain.ErrStoreDisposed) {
		return r.Get(ctx, userID).Award(ctx, points)
	}
	return update, err
}

// Reset clears the user's progress.
func (r *ProgressRegistry) Reset(ctx context.Context, userID string) error {
	err := r.Get(ctx, userID).Reset(ctx)
	if errors.Is(err, domain.ErrStoreDisposed) {
		return r.Get(ctx, userID).Reset(ctx)
	}
	return err
}

// Snapshot returns the user's current progress.
func (r *ProgressRegistry) Snapshot(ctx context.Context, userID string) domain.ProgressSnapshot {
	return r.Get(ctx, userID).Snapshot(ctx)
}

// Dispose drops the user's store; the next Get rehydrates from storage.
func (r *ProgressRegistry) Dispose(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if item, ok := r.cache.GetAndDelete(userID); ok {
		item.Value().Dispose()
	}
}

// Len reports how many stores are live.
func (r *ProgressRegistry) Len() int {
	return r.cache.Len()
}

// Close disposes every store and stops the expiry loop.
func (r *ProgressRegistry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.cache.Items() {
		item.Value().Dispose()
	}
	r.cache.DeleteAll()
	r.cache.Stop()
}
