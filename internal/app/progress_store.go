package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"

	"quiz-progress-service/internal/domain"
)

// Keys under which a progress store persists its two entries.
const (
	XPKey     = "xp"
	BadgesKey = "badges"
)

// ProgressStorage abstracts the durable key/value storage behind a progress
// store (memory, file, SQLite, Redis). Load reports ok=false when the key is absent.
type ProgressStorage interface {
	Load(ctx context.Context, key string) (value string, ok bool, err error)
	Save(ctx context.Context, key, value string) error
	Clear(ctx context.Context, key string) error
}

// FailureHandler receives storage errors the store recovered from.
type FailureHandler func(ctx context.Context, op string, err error)

// StoreOption customizes a ProgressStore.
type StoreOption func(*ProgressStore)

// WithFailureHandler routes recovered storage errors to fn.
func WithFailureHandler(fn FailureHandler) StoreOption {
	return func(s *ProgressStore) {
		if fn != nil {
			s.onFailure = fn
		}
	}
}

// ProgressStore holds one user's experience total and unlocked badges.
// Storage is best-effort: when it fails, the in-memory state stays
// authoritative and the error goes to the FailureHandler only.
type ProgressStore struct {
	storage   ProgressStorage
	onFailure FailureHandler

	mu          sync.Mutex
	initialized bool
	disposed    bool
	xp          int
	badges      []domain.Badge
	subscribers map[chan domain.ProgressUpdate]struct{}
}

func NewProgressStore(storage ProgressStorage, opts ...StoreOption) *ProgressStore {
	s := &ProgressStore{
		storage: storage,
		onFailure: func(ctx context.Context, op string, err error) {
			slog.WarnContext(ctx, "progress storage failure", "op", op, "error", err)
		},
		subscribers: make(map[chan domain.ProgressUpdate]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize rehydrates state from storage. Missing or malformed entries fall
// back to zero XP and no badges. Calling it again is a no-op.
func (s *ProgressStore) Initialize(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initLocked(ctx)
}

func (s *ProgressStore) initLocked(ctx context.Context) {
	if s.initialized {
		return
	}
	s.initialized = true
	s.xp = s.loadXPLocked(ctx)
	s.badges = s.loadBadgesLocked(ctx)
}

func (s *ProgressStore) loadXPLocked(ctx context.Context) int {
	raw, ok, err := s.storage.Load(ctx, XPKey)
	if err != nil {
		s.onFailure(ctx, "load xp", err)
		return 0
	}
	if !ok {
		return 0
	}
	xp, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || xp < 0 {
		return 0
	}
	return xp
}

func (s *ProgressStore) loadBadgesLocked(ctx context.Context) []domain.Badge {
	raw, ok, err := s.storage.Load(ctx, BadgesKey)
	if err != nil {
		s.onFailure(ctx, "load badges", err)
		return nil
	}
	if !ok {
		return nil
	}
	var stored []domain.Badge
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil
	}

	seen := make(map[domain.BadgeID]struct{}, len(stored))
	badges := make([]domain.Badge, 0, len(stored))
	for _, b := range stored {
		if b.ID == "" {
			continue
		}
		if _, dup := seen[b.ID]; dup {
			continue
		}
		seen[b.ID] = struct{}{}
		// Older entries carry no threshold; the catalog is the source of truth.
		if known, ok := LookupBadge(b.ID); ok {
			b = known
		}
		badges = append(badges, b)
	}
	return badges
}

// Award adds points to the experience total and unlocks every badge the new
// total qualifies for. Negative points are treated as zero and the total
// saturates at math.MaxInt.
func (s *ProgressStore) Award(ctx context.Context, points int) (domain.ProgressUpdate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return domain.ProgressUpdate{}, domain.ErrStoreDisposed
	}
	s.initLocked(ctx)

	if points < 0 {
		points = 0
	}
	if points > math.MaxInt-s.xp {
		s.xp = math.MaxInt
	} else {
		s.xp += points
	}
	s.save(ctx, XPKey, strconv.Itoa(s.xp))

	newly := NewlyQualified(s.xp, domain.BadgeIDs(s.badges))
	if len(newly) > 0 {
		s.badges = append(s.badges, newly...)
		s.saveBadgesLocked(ctx)
	}

	update := domain.ProgressUpdate{
		ExperiencePoints: s.xp,
		UnlockedBadges:   s.badgesCopyLocked(),
		NewBadges:        newly,
	}
	s.broadcastLocked(update)
	return update, nil
}

// Reset clears the experience total and badges and deletes both stored entries.
func (s *ProgressStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return domain.ErrStoreDisposed
	}
	s.initialized = true
	s.xp = 0
	s.badges = nil

	// Badges go first: leftover xp alone rehydrates to a consistent state
	// because the next award re-derives its badges.
	if err := s.storage.Clear(ctx, BadgesKey); err != nil {
		s.onFailure(ctx, "clear badges", err)
	}
	if err := s.storage.Clear(ctx, XPKey); err != nil {
		s.onFailure(ctx, "clear xp", err)
	}

	s.broadcastLocked(domain.ProgressUpdate{UnlockedBadges: []domain.Badge{}, Reset: true})
	return nil
}

// Snapshot returns the current state, initializing from storage on first use.
func (s *ProgressStore) Snapshot(ctx context.Context) domain.ProgressSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.disposed {
		s.initLocked(ctx)
	}
	return domain.ProgressSnapshot{
		ExperiencePoints: s.xp,
		UnlockedBadges:   s.badgesCopyLocked(),
	}
}

// Subscribe returns a channel receiving an update after every award or reset.
// The channel is closed by the returned cancel function or by Dispose.
func (s *ProgressStore) Subscribe() (<-chan domain.ProgressUpdate, func()) {
	ch := make(chan domain.ProgressUpdate, 8)

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// Dispose ends the store's lifecycle and closes all subscriber channels.
// Persisted state is left untouched. Dispose is idempotent.
func (s *ProgressStore) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	s.disposed = true
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

func (s *ProgressStore) save(ctx context.Context, key, value string) {
	if err := s.storage.Save(ctx, key, value); err != nil {
		s.onFailure(ctx, "save "+key, err)
	}
}

func (s *ProgressStore) saveBadgesLocked(ctx context.Context) {
	data, err := json.Marshal(s.badges)
	if err != nil {
		s.onFailure(ctx, "encode badges", err)
		return
	}
	s.save(ctx, BadgesKey, string(data))
}

func (s *ProgressStore) badgesCopyLocked() []domain.Badge {
	out := make([]domain.Badge, len(s.badges))
	copy(out, s.badges)
	return out
}

func (s *ProgressStore) broadcastLocked(update domain.ProgressUpdate) {
	for ch := range s.subscribers {
		select {
		case ch <- update:
		default:
			// Slow observer: drop its oldest pending update.
			select {
			case <-ch:
			default:
			}
			ch <- update
		}
	}
}
