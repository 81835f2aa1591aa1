package memory

import (
	"context"
	"sort"
	"sync"

	"quiz-progress-service/internal/domain"
)

// ProfileRepository is an in-memory implementation of app.ProfileRepository.
type ProfileRepository struct {
	mu       sync.RWMutex
	profiles map[string]domain.Profile
}

func NewProfileRepository(profiles ...domain.Profile) *ProfileRepository {
	r := &ProfileRepository{profiles: make(map[string]domain.Profile, len(profiles))}
	for _, p := range profiles {
		r.profiles[p.ID] = p
	}
	return r
}

// Upsert inserts or replaces a profile.
func (r *ProfileRepository) Upsert(p domain.Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.ID] = p
}

func (r *ProfileRepository) GetProfile(_ context.Context, userID string) (domain.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[userID]
	if !ok {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	return p, nil
}

func (r *ProfileRepository) TopProfiles(_ context.Context, limit int) ([]domain.Profile, error) {
	r.mu.RLock()
	out := make([]domain.Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalXP != out[j].TotalXP {
			return out[i].TotalXP > out[j].TotalXP
		}
		return out[i].Username < out[j].Username
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// QuizCatalog is an in-memory implementation of app.QuizCatalog.
type QuizCatalog struct {
	quizzes map[string]domain.Quiz
}

func NewQuizCatalog(quizzes ...domain.Quiz) *QuizCatalog {
	c := &QuizCatalog{quizzes: make(map[string]domain.Quiz, len(quizzes))}
	for _, q := range quizzes {
		c.quizzes[q.ID] = q
	}
	return c
}

func (c *QuizCatalog) ListPublished(_ context.Context) ([]domain.Quiz, error) {
	out := make([]domain.Quiz, 0, len(c.quizzes))
	for _, q := range c.quizzes {
		if q.IsPublished {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (c *QuizCatalog) GetQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	q, ok := c.quizzes[quizID]
	if !ok || !q.IsPublished {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return q, nil
}

// AttemptRepository is an in-memory implementation of app.AttemptRepository.
type AttemptRepository struct {
	mu       sync.RWMutex
	attempts map[string][]domain.QuizAttempt
}

func NewAttemptRepository() *AttemptRepository {
	return &AttemptRepository{attempts: make(map[string][]domain.QuizAttempt)}
}

func (r *AttemptRepository) RecordAttempt(_ context.Context, attempt domain.QuizAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts[attempt.UserID] = append(r.attempts[attempt.UserID], attempt)
	return nil
}

func (r *AttemptRepository) RecentAttempts(_ context.Context, userID string, limit int) ([]domain.QuizAttempt, error) {
	r.mu.RLock()
	out := make([]domain.QuizAttempt, len(r.attempts[userID]))
	copy(out, r.attempts[userID])
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CompletedAt.After(out[j].CompletedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// AchievementRepository is an in-memory implementation of app.AchievementRepository.
type AchievementRepository struct {
	mu     sync.RWMutex
	byUser map[string][]domain.Achievement
}

func NewAchievementRepository() *AchievementRepository {
	return &AchievementRepository{byUser: make(map[string][]domain.Achievement)}
}

// Grant awards an achievement to a user.
func (r *AchievementRepository) Grant(userID string, achievement domain.Achievement) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byUser[userID] = append(r.byUser[userID], achievement)
}

func (r *AchievementRepository) ListUserAchievements(_ context.Context, userID string) ([]domain.Achievement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Achievement, len(r.byUser[userID]))
	copy(out, r.byUser[userID])
	return out, nil
}
