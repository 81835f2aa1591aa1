package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"quiz-progress-service/internal/domain"
)

const (
	// MaxLeaderboardSize caps how many profiles a leaderboard returns.
	MaxLeaderboardSize = 100
	// RecentAttemptsLimit is how many attempts the dashboard shows.
	RecentAttemptsLimit = 5
)

// ProfileRepository reads server-side profiles.
type ProfileRepository interface {
	GetProfile(ctx context.Context, userID string) (domain.Profile, error)
	TopProfiles(ctx context.Context, limit int) ([]domain.Profile, error)
}

// AchievementRepository reads achievements awarded to a profile.
type AchievementRepository interface {
	ListUserAchievements(ctx context.Context, userID string) ([]domain.Achievement, error)
}

// ProfileService serves profile, dashboard and leaderboard views. The server
// profile's TotalXP and Level are read as stored; they are never derived from
// or written back to the local progress store.
type ProfileService struct {
	profiles     ProfileRepository
	achievements AchievementRepository
	attempts     AttemptRepository
	progress     *ProgressRegistry
	now          func() time.Time
}

func NewProfileService(profiles ProfileRepository, achievements AchievementRepository, attempts AttemptRepository, progress *ProgressRegistry) *ProfileService {
	return &ProfileService{
		profiles:     profiles,
		achievements: achievements,
		attempts:     attempts,
		progress:     progress,
		now:          time.Now,
	}
}

// GetProfile returns the user's profile.
func (s *ProfileService) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	return s.profiles.GetProfile(ctx, userID)
}

// Achievements returns the server-side achievements awarded to the user.
func (s *ProfileService) Achievements(ctx context.Context, userID string) ([]domain.Achievement, error) {
	achievements, err := s.achievements.ListUserAchievements(ctx, userID)
	if err != nil {
		return nil, err
	}
	if achievements == nil {
		achievements = []domain.Achievement{}
	}
	return achievements, nil
}

// Leaderboard ranks profiles by total XP. Non-positive or oversized limits are
// clamped to MaxLeaderboardSize.
func (s *ProfileService) Leaderboard(ctx context.Context, limit int) (domain.Leaderboard, error) {
	if limit <= 0 || limit > MaxLeaderboardSize {
		limit = MaxLeaderboardSize
	}
	profiles, err := s.profiles.TopProfiles(ctx, limit)
	if err != nil {
		return domain.Leaderboard{}, err
	}

	entries := make([]domain.LeaderboardEntry, 0, len(profiles))
	for i, p := range profiles {
		entries = append(entries, domain.LeaderboardEntry{
			Rank:      i + 1,
			UserID:    p.ID,
			Username:  p.Username,
			TotalXP:   p.TotalXP,
			Level:     p.Level,
			AvatarURL: p.AvatarURL,
		})
	}
	return domain.Leaderboard{Entries: entries, UpdatedAt: s.now().UTC()}, nil
}

// Dashboard loads the profile and recent attempts concurrently and attaches
// level progress and the local progress snapshot.
func (s *ProfileService) Dashboard(ctx context.Context, userID string) (domain.Dashboard, error) {
	var (
		profile  domain.Profile
		attempts []domain.QuizAttempt
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profile, err = s.profiles.GetProfile(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		attempts, err = s.attempts.RecentAttempts(gctx, userID, RecentAttemptsLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Dashboard{}, err
	}
	if attempts == nil {
		attempts = []domain.QuizAttempt{}
	}

	return domain.Dashboard{
		Profile:        profile,
		Level:          LevelProgressFor(profile.Level, profile.TotalXP),
		RecentAttempts: attempts,
		Progress:       s.progress.Snapshot(ctx, userID),
	}, nil
}
