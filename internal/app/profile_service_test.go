package app_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"quiz-progress-service/internal/app"
	"quiz-progress-service/internal/domain"
	"quiz-progress-service/internal/infra/memory"
)

func newProfileFixture(t *testing.T) (*app.ProfileService, *memory.ProfileRepository, *memory.AttemptRepository, *memory.AchievementRepository, *app.ProgressRegistry) {
	t.Helper()
	registry, _ := newRegistry(t, time.Minute)
	profiles := memory.NewProfileRepository(
		domain.Profile{ID: "u1", Username: "ada", TotalXP: 150, Level: 2},
		domain.Profile{ID: "u2", Username: "bob", TotalXP: 900, Level: 3},
		domain.Profile{ID: "u3", Username: "cy", TotalXP: 150, Level: 2},
	)
	attempts := memory.NewAttemptRepository()
	achievements := memory.NewAchievementRepository()
	return app.NewProfileService(profiles, achievements, attempts, registry), profiles, attempts, achievements, registry
}

func TestLeaderboardRanksByXP(t *testing.T) {
	service, _, _, _, _ := newProfileFixture(t)

	board, err := service.Leaderboard(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, board.Entries, 3)
	require.Equal(t, "u2", board.Entries[0].UserID)
	require.Equal(t, 1, board.Entries[0].Rank)
	require.Equal(t, "ada", board.Entries[1].Username)
	require.Equal(t, "cy", board.Entries[2].Username)
	require.Equal(t, 3, board.Entries[2].Rank)
	require.False(t, board.UpdatedAt.IsZero())
}

func TestLeaderboardClampsLimit(t *testing.T) {
	service, profiles, _, _, _ := newProfileFixture(t)
	for i := 0; i < 120; i++ {
		profiles.Upsert(domain.Profile{ID: fmt.Sprintf("x%03d", i), Username: fmt.Sprintf("user%03d", i), TotalXP: i})
	}

	board, err := service.Leaderboard(context.Background(), 1000)
	require.NoError(t, err)
	require.Len(t, board.Entries, app.MaxLeaderboardSize)

	board, err = service.Leaderboard(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, board.Entries, 2)
}

func TestDashboardCombinesProfileAndProgress(t *testing.T) {
	ctx := context.Background()
	service, _, attempts, _, registry := newProfileFixture(t)

	for i := 0; i < 7; i++ {
		require.NoError(t, attempts.RecordAttempt(ctx, domain.QuizAttempt{
			ID: fmt.Sprintf("a%d", i), UserID: "u1", QuizID: "trivia",
			CompletedAt: fixedNow.Add(time.Duration(i) * time.Minute),
		}))
	}
	_, err := registry.Award(ctx, "u1", 55)
	require.NoError(t, err)

	dash, err := service.Dashboard(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "ada", dash.Profile.Username)
	require.Equal(t, 400, dash.Level.XPRequiredForNextLevel)
	require.InDelta(t, 37.5, dash.Level.ProgressPercent, 1e-9)
	require.Len(t, dash.RecentAttempts, app.RecentAttemptsLimit)
	require.Equal(t, "a6", dash.RecentAttempts[0].ID)
	// Local progress is independent of the profile's XP.
	require.Equal(t, 55, dash.Progress.ExperiencePoints)
	require.Equal(t, 150, dash.Profile.TotalXP)
}

func TestDashboardUnknownProfile(t *testing.T) {
	service, _, _, _, _ := newProfileFixture(t)

	_, err := service.Dashboard(context.Background(), "ghost")
	require.ErrorIs(t, err, domain.ErrProfileNotFound)
}

func TestAchievementsNeverNil(t *testing.T) {
	ctx := context.Background()
	service, _, _, achievements, _ := newProfileFixture(t)

	got, err := service.Achievements(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)

	achievements.Grant("u1", domain.Achievement{ID: "first_quiz", Name: "First Quiz"})
	got, err = service.Achievements(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 1)
}
