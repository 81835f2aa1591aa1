package http

import (
	"net/http/httptest"
	"testing"
	"time"

	"quiz-progress-service/internal/app"
	"quiz-progress-service/internal/auth"
	"quiz-progress-service/internal/domain"
	"quiz-progress-service/internal/infra/memory"
)

type testEnv struct {
	server       *httptest.Server
	registry     *app.ProgressRegistry
	profiles     *memory.ProfileRepository
	achievements *memory.AchievementRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	storages := memory.NewProgressStorageSet()
	registry := app.NewProgressRegistry(func(userID string) app.ProgressStorage {
		return storages.For(userID)
	}, time.Minute, nil)
	t.Cleanup(registry.Close)

	profiles := memory.NewProfileRepository(
		domain.Profile{ID: "u1", Username: "ada", TotalXP: 150, Level: 2},
		domain.Profile{ID: "u2", Username: "bob", TotalXP: 400, Level: 3},
	)
	attempts := memory.NewAttemptRepository()
	achievements := memory.NewAchievementRepository()
	catalog := memory.NewQuizCatalog(domain.Quiz{
		ID: "q-1", Title: "Phrasal verbs", Difficulty: "easy", XPReward: 100, IsPublished: true,
		CreatedAt: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
	})
	questions := memory.NewQuestionCache(memory.NewStaticQuestionLoader([]domain.Question{
		{Category: "General", Type: "multiple", Difficulty: "easy", Question: "2 + 2?", CorrectAnswer: "4", IncorrectAnswers: []string{"3", "5", "22"}},
		{Category: "General", Type: "multiple", Difficulty: "hard", Question: "sqrt(2)?", CorrectAnswer: "1.414", IncorrectAnswers: []string{"1.5", "1.3", "2"}},
	}), time.Minute)

	verifier, err := auth.NewVerifier(auth.Config{Mode: auth.ModeNoop})
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}
	revocations := auth.NewMemoryRevocations()
	t.Cleanup(revocations.Stop)

	router := NewRouter(Services{
		Progress:              registry,
		Quizzes:               app.NewQuizService(questions, catalog, attempts, registry),
		Profiles:              app.NewProfileService(profiles, achievements, attempts, registry),
		Verifier:              verifier,
		Revocations:           revocations,
		DefaultQuestionAmount: 10,
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testEnv{server: server, registry: registry, profiles: profiles, achievements: achievements}
}
