package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"quiz-progress-service/internal/app"
	"quiz-progress-service/internal/auth"
)

// Services are the use cases the router exposes.
type Services struct {
	Progress    *app.ProgressRegistry
	Quizzes     *app.QuizService
	Profiles    *app.ProfileService
	Verifier    auth.Verifier
	Revocations auth.Revocations
	// DefaultQuestionAmount applies when /v1/trivia omits amount.
	DefaultQuestionAmount int
}

type handler struct {
	svc      Services
	validate *validator.Validate
}

// NewRouter builds the HTTP surface. Everything except /healthz requires an
// authenticated session.
func NewRouter(svc Services) *chi.Mux {
	h := &handler{svc: svc, validate: validator.New()}
	ws := NewWSHandler(svc.Progress)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(svc.Verifier, svc.Revocations))

		r.Get("/ws/progress", ws.ServeWS)

		r.Route("/v1", func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))

			r.Get("/session", h.getSession)
			r.Post("/session/signout", h.signOut)

			r.Get("/progress", h.getProgress)
			r.Post("/progress/award", h.awardProgress)
			r.Post("/progress/reset", h.resetProgress)
			r.Get("/level", h.getLevel)
			r.Get("/badges", h.listBadges)

			r.Get("/trivia", h.getTrivia)
			r.Get("/quizzes", h.listQuizzes)
			r.Post("/quizzes/{quizID}/complete", h.completeQuiz)

			r.Get("/profile", h.getProfile)
			r.Get("/dashboard", h.getDashboard)
			r.Get("/leaderboard", h.getLeaderboard)
			r.Get("/achievements", h.listAchievements)
		})
	})
	return r
}
