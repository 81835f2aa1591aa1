package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"quiz-progress-service/internal/app"
	"quiz-progress-service/internal/auth"
	"quiz-progress-service/internal/domain"
)

type awardRequest struct {
	Points *int `json:"points" validate:"required,gte=0,lte=1000000"` // app.MaxAwardPoints
}

type completeRequest struct {
	Score          int `json:"score" validate:"gte=0"`
	TotalQuestions int `json:"totalQuestions" validate:"gt=0,lte=1000,gtefield=Score"`
}

type levelQuery struct {
	Level   int `validate:"gte=0,lte=4000"` // app.MaxLevel
	TotalXP int `validate:"gte=0"`
}

type triviaQuery struct {
	Amount     int    `validate:"gte=0,lte=50"`
	Category   int    `validate:"gte=0"`
	Difficulty string `validate:"omitempty,oneof=easy medium hard"`
}

func currentUser(r *http.Request) auth.AuthenticatedUser {
	user, _ := auth.UserFromContext(r.Context())
	return user
}

func (h *handler) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid json body", errBadRequest)
	}
	return h.validate.Struct(dst)
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", errBadRequest, name)
	}
	return v, nil
}

func (h *handler) getSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentUser(r))
}

// signOut revokes the token until it expires and drops the user's live store.
// Noop sessions carry no expiry and are never revoked.
func (h *handler) signOut(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	if h.svc.Revocations != nil && !user.ExpiresAt.IsZero() {
		if err := h.svc.Revocations.Revoke(r.Context(), user.SessionID, user.ExpiresAt); err != nil {
			writeError(w, r, fmt.Errorf("revoke session: %w", err))
			return
		}
	}
	h.svc.Progress.Dispose(user.UserID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) getProgress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Progress.Snapshot(r.Context(), currentUser(r).UserID))
}

func (h *handler) awardProgress(w http.ResponseWriter, r *http.Request) {
	var req awardRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	update, err := h.svc.Progress.Award(r.Context(), currentUser(r).UserID, *req.Points)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, update)
}

func (h *handler) resetProgress(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r).UserID
	if err := h.svc.Progress.Reset(r.Context(), userID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Progress.Snapshot(r.Context(), userID))
}

func (h *handler) getLevel(w http.ResponseWriter, r *http.Request) {
	level, err := queryInt(r, "level")
	if err != nil {
		writeError(w, r, err)
		return
	}
	totalXP, err := queryInt(r, "totalXP")
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := levelQuery{Level: level, TotalXP: totalXP}
	if err := h.validate.Struct(q); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app.LevelProgressFor(q.Level, q.TotalXP))
}

func (h *handler) listBadges(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, app.BadgeCatalog())
}

func (h *handler) getTrivia(w http.ResponseWriter, r *http.Request) {
	amount, err := queryInt(r, "amount")
	if err != nil {
		writeError(w, r, err)
		return
	}
	category, err := queryInt(r, "category")
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := triviaQuery{Amount: amount, Category: category, Difficulty: r.URL.Query().Get("difficulty")}
	if err := h.validate.Struct(q); err != nil {
		writeError(w, r, err)
		return
	}
	if q.Amount == 0 {
		q.Amount = h.svc.DefaultQuestionAmount
	}

	questions, err := h.svc.Quizzes.FetchQuestions(r.Context(), domain.QuestionQuery{
		Amount:     q.Amount,
		Category:   q.Category,
		Difficulty: domain.Difficulty(q.Difficulty),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (h *handler) listQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.svc.Quizzes.ListQuizzes(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (h *handler) completeQuiz(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := h.svc.Quizzes.CompleteQuiz(r.Context(), currentUser(r).UserID, chi.URLParam(r, "quizID"), req.Score, req.TotalQuestions)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *handler) getProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.svc.Profiles.GetProfile(r.Context(), currentUser(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *handler) getDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.svc.Profiles.Dashboard(r.Context(), currentUser(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}

func (h *handler) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	board, err := h.svc.Profiles.Leaderboard(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (h *handler) listAchievements(w http.ResponseWriter, r *http.Request) {
	achievements, err := h.svc.Profiles.Achievements(r.Context(), currentUser(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, achievements)
}
