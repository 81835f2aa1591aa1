package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"quiz-progress-service/internal/domain"
)

const (
	// DefaultQuestionAmount is used when a question query leaves Amount unset.
	DefaultQuestionAmount = 10
	// MaxQuestionAmount is the upper bound the trivia API accepts per call.
	MaxQuestionAmount = 50
	// XPPerCorrectAnswer is awarded for each correct answer in a trivia round.
	XPPerCorrectAnswer = 10
	// MaxAttemptQuestions bounds a completed quiz's question count.
	MaxAttemptQuestions = 1000
	// MaxAwardPoints bounds a single manual award.
	MaxAwardPoints = 1_000_000
)

// QuestionSource delivers trivia questions (cached API client, static fixture).
type QuestionSource interface {
	FetchQuestions(ctx context.Context, query domain.QuestionQuery) ([]domain.Question, error)
}

// QuizCatalog lists managed quizzes.
type QuizCatalog interface {
	ListPublished(ctx context.Context) ([]domain.Quiz, error)
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// AttemptRepository records completed quizzes.
type AttemptRepository interface {
	RecordAttempt(ctx context.Context, attempt domain.QuizAttempt) error
	RecentAttempts(ctx context.Context, userID string, limit int) ([]domain.QuizAttempt, error)
}

// QuizService contains the quiz-taking use cases.
type QuizService struct {
	questions QuestionSource
	catalog   QuizCatalog
	attempts  AttemptRepository
	progress  *ProgressRegistry
	now       func() time.Time
	newID     func() string
}

func NewQuizService(questions QuestionSource, catalog QuizCatalog, attempts AttemptRepository, progress *ProgressRegistry) *QuizService {
	return &QuizService{
		questions: questions,
		catalog:   catalog,
		attempts:  attempts,
		progress:  progress,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// NewQuizServiceWithClock is test-only for deterministic timestamps and ids.
func NewQuizServiceWithClock(questions QuestionSource, catalog QuizCatalog, attempts AttemptRepository, progress *ProgressRegistry, now func() time.Time, newID func() string) *QuizService {
	s := NewQuizService(questions, catalog, attempts, progress)
	s.now = now
	s.newID = newID
	return s
}

// FetchQuestions returns a batch of trivia questions.
func (s *QuizService) FetchQuestions(ctx context.Context, query domain.QuestionQuery) ([]domain.Question, error) {
	query, err := normalizeQuery(query)
	if err != nil {
		return nil, err
	}
	return s.questions.FetchQuestions(ctx, query)
}

func normalizeQuery(query domain.QuestionQuery) (domain.QuestionQuery, error) {
	if query.Amount == 0 {
		query.Amount = DefaultQuestionAmount
	}
	if query.Amount < 0 || query.Amount > MaxQuestionAmount {
		return query, fmt.Errorf("%w: amount must be between 1 and %d", domain.ErrInvalidQuery, MaxQuestionAmount)
	}
	if query.Category < 0 {
		return query, fmt.Errorf("%w: negative category", domain.ErrInvalidQuery)
	}
	switch query.Difficulty {
	case "", domain.DifficultyEasy, domain.DifficultyMedium, domain.DifficultyHard:
	default:
		return query, fmt.Errorf("%w: unknown difficulty %q", domain.ErrInvalidQuery, query.Difficulty)
	}
	return query, nil
}

// ListQuizzes returns the published catalog, newest first.
func (s *QuizService) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	return s.catalog.ListPublished(ctx)
}

// CompleteQuiz records a finished quiz and awards its XP to the user's local
// progress. Trivia rounds earn XPPerCorrectAnswer per correct answer; catalog
// quizzes earn their reward scaled by the share of correct answers.
func (s *QuizService) CompleteQuiz(ctx context.Context, userID, quizID string, score, totalQuestions int) (domain.QuizCompletion, error) {
	if totalQuestions <= 0 || totalQuestions > MaxAttemptQuestions || score < 0 || score > totalQuestions {
		return domain.QuizCompletion{}, fmt.Errorf("%w: score %d of %d", domain.ErrInvalidAttempt, score, totalQuestions)
	}

	xp := score * XPPerCorrectAnswer
	if quizID != domain.TriviaQuizID {
		quiz, err := s.catalog.GetQuiz(ctx, quizID)
		if err != nil {
			return domain.QuizCompletion{}, err
		}
		xp = int(int64(quiz.XPReward) * int64(score) / int64(totalQuestions))
	}

	attempt := domain.QuizAttempt{
		ID:             s.newID(),
		UserID:         userID,
		QuizID:         quizID,
		Score:          score,
		TotalQuestions: totalQuestions,
		XPEarned:       xp,
		CompletedAt:    s.now().UTC(),
	}
	if err := s.attempts.RecordAttempt(ctx, attempt); err != nil {
		return domain.QuizCompletion{}, fmt.Errorf("record attempt: %w", err)
	}

	update, err := s.progress.Award(ctx, userID, xp)
	if err != nil {
		return domain.QuizCompletion{}, err
	}

	newBadges := update.NewBadges
	if newBadges == nil {
		newBadges = []domain.Badge{}
	}
	return domain.QuizCompletion{
		Attempt: attempt,
		Progress: domain.ProgressSnapshot{
			ExperiencePoints: update.ExperiencePoints,
			UnlockedBadges:   update.UnlockedBadges,
		},
		NewBadges: newBadges,
	}, nil
}
