package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"quiz-progress-service/internal/domain"
)

// ProfileRepository reads profiles from Postgres.
type ProfileRepository struct {
	pool *pgxpool.Pool
}

func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

func (r *ProfileRepository) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	var p domain.Profile
	err := r.pool.QueryRow(ctx,
		`SELECT id, username, total_xp, level, avatar_url FROM profiles WHERE id=$1`, userID,
	).Scan(&p.ID, &p.Username, &p.TotalXP, &p.Level, &p.AvatarURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	if err != nil {
		return domain.Profile{}, fmt.Errorf("load profile: %w", err)
	}
	return p, nil
}

func (r *ProfileRepository) TopProfiles(ctx context.Context, limit int) ([]domain.Profile, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, username, total_xp, level, avatar_url FROM profiles ORDER BY total_xp DESC, username ASC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	var profiles []domain.Profile
	for rows.Next() {
		var p domain.Profile
		if err := rows.Scan(&p.ID, &p.Username, &p.TotalXP, &p.Level, &p.AvatarURL); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}
	return profiles, nil
}

// QuizCatalog reads managed quizzes from Postgres.
type QuizCatalog struct {
	pool *pgxpool.Pool
}

func NewQuizCatalog(pool *pgxpool.Pool) *QuizCatalog {
	return &QuizCatalog{pool: pool}
}

const quizColumns = `id, title, description, difficulty, xp_reward, time_limit, is_published, created_at`

func (c *QuizCatalog) ListPublished(ctx context.Context) ([]domain.Quiz, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT `+quizColumns+` FROM quizzes WHERE is_published ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query quizzes: %w", err)
	}
	defer rows.Close()

	quizzes := []domain.Quiz{}
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		quizzes = append(quizzes, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quizzes: %w", err)
	}
	return quizzes, nil
}

func (c *QuizCatalog) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	q, err := scanQuiz(c.pool.QueryRow(ctx,
		`SELECT `+quizColumns+` FROM quizzes WHERE id=$1 AND is_published`, quizID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return q, err
}

func scanQuiz(row pgx.Row) (domain.Quiz, error) {
	var q domain.Quiz
	err := row.Scan(&q.ID, &q.Title, &q.Description, &q.Difficulty, &q.XPReward, &q.TimeLimit, &q.IsPublished, &q.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, err
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("scan quiz: %w", err)
	}
	return q, nil
}

// AttemptRepository stores completed quizzes in user_quiz_attempts.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

func (r *AttemptRepository) RecordAttempt(ctx context.Context, a domain.QuizAttempt) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO user_quiz_attempts (id, user_id, quiz_id, score, total_questions, xp_earned, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.UserID, a.QuizID, a.Score, a.TotalQuestions, a.XPEarned, a.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func (r *AttemptRepository) RecentAttempts(ctx context.Context, userID string, limit int) ([]domain.QuizAttempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id::text, user_id, quiz_id, score, total_questions, xp_earned, completed_at
		 FROM user_quiz_attempts WHERE user_id=$1 ORDER BY completed_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var attempts []domain.QuizAttempt
	for rows.Next() {
		var a domain.QuizAttempt
		if err := rows.Scan(&a.ID, &a.UserID, &a.QuizID, &a.Score, &a.TotalQuestions, &a.XPEarned, &a.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return attempts, nil
}

// AchievementRepository reads achievements awarded through user_achievements.
type AchievementRepository struct {
	pool *pgxpool.Pool
}

func NewAchievementRepository(pool *pgxpool.Pool) *AchievementRepository {
	return &AchievementRepository{pool: pool}
}

func (r *AchievementRepository) ListUserAchievements(ctx context.Context, userID string) ([]domain.Achievement, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.name, a.description, a.icon
		 FROM user_achievements ua
		 JOIN achievements a ON a.id = ua.achievement_id
		 WHERE ua.user_id=$1
		 ORDER BY ua.earned_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query achievements: %w", err)
	}
	defer rows.Close()

	achievements := []domain.Achievement{}
	for rows.Next() {
		var a domain.Achievement
		if err := rows.Scan(&a.ID, &a.Name, &a.Description, &a.Icon); err != nil {
			return nil, fmt.Errorf("scan achievement: %w", err)
		}
		achievements = append(achievements, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate achievements: %w", err)
	}
	return achievements, nil
}
