package domain

import (
	"strconv"
	"time"
)

// BadgeID identifies a badge in the fixed catalog.
type BadgeID string

// Badge is a named milestone unlocked once cumulative XP crosses ThresholdXP.
type Badge struct {
	ID          BadgeID `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	ThresholdXP int     `json:"thresholdXP"`
}

// BadgeIDs returns the ids of badges in the same order.
func BadgeIDs(badges []Badge) []BadgeID {
	ids := make([]BadgeID, 0, len(badges))
	for _, b := range badges {
		ids = append(ids, b.ID)
	}
	return ids
}

// ProgressSnapshot is a copy of a user's local progression state.
type ProgressSnapshot struct {
	ExperiencePoints int     `json:"experiencePoints"`
	UnlockedBadges   []Badge `json:"unlockedBadges"`
}

// ProgressUpdate is delivered to observers after every award or reset.
type ProgressUpdate struct {
	ExperiencePoints int     `json:"experiencePoints"`
	UnlockedBadges   []Badge `json:"unlockedBadges"`
	NewBadges        []Badge `json:"newBadges,omitempty"`
	Reset            bool    `json:"reset,omitempty"`
}

// LevelProgress describes the position of a total XP value within a level band.
type LevelProgress struct {
	Level                  int     `json:"level"`
	TotalXP                int     `json:"totalXP"`
	XPRequiredForNextLevel int     `json:"xpRequiredForNextLevel"`
	ProgressPercent        float64 `json:"progressPercent"`
}

// Difficulty of a trivia question or catalog quiz.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Question is a single trivia question as delivered by the question source.
type Question struct {
	Category         string   `json:"category"`
	Type             string   `json:"type"`
	Difficulty       string   `json:"difficulty"`
	Question         string   `json:"question"`
	CorrectAnswer    string   `json:"correctAnswer"`
	IncorrectAnswers []string `json:"incorrectAnswers"`
}

// QuestionQuery selects a batch of trivia questions. Zero Category and empty
// Difficulty mean "any".
type QuestionQuery struct {
	Amount     int
	Category   int
	Difficulty Difficulty
}

// Key is a stable cache key for the query.
func (q QuestionQuery) Key() string {
	key := strconv.Itoa(q.Amount) + ":" + strconv.Itoa(q.Category)
	if q.Difficulty != "" {
		key += ":" + string(q.Difficulty)
	}
	return key
}

// TriviaQuizID is the quiz id used for ad-hoc trivia rounds that are not part
// of the managed catalog.
const TriviaQuizID = "trivia"

// Quiz is a managed quiz from the catalog.
type Quiz struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Difficulty  string    `json:"difficulty"`
	XPReward    int       `json:"xpReward"`
	TimeLimit   *int      `json:"timeLimit,omitempty"` // seconds
	IsPublished bool      `json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
}

// QuizAttempt records one completed quiz.
type QuizAttempt struct {
	ID             string    `json:"id"`
	UserID         string    `json:"-"`
	QuizID         string    `json:"quizId"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"totalQuestions"`
	XPEarned       int       `json:"xpEarned"`
	CompletedAt    time.Time `json:"completedAt"`
}

// QuizCompletion is the outcome of finishing a quiz.
type QuizCompletion struct {
	Attempt   QuizAttempt      `json:"attempt"`
	Progress  ProgressSnapshot `json:"progress"`
	NewBadges []Badge          `json:"newBadges"`
}

// Profile is the server-side account record.
type Profile struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	TotalXP   int     `json:"totalXP"`
	Level     int     `json:"level"`
	AvatarURL *string `json:"avatarUrl"`
}

// LeaderboardEntry is a ranked profile.
type LeaderboardEntry struct {
	Rank      int     `json:"rank"`
	UserID    string  `json:"userId"`
	Username  string  `json:"username"`
	TotalXP   int     `json:"totalXP"`
	Level     int     `json:"level"`
	AvatarURL *string `json:"avatarUrl"`
}

// Leaderboard captures profiles ordered by total XP.
type Leaderboard struct {
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// Achievement is a server-side achievement awarded to a profile.
type Achievement struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Dashboard aggregates what the home screen shows.
type Dashboard struct {
	Profile        Profile          `json:"profile"`
	Level          LevelProgress    `json:"level"`
	RecentAttempts []QuizAttempt    `json:"recentAttempts"`
	Progress       ProgressSnapshot `json:"progress"`
}
