package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz is not in the catalog or not published.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrProfileNotFound is returned when no profile row exists for a user.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrInvalidAttempt rejects completions with impossible scores.
	ErrInvalidAttempt = errors.New("invalid quiz attempt")
	// ErrInvalidQuery rejects malformed question queries.
	ErrInvalidQuery = errors.New("invalid question query")
	// ErrStoreDisposed is returned by a progress store after Dispose.
	ErrStoreDisposed = errors.New("progress store disposed")
	// ErrTriviaRateLimited is returned when the trivia API throttles us.
	ErrTriviaRateLimited = errors.New("trivia api rate limited")
	// ErrTriviaUpstream covers any other trivia API failure.
	ErrTriviaUpstream = errors.New("trivia api error")
	// ErrUnauthenticated indicates a missing or invalid session.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrSessionRevoked indicates the session was signed out.
	ErrSessionRevoked = errors.New("session revoked")
)
