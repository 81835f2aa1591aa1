package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"quiz-progress-service/internal/domain"
)

type sessionClaims struct {
	SessionID string `json:"session_id,omitempty"`
	jwt.RegisteredClaims
}

type jwtVerifier struct {
	secret []byte
	opts   []jwt.ParserOption
}

func newJWTVerifier(cfg Config) (Verifier, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt auth requires a secret")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	return &jwtVerifier{secret: []byte(cfg.Secret), opts: opts}, nil
}

func (v *jwtVerifier) Verify(_ context.Context, raw string) (AuthenticatedUser, error) {
	var claims sessionClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, v.opts...)
	if err != nil {
		return AuthenticatedUser{}, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	if !token.Valid || claims.Subject == "" {
		return AuthenticatedUser{}, fmt.Errorf("%w: token has no subject", domain.ErrUnauthenticated)
	}

	sessionID := claims.SessionID
	if sessionID == "" {
		sessionID = claims.ID
	}
	if sessionID == "" {
		sum := sha256.Sum256([]byte(raw))
		sessionID = hex.EncodeToString(sum[:])
	}

	user := AuthenticatedUser{
		UserID:    claims.Subject,
		SessionID: sessionID,
		Token:     raw,
	}
	if claims.ExpiresAt != nil {
		user.ExpiresAt = claims.ExpiresAt.Time
	}
	return user, nil
}
