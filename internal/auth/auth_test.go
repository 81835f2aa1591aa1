package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"quiz-progress-service/internal/domain"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims sessionClaims, method jwt.SigningMethod, key interface{}) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func validClaims(expires time.Time) sessionClaims {
	return sessionClaims{
		SessionID: "sess-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    "https://auth.example.com",
			Audience:  jwt.ClaimStrings{"quiz-progress"},
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
}

func newTestJWTVerifier(t *testing.T) Verifier {
	t.Helper()
	v, err := NewVerifier(Config{Mode: ModeJWT, Secret: testSecret, Issuer: "https://auth.example.com", Audience: "quiz-progress"})
	require.NoError(t, err)
	return v
}

func TestJWTVerifierAcceptsValidToken(t *testing.T) {
	verifier := newTestJWTVerifier(t)
	expires := time.Now().Add(time.Hour).Truncate(time.Second)
	raw := signToken(t, validClaims(expires), jwt.SigningMethodHS256, []byte(testSecret))

	user, err := verifier.Verify(context.Background(), raw)
	require.NoError(t, err)
	require.Equal(t, "user-1", user.UserID)
	require.Equal(t, "sess-1", user.SessionID)
	require.True(t, expires.Equal(user.ExpiresAt))
	require.Equal(t, raw, user.Token)
}

func TestJWTVerifierRejectsBadTokens(t *testing.T) {
	verifier := newTestJWTVerifier(t)
	future := time.Now().Add(time.Hour)

	wrongIssuer := validClaims(future)
	wrongIssuer.Issuer = "https://evil.example.com"
	noSubject := validClaims(future)
	noSubject.Subject = ""
	noExpiry := validClaims(future)
	noExpiry.ExpiresAt = nil

	cases := map[string]string{
		"expired":      signToken(t, validClaims(time.Now().Add(-time.Minute)), jwt.SigningMethodHS256, []byte(testSecret)),
		"wrong secret": signToken(t, validClaims(future), jwt.SigningMethodHS256, []byte("other")),
		"wrong alg":    signToken(t, validClaims(future), jwt.SigningMethodHS512, []byte(testSecret)),
		"wrong issuer": signToken(t, wrongIssuer, jwt.SigningMethodHS256, []byte(testSecret)),
		"no subject":   signToken(t, noSubject, jwt.SigningMethodHS256, []byte(testSecret)),
		"no expiry":    signToken(t, noExpiry, jwt.SigningMethodHS256, []byte(testSecret)),
		"garbage":      "not.a.jwt",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := verifier.Verify(context.Background(), raw)
			require.ErrorIs(t, err, domain.ErrUnauthenticated)
		})
	}
}

func TestJWTVerifierFallsBackToTokenIDForSession(t *testing.T) {
	verifier := newTestJWTVerifier(t)
	claims := validClaims(time.Now().Add(time.Hour))
	claims.SessionID = ""
	claims.ID = "jti-9"

	user, err := verifier.Verify(context.Background(), signToken(t, claims, jwt.SigningMethodHS256, []byte(testSecret)))
	require.NoError(t, err)
	require.Equal(t, "jti-9", user.SessionID)
}

func TestNewVerifier(t *testing.T) {
	_, err := NewVerifier(Config{Mode: ModeJWT})
	require.Error(t, err)

	_, err = NewVerifier(Config{Mode: "saml"})
	require.Error(t, err)

	v, err := NewVerifier(Config{})
	require.NoError(t, err)
	user, err := v.Verify(context.Background(), "u-42")
	require.NoError(t, err)
	require.Equal(t, "u-42", user.UserID)
}

func TestMiddleware(t *testing.T) {
	verifier, err := NewVerifier(Config{Mode: ModeNoop})
	require.NoError(t, err)
	revocations := NewMemoryRevocations()
	defer revocations.Stop()
	require.NoError(t, revocations.Revoke(context.Background(), "revoked-user", time.Now().Add(time.Hour)))

	handler := Middleware(verifier, revocations)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(user.UserID))
	}))

	cases := []struct {
		name   string
		setup  func(r *http.Request)
		status int
		body   string
	}{
		{name: "bearer", setup: func(r *http.Request) { r.Header.Set("Authorization", "Bearer u1") }, status: http.StatusOK, body: "u1"},
		{name: "user header", setup: func(r *http.Request) { r.Header.Set("X-User-ID", "u2") }, status: http.StatusOK, body: "u2"},
		{name: "query token", setup: func(r *http.Request) { r.URL.RawQuery = "access_token=u3" }, status: http.StatusOK, body: "u3"},
		{name: "missing", setup: func(*http.Request) {}, status: http.StatusUnauthorized},
		{name: "malformed", setup: func(r *http.Request) { r.Header.Set("Authorization", "Basic abc") }, status: http.StatusUnauthorized},
		{name: "revoked", setup: func(r *http.Request) { r.Header.Set("Authorization", "Bearer revoked-user") }, status: http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/progress", nil)
			tc.setup(req)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			require.Equal(t, tc.status, rec.Code)
			if tc.body != "" {
				require.Equal(t, tc.body, rec.Body.String())
			}
		})
	}
}

func TestMemoryRevocationsExpire(t *testing.T) {
	ctx := context.Background()
	revocations := NewMemoryRevocations()
	defer revocations.Stop()

	require.NoError(t, revocations.Revoke(ctx, "short", time.Now().Add(30*time.Millisecond)))
	require.NoError(t, revocations.Revoke(ctx, "past", time.Now().Add(-time.Minute)))

	revoked, err := revocations.IsRevoked(ctx, "short")
	require.NoError(t, err)
	require.True(t, revoked)
	revoked, err = revocations.IsRevoked(ctx, "past")
	require.NoError(t, err)
	require.False(t, revoked)

	require.Eventually(t, func() bool {
		revoked, _ := revocations.IsRevoked(ctx, "short")
		return !revoked
	}, time.Second, 10*time.Millisecond)
}
