package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/phrazzld/querykit/internal/api/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestValidate(t *testing.T) {
	m := NewAuthMiddleware(secret)

	token, err := IssueToken(secret, "alice", time.Hour)
	require.NoError(t, err)
	subject, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", subject)

	t.Run("expired", func(t *testing.T) {
		token, err := IssueToken(secret, "alice", -time.Hour)
		require.NoError(t, err)
		_, err = m.Validate(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("within clock skew", func(t *testing.T) {
		token, err := IssueToken(secret, "alice", -DefaultClockSkew/2)
		require.NoError(t, err)
		_, err = m.Validate(token)
		assert.NoError(t, err)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := IssueToken("ffffffffffffffffffffffffffffffff", "alice", time.Hour)
		require.NoError(t, err)
		_, err = m.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("no expiry", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256,
			jwt.RegisteredClaims{Subject: "alice"}).SignedString([]byte(secret))
		require.NoError(t, err)
		_, err = m.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("other algorithm", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}).SignedString([]byte(secret))
		require.NoError(t, err)
		_, err = m.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestAuthenticate(t *testing.T) {
	m := NewAuthMiddleware(secret)
	var gotSubject string
	handler := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSubject, _ = shared.GetSubject(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	valid, err := IssueToken(secret, "alice", time.Hour)
	require.NoError(t, err)
	expired, err := IssueToken(secret, "alice", -time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"missing header", "", http.StatusUnauthorized, "Authorization header required"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "Invalid authorization format"},
		{"empty token", "Bearer ", http.StatusUnauthorized, "Invalid authorization format"},
		{"garbage", "Bearer abc", http.StatusUnauthorized, "Invalid token"},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, "Token expired"},
		{"valid", "Bearer " + valid, http.StatusNoContent, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotSubject = ""
			req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
				assert.Empty(t, gotSubject)
			} else {
				assert.Equal(t, "alice", gotSubject)
			}
		})
	}
}

func TestTraceMiddleware(t *testing.T) {
	var traceID string
	handler := NewTraceMiddleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = shared.GetTraceID(r.Context())
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, traceID, 2*shared.TraceIDLength)
}
