package api

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := newAPIFixture(t)

		w := f.do(t, http.MethodPost, "/api/auth/register", RegisterRequest{
			Name: "Ada", Email: "Ada@Example.com", Password: "correct horse",
		}, "")
		require.Equal(t, http.StatusCreated, w.Code)

		var resp map[string]interface{}
		decodeBody(t, w, &resp)
		assert.Equal(t, "Ada", resp["name"])
		assert.Equal(t, "ada@example.com", resp["email"])
		_, err := uuid.Parse(resp["id"].(string))
		assert.NoError(t, err)
		assert.NotContains(t, resp, "password")
		assert.Len(t, resp, 3)
	})

	t.Run("duplicate email", func(t *testing.T) {
		f := newAPIFixture(t)
		f.registerAndLogin(t, "ada")

		w := f.do(t, http.MethodPost, "/api/auth/register", RegisterRequest{
			Name: "Other", Email: "ada@example.com", Password: "correct horse",
		}, "")
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "Email already exists", errorMessage(t, w))
	})

	t.Run("store failure", func(t *testing.T) {
		f := newAPIFixture(t)
		f.users.CreateError = errors.New("connection refused")

		w := f.do(t, http.MethodPost, "/api/auth/register", RegisterRequest{
			Name: "Ada", Email: "ada@example.com", Password: "correct horse",
		}, "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Failed to create user", errorMessage(t, w))
	})

	tests := []struct {
		name    string
		body    interface{}
		wantMsg string
	}{
		{"malformed json", `{"name":`, "Invalid request format"},
		{"missing name", RegisterRequest{Email: "a@example.com", Password: "correct horse"}, "Invalid Name: required field"},
		{"bad email", RegisterRequest{Name: "A", Email: "nope", Password: "correct horse"}, "Invalid Email: invalid email format"},
		{"short password", RegisterRequest{Name: "A", Email: "a@example.com", Password: "short"}, "Invalid Password: too short"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAPIFixture(t)
			w := f.do(t, http.MethodPost, "/api/auth/register", tt.body, "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.wantMsg, errorMessage(t, w))
		})
	}
}

func TestLogin(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := newAPIFixture(t)
		user, _ := f.registerAndLogin(t, "ada")

		w := f.do(t, http.MethodPost, "/api/auth/login", LoginRequest{
			Email: "ada@example.com", Password: "correct horse",
		}, "")
		require.Equal(t, http.StatusOK, w.Code)

		var tok TokenResponse
		decodeBody(t, w, &tok)
		assert.Equal(t, "bearer", tok.TokenType)

		expiresAt, err := time.Parse(time.RFC3339, tok.ExpiresAt)
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

		claims, err := f.jwt.ValidateToken(context.Background(), tok.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.UserID)
	})

	for name, req := range map[string]LoginRequest{
		"wrong password": {Email: "ada@example.com", Password: "incorrect horse"},
		"unknown email":  {Email: "nobody@example.com", Password: "correct horse"},
	} {
		t.Run(name, func(t *testing.T) {
			f := newAPIFixture(t)
			f.registerAndLogin(t, "ada")

			w := f.do(t, http.MethodPost, "/api/auth/login", req, "")
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, "Incorrect email or password", errorMessage(t, w))
		})
	}

	t.Run("user lookup failure", func(t *testing.T) {
		f := newAPIFixture(t)
		f.registerAndLogin(t, "ada")
		f.users.GetError = errors.New("db down")

		w := f.do(t, http.MethodPost, "/api/auth/login", LoginRequest{
			Email: "ada@example.com", Password: "correct horse",
		}, "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "db down")
	})
}

func TestLogout(t *testing.T) {
	f := newAPIFixture(t)
	_, token := f.registerAndLogin(t, "ada")

	// The token works before logout
	w := f.do(t, http.MethodGet, "/api/tasks", nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/api/auth/logout", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	var detail DetailResponse
	decodeBody(t, w, &detail)
	assert.Equal(t, "User ada@example.com successfully logged out", detail.Detail)

	// Logging out again is idempotent
	w = f.do(t, http.MethodPost, "/api/auth/logout", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &detail)
	assert.Equal(t, "Already logged out", detail.Detail)

	// The revoked token no longer authenticates
	w = f.do(t, http.MethodGet, "/api/tasks", nil, token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Token revoked", errorMessage(t, w))
}

func TestLogout_Rejections(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/auth/logout", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodPost, "/api/auth/logout", nil, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid token", errorMessage(t, w))

	_, token := f.registerAndLogin(t, "ada")
	f.revocations.Err = errors.New("revocation table locked")
	w = f.do(t, http.MethodPost, "/api/auth/logout", nil, token)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "locked")
}
