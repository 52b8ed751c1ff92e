package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/taskpulse/internal/api/middleware"
	"github.com/phrazzld/taskpulse/internal/config"
	"github.com/phrazzld/taskpulse/internal/domain"
	"github.com/phrazzld/taskpulse/internal/mocks"
	"github.com/phrazzld/taskpulse/internal/service"
	"github.com/phrazzld/taskpulse/internal/service/auth"
	"github.com/phrazzld/taskpulse/internal/testutils"
	"github.com/stretchr/testify/require"
)

// apiFixture wires the HTTP handlers to in-memory stores and a real JWT
// service so tokens issued by login authenticate later requests.
type apiFixture struct {
	router      http.Handler
	users       *mocks.MockUserStore
	tasks       *mocks.MockTaskStore
	revocations *mocks.MockRevocationStore
	jwt         auth.JWTService
	connections *fakeCounter
}

var errPasswordMismatch = errors.New("password mismatch")

type fakeCounter struct{ n int }

func (f *fakeCounter) Count() int { return f.n }

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	log := slog.New(testutils.NewTestSlogHandler())

	jwtService, err := auth.NewJWTService(config.AuthConfig{
		JWTSecret:            strings.Repeat("s", 32),
		TokenLifetimeMinutes: 60,
		BcryptCost:           4,
	})
	require.NoError(t, err)

	f := &apiFixture{
		users:       mocks.NewMockUserStore(),
		tasks:       mocks.NewMockTaskStore(),
		revocations: mocks.NewMockRevocationStore(),
		jwt:         jwtService,
		connections: &fakeCounter{},
	}

	authn, err := auth.NewAuthenticator(jwtService, f.users, f.revocations, log)
	require.NoError(t, err)
	taskService, err := service.NewTaskService(f.tasks, log)
	require.NoError(t, err)

	verifier := &mocks.MockPasswordVerifier{
		CompareFn: func(hashed, password string) error {
			if hashed != "hashed:"+password {
				return errPasswordMismatch
			}
			return nil
		},
	}
	authHandler := NewAuthHandler(f.users, jwtService, verifier, authn, log)
	taskHandler := NewTaskHandler(taskService, log)
	statusHandler := NewStatusHandler(f.connections)
	authMiddleware := middleware.NewAuthMiddleware(authn, log)

	r := chi.NewRouter()
	r.Use(middleware.Trace(log))
	r.Get("/health", statusHandler.Health)
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Route("/tasks", taskHandler.Routes)
			r.Get("/realtime/stats", statusHandler.RealtimeStats)
		})
	})
	f.router = r
	return f
}

// do sends a request with an optional JSON body and bearer token.
func (f *apiFixture) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

// registerAndLogin creates a user through the API and returns its access token.
func (f *apiFixture) registerAndLogin(t *testing.T, name string) (*domain.User, string) {
	t.Helper()
	email := name + "@example.com"
	w := f.do(t, http.MethodPost, "/api/auth/register", RegisterRequest{
		Name: name, Email: email, Password: "correct horse",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = f.do(t, http.MethodPost, "/api/auth/login", LoginRequest{Email: email, Password: "correct horse"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var tok TokenResponse
	decodeBody(t, w, &tok)

	user, err := f.users.GetByEmail(context.Background(), email)
	require.NoError(t, err)
	return user, tok.AccessToken
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	decodeBody(t, w, &body)
	return body.Error
}
