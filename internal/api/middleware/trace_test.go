package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/taskpulse/internal/api/shared"
	"github.com/phrazzld/taskpulse/internal/platform/logger"
	"github.com/phrazzld/taskpulse/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrace(t *testing.T) {
	handler := testutils.NewTestSlogHandler()
	base := slog.New(handler)

	var traceID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = shared.GetTraceID(r.Context())
		logger.FromContext(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusNoContent)
	})

	chain := chimw.RequestID(Trace(base)(next))
	w := httptest.NewRecorder()
	chain.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	require.Len(t, traceID, 32)

	entries := handler.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "request started", entries[0]["message"])
	for _, entry := range entries {
		assert.Equal(t, traceID, entry["trace_id"])
		assert.NotEmpty(t, entry["request_id"])
	}
}

func TestTrace_FreshIDPerRequest(t *testing.T) {
	var ids []string
	h := Trace(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids = append(ids, shared.GetTraceID(r.Context()))
	}))

	for i := 0; i < 2; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}
	require.Len(t, ids, 2)
	assert.NotEqual(t, ids[0], ids[1])
}
