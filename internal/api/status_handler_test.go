package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestRealtimeStats(t *testing.T) {
	f := newAPIFixture(t)
	_, token := f.registerAndLogin(t, "ada")
	f.connections.n = 3

	w := f.do(t, http.MethodGet, "/api/realtime/stats", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_count":3}`, w.Body.String())
}
