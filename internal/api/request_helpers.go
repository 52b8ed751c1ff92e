package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/taskpulse/internal/api/shared"
	"github.com/phrazzld/taskpulse/internal/domain"
	"github.com/phrazzld/taskpulse/internal/platform/logger"
)

const (
	// DefaultPageLimit is used when a listing omits limit.
	DefaultPageLimit = 100
	// MaxPageLimit caps the page size of a listing.
	MaxPageLimit = 500
)

// getPathUUID extracts and parses a UUID path parameter.
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return uuid.Nil, domain.ErrInvalidID
	}
	id, err := uuid.Parse(pathParam)
	if err != nil {
		return uuid.Nil, domain.ErrInvalidID
	}
	return id, nil
}

// handleUserAndPathUUID extracts both the authenticated user and a UUID path
// parameter. It writes an error response and returns false if either fails.
func handleUserAndPathUUID(
	w http.ResponseWriter,
	r *http.Request,
	paramName string,
	log *slog.Logger,
) (*domain.User, uuid.UUID, bool) {
	log = logger.FromContextOrDefault(r.Context(), log)

	user, ok := shared.UserFromContext(r.Context())
	if !ok {
		log.Warn("user not found in request context")
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return nil, uuid.Nil, false
	}

	id, err := getPathUUID(r, paramName)
	if err != nil {
		log.Debug("invalid path parameter",
			slog.String("param_name", paramName),
			slog.String("value", chi.URLParam(r, paramName)))
		HandleAPIError(w, r, err, "")
		return nil, uuid.Nil, false
	}

	return user, id, true
}

// parsePagination reads skip and limit query parameters, applying the
// default page size and clamping limit to MaxPageLimit.
func parsePagination(r *http.Request) (offset, limit int, err error) {
	q := r.URL.Query()

	limit = DefaultPageLimit
	if raw := q.Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return 0, 0, domain.ErrValidation
		}
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	if raw := q.Get("skip"); raw != "" {
		offset, err = strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return 0, 0, domain.ErrValidation
		}
	}
	return offset, limit, nil
}
