package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/bookshelf-app/server/internal/auth"
	"github.com/bookshelf-app/server/internal/logger"
	"github.com/bookshelf-app/server/internal/services"
	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type contextKey string

const contextClaimsKey contextKey = "session"

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

const (
	codeValidation   = "VALIDATION"
	codeDuplicate    = "DUPLICATE"
	codeUnauthorized = "INVALID_CREDENTIALS"
	codeNotFound     = "NOT_FOUND"
	codeGenreInUse   = "GENRE_IN_USE"
	codeUnavailable  = "STORAGE_UNAVAILABLE"
	codeInternal     = "INTERNAL"
)

func withClaims(ctx context.Context, claims auth.Claims) context.Context {
	return context.WithValue(ctx, contextClaimsKey, claims)
}

// ClaimsFromContext returns the session claims the guard attached.
func ClaimsFromContext(ctx context.Context) (auth.Claims, bool) {
	claims, ok := ctx.Value(contextClaimsKey).(auth.Claims)
	return claims, ok
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// statusFor maps a service error onto an HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest, codeValidation
	case errors.Is(err, services.ErrDuplicateEmail), errors.Is(err, services.ErrDuplicateName):
		return http.StatusConflict, codeDuplicate
	case errors.Is(err, services.ErrGenreInUse):
		return http.StatusConflict, codeGenreInUse
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized, codeUnauthorized
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, services.ErrStorageUnavailable), errors.Is(err, services.ErrCoversDisabled):
		return http.StatusServiceUnavailable, codeUnavailable
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

// writeServiceError answers with the mapped status. Server-side failures are
// logged with the request id and hidden from the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error, fallback string) {
	status, code := statusFor(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		log.Error(fallback,
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
		)
		message = fallback
		if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
			hub.CaptureException(err)
		}
	}
	writeError(w, status, code, message)
}

// wantsHTML reports whether the client is a browser form rather than an API
// consumer.
func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func redirect(w http.ResponseWriter, r *http.Request, path string) {
	http.Redirect(w, r, path, http.StatusSeeOther)
}

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, errors.New("invalid " + name)
	}
	return id, nil
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
