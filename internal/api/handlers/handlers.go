// Package handlers maps HTTP requests onto the service layer.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/acadops/timetable-backend/internal/api/httpx"
	"github.com/acadops/timetable-backend/internal/middleware"
	"github.com/acadops/timetable-backend/internal/services"
)

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "incorrect username or password")
	case errors.Is(err, services.ErrInactiveAccount):
		httpx.WriteError(w, http.StatusForbidden, "inactive_account", "user account is inactive")
	case errors.Is(err, services.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "not found")
	case errors.Is(err, services.ErrWrongPassword):
		httpx.WriteError(w, http.StatusBadRequest, "wrong_password", "current password is incorrect")
	case errors.Is(err, services.ErrInvalidResetToken):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_reset_token", "invalid reset token")
	case errors.Is(err, services.ErrExpiredResetToken):
		httpx.WriteError(w, http.StatusBadRequest, "expired_reset_token", "reset token has expired, request a new password reset")
	case errors.Is(err, services.ErrUsernameTaken):
		httpx.WriteError(w, http.StatusBadRequest, "username_taken", "username already exists")
	case errors.Is(err, services.ErrEmailTaken):
		httpx.WriteError(w, http.StatusBadRequest, "email_taken", "email already exists")
	default:
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func requestMeta(r *http.Request) services.RequestMeta {
	ua := r.Header.Get("User-Agent")
	if ua == "" {
		ua = "Unknown"
	}
	return services.RequestMeta{IP: middleware.ClientIP(r), UserAgent: ua}
}

// actorID reads the authenticated principal set by RequireAuth. The second
// return is false on routes mounted without it.
func actorID(r *http.Request) (int64, bool) {
	claims, ok := middleware.ClaimsFrom(r.Context())
	if !ok {
		return 0, false
	}
	return claims.UserID()
}

func pathID(r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	return id, err == nil
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// listResponse is the shared pagination envelope.
type listResponse struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Size  int   `json:"size"`
	Data  any   `json:"data"`
}

func pageNumber(skip, limit int) int {
	if limit > 0 {
		return skip/limit + 1
	}
	return 1
}
