package handlers

import (
	"errors"
	"net/http"

	"github.com/acadops/timetable-backend/internal/api/httpx"
	"github.com/acadops/timetable-backend/internal/services"
)

type AuthHandler struct {
	svc *services.AuthService
}

func NewAuthHandler(svc *services.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        any    `json:"user"`
}

// Login accepts form-encoded username and password.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid form data")
		return
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "username and password are required")
		return
	}

	user, token, err := h.svc.Login(r.Context(), username, password, requestMeta(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        user,
	})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := actorID(r)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "could not validate credentials")
		return
	}
	user, err := h.svc.GetUser(r.Context(), id)
	if err != nil {
		// A token for a deleted principal is a credentials problem, not a
		// missing resource.
		if errors.Is(err, services.ErrNotFound) {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "could not validate credentials")
			return
		}
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	id, ok := actorID(r)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "could not validate credentials")
		return
	}
	h.svc.Logout(r.Context(), id, requestMeta(r))
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "successfully logged out"})
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	id, ok := actorID(r)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "could not validate credentials")
		return
	}
	token, err := h.svc.Refresh(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "could not validate credentials")
			return
		}
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
	})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type forgotPasswordResponse struct {
	Message             string `json:"message"`
	ResetTokenExpiresIn int    `json:"reset_token_expires_in"`
}

// ForgotPassword always answers with the same message so callers cannot
// probe which emails have accounts. The reset token is delivered through the
// mailer, never in this response.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil || req.Email == "" {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "email is required")
		return
	}
	if err := h.svc.ForgotPassword(r.Context(), req.Email, requestMeta(r)); err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, forgotPasswordResponse{
		Message:             "if an account with that email exists, a password reset email has been sent",
		ResetTokenExpiresIn: 30,
	})
}

type resetPasswordRequest struct {
	ResetToken  string `json:"reset_token"`
	NewPassword string `json:"new_password"`
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil || req.ResetToken == "" {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "reset_token and new_password are required")
		return
	}
	if len(req.NewPassword) < 8 {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "password must be at least 8 characters")
		return
	}
	if err := h.svc.ResetPassword(r.Context(), req.ResetToken, req.NewPassword, requestMeta(r)); err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "password has been reset, you can now log in with the new password",
	})
}
