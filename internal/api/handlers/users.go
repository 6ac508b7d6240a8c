package handlers

import (
	"net/http"
	"strings"

	"github.com/acadops/timetable-backend/internal/api/httpx"
	"github.com/acadops/timetable-backend/internal/models"
	repo "github.com/acadops/timetable-backend/internal/repository"
	"github.com/acadops/timetable-backend/internal/services"
)

// UserHandler serves admin user management. Routes are mounted behind
// RequireAuth + RequireRole(admin).
type UserHandler struct {
	svc *services.UserService
}

func NewUserHandler(svc *services.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

type createUserRequest struct {
	Username  string      `json:"username"`
	Email     string      `json:"email"`
	Password  string      `json:"password"`
	FullName  string      `json:"full_name"`
	Role      models.Role `json:"role"`
	IsActive  *bool       `json:"is_active"`
	FacultyID *int64      `json:"faculty_id"`
	StudentID *int64      `json:"student_id"`
}

func (req *createUserRequest) validate() string {
	if len(strings.TrimSpace(req.Username)) < 3 {
		return "username must be at least 3 characters"
	}
	if !strings.Contains(req.Email, "@") {
		return "invalid email"
	}
	if len(req.Password) < 8 {
		return "password must be at least 8 characters"
	}
	if req.Role == "" {
		req.Role = models.RoleStudent
	}
	if !req.Role.Valid() {
		return "invalid role"
	}
	return ""
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	adminID, _ := actorID(r)
	var req createUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", msg)
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	u, err := h.svc.Create(r.Context(), adminID, services.CreateUser{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FullName:  req.FullName,
		Role:      req.Role,
		IsActive:  active,
		FacultyID: req.FacultyID,
		StudentID: req.StudentID,
	}, requestMeta(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, u)
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	skip := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", 100)

	var f repo.UserFilter
	if v := r.URL.Query().Get("role"); v != "" {
		role := models.Role(v)
		if !role.Valid() {
			httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid role")
			return
		}
		f.Role = &role
	}
	if v := r.URL.Query().Get("is_active"); v != "" {
		active := v == "true"
		f.IsActive = &active
	}

	users, total, err := h.svc.List(r.Context(), f, skip, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	httpx.WriteJSON(w, http.StatusOK, listResponse{
		Total: total,
		Page:  pageNumber(skip, limit),
		Size:  len(users),
		Data:  users,
	})
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid user id")
		return
	}
	u, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, u)
}

type updateUserRequest struct {
	Email     *string      `json:"email"`
	FullName  *string      `json:"full_name"`
	Role      *models.Role `json:"role"`
	IsActive  *bool        `json:"is_active"`
	FacultyID *int64       `json:"faculty_id"`
	StudentID *int64       `json:"student_id"`
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	adminID, _ := actorID(r)
	id, ok := pathID(r, "id")
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid user id")
		return
	}
	var req updateUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if req.Role != nil && !req.Role.Valid() {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid role")
		return
	}

	u, err := h.svc.Update(r.Context(), adminID, id, services.UpdateUser{
		Email:     req.Email,
		FullName:  req.FullName,
		Role:      req.Role,
		IsActive:  req.IsActive,
		FacultyID: req.FacultyID,
		StudentID: req.StudentID,
	}, requestMeta(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, u)
}

// Me returns the caller's own profile.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := actorID(r)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "could not validate credentials")
		return
	}
	u, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, u)
}

type updateProfileRequest struct {
	Email    *string `json:"email"`
	FullName *string `json:"full_name"`

	// Accepted in the payload only to reject them explicitly.
	Role     *models.Role `json:"role"`
	IsActive *bool        `json:"is_active"`
}

// UpdateMe updates the caller's own email and full name. Sending role or
// is_active is a permission error, not a validation one.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	id, ok := actorID(r)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "could not validate credentials")
		return
	}
	var req updateProfileRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if req.Role != nil {
		httpx.WriteError(w, http.StatusForbidden, "forbidden", "cannot change your own role")
		return
	}
	if req.IsActive != nil {
		httpx.WriteError(w, http.StatusForbidden, "forbidden", "cannot change your own active status")
		return
	}
	if req.Email != nil && !strings.Contains(*req.Email, "@") {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid email")
		return
	}

	u, err := h.svc.UpdateSelf(r.Context(), id, services.UpdateProfile{
		Email:    req.Email,
		FullName: req.FullName,
	}, requestMeta(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, u)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := actorID(r)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "could not validate credentials")
		return
	}
	var req changePasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil || req.CurrentPassword == "" {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "current_password and new_password are required")
		return
	}
	if len(req.NewPassword) < 8 {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "password must be at least 8 characters")
		return
	}

	if err := h.svc.ChangePassword(r.Context(), id, req.CurrentPassword, req.NewPassword, requestMeta(r)); err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "password updated successfully"})
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	adminID, _ := actorID(r)
	id, ok := pathID(r, "id")
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid user id")
		return
	}
	if err := h.svc.Delete(r.Context(), adminID, id, requestMeta(r)); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
