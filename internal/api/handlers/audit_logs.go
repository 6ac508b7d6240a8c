package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/acadops/timetable-backend/internal/api/httpx"
	"github.com/acadops/timetable-backend/internal/models"
	repo "github.com/acadops/timetable-backend/internal/repository"
	"github.com/acadops/timetable-backend/internal/services"
)

// AuditLogHandler exposes the read side of the audit trail. Admin only; the
// routes live under the interceptor's exclusion prefix so reading logs never
// writes logs.
type AuditLogHandler struct {
	svc *services.AuditService
}

func NewAuditLogHandler(svc *services.AuditService) *AuditLogHandler {
	return &AuditLogHandler{svc: svc}
}

func (h *AuditLogHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var f repo.AuditFilter
	if v := q.Get("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid user_id")
			return
		}
		f.ActorID = &id
	}
	f.EntityType = q.Get("entity_type")
	f.Action = q.Get("action")

	var err error
	if f.Start, err = parseTime(q.Get("start_date")); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid start_date")
		return
	}
	if f.End, err = parseTime(q.Get("end_date")); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid end_date")
		return
	}

	skip := queryInt(r, "skip", 0)
	if skip < 0 {
		skip = 0
	}
	limit := queryInt(r, "limit", 100)
	if limit <= 0 {
		limit = 100
	}
	if limit > services.MaxAuditPageSize {
		limit = services.MaxAuditPageSize
	}

	entries, total, err := h.svc.Query(r.Context(), f, skip, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []models.AuditEntry{}
	}
	httpx.WriteJSON(w, http.StatusOK, listResponse{
		Total: total,
		Page:  pageNumber(skip, limit),
		Size:  len(entries),
		Data:  entries,
	})
}

func (h *AuditLogHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid audit log id")
		return
	}
	entry, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, entry)
}

func parseTime(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
