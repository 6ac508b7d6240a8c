package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acadops/timetable-backend/internal/auth"
	"github.com/acadops/timetable-backend/internal/models"
)

type captureRecorder struct {
	entries []models.NewAuditEntry
}

func (c *captureRecorder) Record(_ context.Context, e models.NewAuditEntry) {
	c.entries = append(c.entries, e)
}

func okHandler(status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})
}

func newTestInterceptor() (*AuditInterceptor, *captureRecorder, *auth.TokenManager) {
	tm := auth.NewTokenManager("test-secret", time.Hour)
	rec := &captureRecorder{}
	return NewAuditInterceptor(tm, rec), rec, tm
}

func TestInterceptCapturesDelete(t *testing.T) {
	ai, rec, tm := newTestInterceptor()

	token, _, err := tm.Issue(models.User{ID: 9, Username: "admin", Role: models.RoleAdmin})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/courses/42", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	req.Header.Set("User-Agent", "test-agent")
	ai.Intercept(okHandler(http.StatusNoContent)).ServeHTTP(httptest.NewRecorder(), req)

	require.Len(t, rec.entries, 1)
	e := rec.entries[0]
	require.NotNil(t, e.ActorID)
	assert.Equal(t, int64(9), *e.ActorID)
	assert.Equal(t, models.ActionDelete, e.Action)
	require.NotNil(t, e.EntityType)
	assert.Equal(t, "course", *e.EntityType)
	require.NotNil(t, e.EntityID)
	assert.Equal(t, int64(42), *e.EntityID)
	require.NotNil(t, e.IPAddress)
	assert.Equal(t, "203.0.113.7", *e.IPAddress)
	require.NotNil(t, e.UserAgent)
	assert.Equal(t, "test-agent", *e.UserAgent)
	assert.Equal(t, http.StatusNoContent, e.Changes["status_code"])
}

func TestInterceptSkipsExcluded(t *testing.T) {
	cases := []struct {
		method, path string
	}{
		{http.MethodPost, "/api/v1/auth/login"},
		{http.MethodPost, "/api/v1/auth/reset-password"},
		{http.MethodPost, "/api/v1/audit-logs"},
		{http.MethodGet, "/api/v1/courses/42"},
		{http.MethodPost, "/health"},
		{http.MethodPost, "/metrics"},
	}
	for _, tc := range cases {
		ai, rec, _ := newTestInterceptor()
		req := httptest.NewRequest(tc.method, tc.path, nil)
		ai.Intercept(okHandler(http.StatusOK)).ServeHTTP(httptest.NewRecorder(), req)
		assert.Empty(t, rec.entries, "%s %s", tc.method, tc.path)
	}
}

func TestInterceptSkipsFailures(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError} {
		ai, rec, _ := newTestInterceptor()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/courses", nil)
		ai.Intercept(okHandler(status)).ServeHTTP(httptest.NewRecorder(), req)
		assert.Empty(t, rec.entries, "status %d", status)
	}
}

func TestInterceptAnonymousOnBadToken(t *testing.T) {
	ai, rec, _ := newTestInterceptor()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/courses", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	ai.Intercept(okHandler(http.StatusCreated)).ServeHTTP(httptest.NewRecorder(), req)

	require.Len(t, rec.entries, 1)
	assert.Nil(t, rec.entries[0].ActorID)
}

func TestInterceptBodyReplayAndRedaction(t *testing.T) {
	ai, rec, _ := newTestInterceptor()

	payload := `{"username":"alice","password":"hunter22"}`
	var seen string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		seen = string(b)
		w.WriteHeader(http.StatusCreated)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users?notify=true", strings.NewReader(payload))
	ai.Intercept(handler).ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, payload, seen, "downstream handler must see the original body")

	require.Len(t, rec.entries, 1)
	e := rec.entries[0]
	body, ok := e.Changes["request_body"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "alice", body["username"])
	assert.Equal(t, "***REDACTED***", body["password"])

	query, ok := e.Changes["query_params"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "true", query["notify"])
}

func TestInterceptNonJSONBody(t *testing.T) {
	ai, rec, _ := newTestInterceptor()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/courses", strings.NewReader("plain text"))
	ai.Intercept(okHandler(http.StatusCreated)).ServeHTTP(httptest.NewRecorder(), req)

	require.Len(t, rec.entries, 1)
	assert.Equal(t, map[string]any{}, rec.entries[0].Changes["request_body"])
}

func TestInterceptArrayBody(t *testing.T) {
	ai, rec, _ := newTestInterceptor()

	payload := `[{"name":"CS101","secret":"x"},{"name":"CS102"}]`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/courses/bulk", strings.NewReader(payload))
	ai.Intercept(okHandler(http.StatusCreated)).ServeHTTP(httptest.NewRecorder(), req)

	require.Len(t, rec.entries, 1)
	body, ok := rec.entries[0].Changes["request_body"].([]any)
	require.True(t, ok, "array payloads survive in the trail")
	require.Len(t, body, 2)
	first := body[0].(map[string]any)
	assert.Equal(t, "CS101", first["name"])
	assert.Equal(t, "***REDACTED***", first["secret"])
}

func TestEntityTypeFromPath(t *testing.T) {
	cases := []struct {
		path, want string
	}{
		{"/api/v1/courses/42", "course"},
		{"/api/v1/semesters", "semester"},
		{"/api/v1/constraints/3", "constraints"},
		{"/api/v1/users", "user"},
		{"/api", "unknown"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, entityTypeFromPath(tc.path), tc.path)
	}
}

func TestEntityIDFromPath(t *testing.T) {
	id := entityIDFromPath("/api/v1/courses/42")
	require.NotNil(t, id)
	assert.Equal(t, int64(42), *id)

	assert.Nil(t, entityIDFromPath("/api/v1/courses/export"))
	assert.Nil(t, entityIDFromPath("/api/v1/courses"))
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:4444"
	assert.Equal(t, "192.0.2.1", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "198.51.100.9")
	assert.Equal(t, "198.51.100.9", ClientIP(req))
}
