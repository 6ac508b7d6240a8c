package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/acadops/timetable-backend/internal/auth"
	"github.com/acadops/timetable-backend/internal/models"
	"github.com/acadops/timetable-backend/internal/redact"
)

// Recorder receives finished audit entries. Satisfied by
// services.AuditService.
type Recorder interface {
	Record(ctx context.Context, e models.NewAuditEntry)
}

// stateChanging lists the methods worth capturing.
var stateChanging = map[string]struct{}{
	http.MethodPost:   {},
	http.MethodPut:    {},
	http.MethodPatch:  {},
	http.MethodDelete: {},
}

// excludedPaths never produce entries: documentation, monitoring, assets.
var excludedPaths = map[string]struct{}{
	"/":             {},
	"/docs":         {},
	"/redoc":        {},
	"/openapi.json": {},
	"/health":       {},
	"/metrics":      {},
	"/favicon.ico":  {},
}

// excludedPrefixes cover the audit read API (self-logging loop) and the auth
// flows, which append their own entries with richer context.
var excludedPrefixes = []string{"/api/v1/audit-logs", "/api/v1/auth"}

// irregular nouns whose trailing "s" is not a plural marker.
var noSingularize = map[string]struct{}{"auth": {}, "constraints": {}}

// AuditInterceptor captures state-changing requests into the audit trail.
// It never blocks or fails a request on its own behalf: actor extraction
// degrades to anonymous, and persistence failures stay inside the recorder.
type AuditInterceptor struct {
	tm  *auth.TokenManager
	rec Recorder
}

func NewAuditInterceptor(tm *auth.TokenManager, rec Recorder) *AuditInterceptor {
	return &AuditInterceptor{tm: tm, rec: rec}
}

func (a *AuditInterceptor) Intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.shouldAudit(r) {
			next.ServeHTTP(w, r)
			return
		}

		// Buffer the body so both the interceptor and the downstream
		// handler read the same bytes.
		body := readAndRestoreBody(r)

		actorID := a.extractActor(r)
		ip := ClientIP(r)
		ua := r.Header.Get("User-Agent")
		if ua == "" {
			ua = "Unknown"
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		if rec.status < 200 || rec.status >= 400 {
			return
		}

		entityType := entityTypeFromPath(r.URL.Path)
		entityID := entityIDFromPath(r.URL.Path)
		a.rec.Record(r.Context(), models.NewAuditEntry{
			ActorID:    actorID,
			Action:     actionFromMethod(r.Method),
			EntityType: &entityType,
			EntityID:   entityID,
			Changes: map[string]any{
				"method":       r.Method,
				"path":         r.URL.Path,
				"query_params": queryParams(r),
				"request_body": parseAndRedactBody(body),
				"status_code":  rec.status,
			},
			IPAddress: &ip,
			UserAgent: &ua,
		})
	})
}

func (a *AuditInterceptor) shouldAudit(r *http.Request) bool {
	if _, ok := stateChanging[r.Method]; !ok {
		return false
	}
	if _, ok := excludedPaths[r.URL.Path]; ok {
		return false
	}
	for _, p := range excludedPrefixes {
		if strings.HasPrefix(r.URL.Path, p) {
			return false
		}
	}
	return true
}

// extractActor decodes the bearer token if one is present. Any failure means
// an anonymous actor, never a rejected request.
func (a *AuditInterceptor) extractActor(r *http.Request) *int64 {
	token, ok := BearerToken(r)
	if !ok {
		return nil
	}
	claims, err := a.tm.Decode(token)
	if err != nil {
		return nil
	}
	id, ok := claims.UserID()
	if !ok {
		return nil
	}
	return &id
}

func readAndRestoreBody(r *http.Request) []byte {
	if r.Body == nil {
		return nil
	}
	body, err := io.ReadAll(r.Body)
	_ = r.Body.Close()
	if err != nil {
		body = nil
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body
}

// parseAndRedactBody returns the redacted JSON body. Non-object payloads
// (arrays, scalars) survive as-is after redaction; empty or unparsable
// bodies become an empty object.
func parseAndRedactBody(body []byte) any {
	if len(body) == 0 {
		return map[string]any{}
	}
	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return map[string]any{}
	}
	return redact.Redact(decoded)
}

// ClientIP resolves the caller's address: first X-Forwarded-For entry, then
// the connection address, then "Unknown".
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "Unknown"
}

func queryParams(r *http.Request) map[string]any {
	out := map[string]any{}
	for k, vs := range r.URL.Query() {
		if len(vs) > 0 {
			out[k] = vs[0]
		}
	}
	return out
}

func actionFromMethod(method string) string {
	switch method {
	case http.MethodPost:
		return models.ActionCreate
	case http.MethodPut, http.MethodPatch:
		return models.ActionUpdate
	case http.MethodDelete:
		return models.ActionDelete
	default:
		return strings.ToLower(method)
	}
}

// entityTypeFromPath maps /api/v1/{entity}/... to a singular noun:
// /api/v1/courses/42 -> "course". Segments in noSingularize keep their
// trailing "s"; short paths map to "unknown".
func entityTypeFromPath(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 3 {
		return "unknown"
	}
	entity := parts[2]
	if _, keep := noSingularize[entity]; !keep && strings.HasSuffix(entity, "s") {
		entity = strings.TrimSuffix(entity, "s")
	}
	return entity
}

// entityIDFromPath parses the fourth segment as an id when present and
// numeric.
func entityIDFromPath(path string) *int64 {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 4 {
		return nil
	}
	id, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return nil
	}
	return &id
}
