package models

import "time"

// Audit actions written by the application itself. The interception layer
// additionally derives create/update/delete (or a lowercased method name)
// from the HTTP verb.
const (
	ActionCreate         = "create"
	ActionUpdate         = "update"
	ActionDelete         = "delete"
	ActionLogin          = "login"
	ActionLogout         = "logout"
	ActionPasswordReset  = "password_reset"
	ActionForgotPassword = "forgot_password"
)

// AuditEntry is one immutable record of a state-changing action. Entries are
// insert-only; no code path updates or deletes them.
type AuditEntry struct {
	ID         int64          `json:"id"`
	ActorID    *int64         `json:"actor_id"`
	Action     string         `json:"action"`
	EntityType *string        `json:"entity_type"`
	EntityID   *int64         `json:"entity_id"`
	Changes    map[string]any `json:"changes"`
	IPAddress  *string        `json:"ip_address"`
	UserAgent  *string        `json:"user_agent"`
	Timestamp  time.Time      `json:"timestamp"`
}

// NewAuditEntry is the write-side payload; id and timestamp are assigned by
// the store.
type NewAuditEntry struct {
	ActorID    *int64
	Action     string
	EntityType *string
	EntityID   *int64
	Changes    map[string]any
	IPAddress  *string
	UserAgent  *string
}
