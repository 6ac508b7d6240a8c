// Package redact strips credential material out of semi-structured payloads
// before they reach the audit store.
package redact

import "strings"

// Marker replaces every sensitive value.
const Marker = "***REDACTED***"

// Keys whose values are replaced, matched case-insensitively at any depth.
var sensitiveKeys = map[string]struct{}{
	"password":         {},
	"hashed_password":  {},
	"new_password":     {},
	"current_password": {},
	"access_token":     {},
	"refresh_token":    {},
	"token":            {},
	"secret":           {},
	"api_key":          {},
	"reset_token":      {},
	"authorization":    {},
}

// Redact walks a decoded JSON value (maps, slices, scalars) and replaces the
// value of every sensitive key with Marker. Other values pass through
// unchanged; the result is idempotent.
func Redact(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			if _, hit := sensitiveKeys[strings.ToLower(k)]; hit {
				out[k] = Marker
			} else {
				out[k] = Redact(elem)
			}
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = Redact(elem)
		}
		return out
	default:
		return v
	}
}

// RedactMap is Redact for object payloads, keeping the map type.
func RedactMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	return Redact(m).(map[string]any)
}
