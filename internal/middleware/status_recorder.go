package middleware

import "net/http"

// statusRecorder captures the status code written by downstream handlers.
// Shared by the metrics middleware and the audit interceptor.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
