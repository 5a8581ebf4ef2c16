package response

import (
	"net/http"
)

// NotFound writes a bare 404. Every path failure collapses into this so
// callers cannot tell a forbidden path from a missing one.
func NotFound(w http.ResponseWriter) {
	clearEntityHeaders(w)
	w.WriteHeader(http.StatusNotFound)
}

// NoContent writes a bare 204.
func NoContent(w http.ResponseWriter) {
	clearEntityHeaders(w)
	w.WriteHeader(http.StatusNoContent)
}

func TooManyRequests(w http.ResponseWriter) {
	clearEntityHeaders(w)
	w.WriteHeader(http.StatusTooManyRequests)
}

func InternalServerError(w http.ResponseWriter) {
	clearEntityHeaders(w)
	w.WriteHeader(http.StatusInternalServerError)
}

func clearEntityHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Del("Content-Type")
	h.Del("Content-Length")
	h.Del("ETag")
	h.Del("Last-Modified")
}
