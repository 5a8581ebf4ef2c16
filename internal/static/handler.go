package static

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"plugin-server/internal/httpx/response"
	"plugin-server/internal/observability"
)

// DefaultIndexName is served for the root path when present.
const DefaultIndexName = "index.json"

// StatusPayload is returned for the root path when no index document exists.
type StatusPayload struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Options configures a Handler.
type Options struct {
	IndexName string
	Metrics   *observability.Metrics
}

// Handler serves files under a Resolver's root.
type Handler struct {
	resolver  *Resolver
	indexName string
	metrics   *observability.Metrics
}

// NewHandler creates a new static file handler
func NewHandler(resolver *Resolver, opts Options) *Handler {
	indexName := opts.IndexName
	if indexName == "" {
		indexName = DefaultIndexName
	}
	return &Handler{
		resolver:  resolver,
		indexName: indexName,
		metrics:   opts.Metrics,
	}
}

// Index handles GET /.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	path, err := h.resolver.Resolve(h.indexName)
	if err != nil {
		if IsContainmentViolation(err) {
			log.Warn("Index document rejected: %v", err)
		}
		h.metrics.IncCounter(observability.CounterStatus)
		response.JSON(w, http.StatusOK, StatusPayload{
			Status:  "ok",
			Message: fmt.Sprintf("Serving static files from %s.", h.resolver.Root()),
		})
		return
	}

	h.metrics.IncCounter(observability.CounterIndex)
	h.serveFile(w, r, path, h.indexName, "application/json")
}

// File handles GET /{path}.
func (h *Handler) File(w http.ResponseWriter, r *http.Request) {
	requestPath, err := DecodePath(r.URL.EscapedPath())
	if err != nil {
		h.notFound(w, r, err)
		return
	}
	if strings.Trim(requestPath, "/") == "" {
		h.Index(w, r)
		return
	}

	path, err := h.resolver.Resolve(requestPath)
	if err != nil {
		h.notFound(w, r, err)
		return
	}

	h.serveFile(w, r, path, strings.TrimLeft(requestPath, "/"), "")
}

// Preflight handles OPTIONS on any path without looking at the filesystem.
func (h *Handler) Preflight(w http.ResponseWriter, _ *http.Request) {
	h.metrics.IncCounter(observability.CounterPreflight)
	response.NoContent(w)
}

func (h *Handler) serveFile(w http.ResponseWriter, r *http.Request, path, name, contentType string) {
	file, err := os.Open(path)
	if err != nil {
		h.notFound(w, r, &PathSecurityError{Op: "open", Path: name, Wrapped: ErrNotFound})
		return
	}
	defer file.Close()

	// The path was checked by Resolve; re-check the opened handle in case
	// the entry was swapped in between.
	info, err := file.Stat()
	if err != nil || !info.Mode().IsRegular() {
		h.notFound(w, r, &PathSecurityError{Op: "stat_open", Path: name, Wrapped: ErrNotRegular})
		return
	}

	if contentType == "" {
		contentType = ContentTypeForName(info.Name())
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("ETag", etagFor(name, info))

	h.metrics.IncCounter(observability.CounterServed)
	// ServeContent answers conditional and range requests and stops quietly
	// when the client goes away mid-copy.
	http.ServeContent(w, r, info.Name(), info.ModTime(), file)
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request, err error) {
	h.metrics.IncCounter(observability.CounterNotFound)
	// Symlink escapes are already logged by the resolver.
	if IsPathTraversal(err) {
		log.Warn("Rejected %s %s from %s: %v", r.Method, r.URL.EscapedPath(), r.RemoteAddr, err)
	} else {
		log.Debug("Not found %s %s: %v", r.Method, r.URL.EscapedPath(), err)
	}
	response.NotFound(w)
}
