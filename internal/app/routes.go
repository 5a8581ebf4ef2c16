package app

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	httpxmiddleware "plugin-server/internal/httpx/middleware"
)

// Router builds the full HTTP routing tree.
func (a *ServerApp) Router() (http.Handler, error) {
	if a == nil {
		return nil, errors.New("server app is nil")
	}
	if a.StaticHandler == nil {
		return nil, errors.New("static handler is not configured")
	}

	r := chi.NewRouter()

	// CORS comes first so 404, 405, 429 and 500 responses carry the headers.
	r.Use(httpxmiddleware.CORS)
	r.Use(httpxmiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httpxmiddleware.AccessLog)
	r.Use(httpxmiddleware.Recover)
	r.Use(httpxmiddleware.RateLimit(a.Limiter, a.Metrics))
	r.Use(chimiddleware.GetHead)
	if a.Config != nil && a.Config.Gzip {
		r.Use(httpxmiddleware.Gzip)
	}

	r.Options("/", a.StaticHandler.Preflight)
	r.Options("/*", a.StaticHandler.Preflight)

	r.Get("/", a.StaticHandler.Index)
	r.Get("/*", a.StaticHandler.File)

	return r, nil
}
