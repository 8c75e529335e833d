// Package httpapi exposes a read-only REST view of the reference
// store over the iteration facade: it never opens a transaction.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/refstore/internal/refs"
)

// NewRouter builds the chi router serving reads against backend.
//
// Routes:
//   - GET /refs           - list every ref (optional ?prefix=)
//   - GET /refs/*         - a single ref's raw (unresolved) value
//   - GET /refs/*/log     - a ref's reflog, newest first
func NewRouter(backend refs.Backend) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	h := &handler{backend: backend}

	r.Get("/refs", h.list)
	r.Get("/refs/*", h.getOrLog)

	return r
}

type handler struct {
	backend refs.Backend
}
