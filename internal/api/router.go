package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/spacetime/internal/graph"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// imports, if non-nil, is mounted at /imports.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(g *graph.Model, imports *ImportHandler, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(g)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Mutations.
	r.Post("/vertices", h.CreateVertex)
	r.Post("/edges", h.CreateEdge)

	// Lookups.
	r.Get("/nodes", h.FindNodes)
	r.Get("/nodes/{class}/{cptr}", h.GetNode)
	r.Get("/arrows", h.ListArrows)
	r.Get("/stats", h.Stats)

	// Path searches.
	r.Get("/paths/forward", h.ForwardPaths)
	r.Post("/paths/cone", h.ConePaths)

	if imports != nil {
		r.Get("/imports", imports.List)
		r.Put("/imports/*", imports.Put)
	}

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
