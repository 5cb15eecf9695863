package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Post("/convert", h.Convert)
	r.Get("/status", h.Status)

	r.Get("/conversions", h.ListConversions)
	r.Get("/conversions/last", h.LastConversion)
	r.Get("/conversions/{id}", h.GetConversion)

	r.Get("/notes", h.ListNotes)

	// Exported notes, when an export directory is configured.
	if svc.ExportDir != "" {
		r.Get("/exports/{filename}", NewExportHandler(svc.ExportDir).ServeFile)
	}

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
