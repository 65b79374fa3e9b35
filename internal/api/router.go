package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/lorekeep/internal/graphservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *graphservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Entities.
	r.Get("/entities", h.ListEntities)
	r.Get("/entities/{id}", h.GetEntity)
	r.Get("/entities/{id}/backlinks", h.Backlinks)
	r.Delete("/entities/{id}", h.DeleteEntity)

	// Notes.
	r.Post("/notes", h.CreateNote)
	r.Patch("/notes/{id}", h.UpdateNote)
	r.Post("/notes/{id}/reify", h.ReifyNode)
	r.Post("/notes/{id}/reify-link", h.ReifyNodeToLink)

	// Links and structure.
	r.Post("/links", h.CreateLink)
	r.Post("/links/{id}/reify", h.ReifyLink)
	r.Post("/reparent", h.Reparent)

	// Views and audits.
	r.Get("/drilldown", h.Drilldown)
	r.Get("/hierarchy", h.Hierarchy)
	r.Get("/analyze", h.AnalyzeLink)
	r.Get("/integrity", h.Integrity)
	r.Get("/cycles", h.Cycles)
	r.Get("/dangling", h.Dangling)
	r.Post("/purge", h.Purge)

	// Search.
	r.Get("/search", h.Search)

	// Whole-registry exchange and history.
	r.Get("/registry", h.ExportRegistry)
	r.Put("/registry", h.ImportRegistry)
	r.Post("/import/markdown", h.ImportMarkdown)
	r.Post("/undo", h.Undo)

	r.Get("/snapshots", h.ListSnapshots)
	r.Post("/snapshots", h.CreateSnapshot)
	r.Post("/snapshots/{name}/restore", h.RestoreSnapshot)
	r.Post("/snapshots/{name}/rename", h.RenameSnapshot)
	r.Delete("/snapshots/{name}", h.DeleteSnapshot)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
