package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/lorekeep/internal/graphservice"
	"github.com/starford/lorekeep/internal/models"
	"github.com/starford/lorekeep/internal/mutation"
)

// Handler holds API route handlers.
type Handler struct {
	svc *graphservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *graphservice.Service) *Handler {
	return &Handler{svc: svc}
}

func queryInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}

func queryBool(r *http.Request, key string) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get(key))
	return b
}

// queryOptBool is nil when key is absent or unparsable.
func queryOptBool(r *http.Request, key string) *bool {
	b, err := strconv.ParseBool(r.URL.Query().Get(key))
	if err != nil {
		return nil
	}
	return &b
}

// writeResult writes a mutation result. created selects 201 for writes
// that made a new entity.
func writeResult(w http.ResponseWriter, res graphservice.Result, created bool) {
	status := http.StatusOK
	if created && res.Changed {
		status = http.StatusCreated
	}
	if res.ETag != "" {
		w.Header().Set("ETag", `"`+res.ETag+`"`)
	}
	writeJSON(w, status, res)
}

// ListEntities handles GET /api/entities.
//
//	@Summary		List entities with optional filtering and pagination
//	@Tags			entities
//	@Produce		json
//	@Param			kind		query		string	false	"Entity kind"	Enums(note, container, link, reified_link)
//	@Param			category	query		string	false	"Note category"
//	@Param			tag			query		string	false	"Filter by tag"
//	@Param			limit		query		int		false	"Page size"
//	@Param			offset		query		int		false	"Page offset"
//	@Success		200			{object}	EntityListResponse
//	@Security		BearerAuth
//	@Router			/entities [get]
func (h *Handler) ListEntities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, total := h.svc.List(r.Context(), graphservice.Filter{
		Kind:     models.Kind(q.Get("kind")),
		Category: models.Category(q.Get("category")),
		Tag:      q.Get("tag"),
		Limit:    queryInt(r, "limit"),
		Offset:   queryInt(r, "offset"),
	})
	writeJSON(w, http.StatusOK, EntityListResponse{Entities: nonNilSlice(items), Total: total})
}

// GetEntity handles GET /api/entities/{id}.
//
//	@Summary		Get an entity with its ancestors and backlinks
//	@Tags			entities
//	@Produce		json
//	@Param			id	path		string	true	"Entity id"
//	@Success		200	{object}	EntityResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entities/{id} [get]
func (h *Handler) GetEntity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	e, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, "get entity", err)
		return
	}
	back, err := h.svc.Backlinks(r.Context(), id)
	if err != nil {
		writeError(w, "get entity", err)
		return
	}
	writeJSON(w, http.StatusOK, EntityResponse{
		Entity:    e,
		Ancestors: nonNilSlice(h.svc.Ancestors(r.Context(), id)),
		Backlinks: nonNilSlice(back),
	})
}

// Backlinks handles GET /api/entities/{id}/backlinks.
//
//	@Summary		List links pointing at an entity
//	@Tags			entities
//	@Produce		json
//	@Param			id	path		string	true	"Entity id"
//	@Success		200	{array}		index.LinkRow
//	@Security		BearerAuth
//	@Router			/entities/{id}/backlinks [get]
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	back, err := h.svc.Backlinks(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "backlinks", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNilSlice(back))
}

// DeleteEntity handles DELETE /api/entities/{id}.
//
//	@Summary		Delete an entity and everything that depends on it
//	@Tags			entities
//	@Produce		json
//	@Param			id	path		string	true	"Entity id"
//	@Success		200	{object}	MutationResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entities/{id} [delete]
func (h *Handler) DeleteEntity(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "delete entity", err)
		return
	}
	writeResult(w, res, false)
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	MutationResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if !decodeValid(w, r, &req) {
		return
	}
	res, err := h.svc.CreateNote(r.Context(), mutation.NoteSpec{
		ID:         req.ID,
		Title:      req.Title,
		Category:   req.Category,
		Gist:       req.Gist,
		Body:       req.Body,
		Tags:       req.Tags,
		Aliases:    req.Aliases,
		AuthorNote: req.AuthorNote,
		ParentID:   req.ParentID,
	})
	if err != nil {
		writeError(w, "create note", err)
		return
	}
	writeResult(w, res, true)
}

// UpdateNote handles PATCH /api/notes/{id}.
//
//	@Summary		Patch the fields of a note or container
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Entity id"
//	@Param			body	body		UpdateNoteRequest	true	"Fields to change"
//	@Success		200		{object}	MutationResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [patch]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	var req UpdateNoteRequest
	if !decodeValid(w, r, &req) {
		return
	}
	res, err := h.svc.UpdateNote(r.Context(), chi.URLParam(r, "id"), mutation.NotePatch{
		Title:      req.Title,
		Category:   req.Category,
		Gist:       req.Gist,
		Body:       req.Body,
		AuthorNote: req.AuthorNote,
		Tags:       req.Tags,
		Aliases:    req.Aliases,
	})
	if err != nil {
		writeError(w, "update note", err)
		return
	}
	writeResult(w, res, false)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across entities
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("q is required"))
		return
	}
	limit := queryInt(r, "limit")
	if limit <= 0 {
		limit = 20
	}
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: nonNilSlice(results)})
}
