package api

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/lorekeep/internal/parser"
)

// ExportRegistry handles GET /api/registry.
//
//	@Summary		Download the whole registry
//	@Tags			registry
//	@Produce		json
//	@Success		200	{object}	map[string]models.Entity
//	@Header			200	{string}	ETag	"Registry version"
//	@Security		BearerAuth
//	@Router			/registry [get]
func (h *Handler) ExportRegistry(w http.ResponseWriter, r *http.Request) {
	data, etag, err := h.svc.Export(r.Context())
	if err != nil {
		writeError(w, "export registry", err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("ETag", `"`+etag+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ImportRegistry handles PUT /api/registry.
//
//	@Summary		Replace the whole registry with optimistic concurrency
//	@Tags			registry
//	@Accept			json
//	@Produce		json
//	@Param			If-Match	header		string	false	"ETag of the registry being replaced"
//	@Success		200			{object}	MutationResponse
//	@Failure		400			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/registry [put]
func (h *Handler) ImportRegistry(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	res, err := h.svc.Import(r.Context(), body, ifMatch)
	if err != nil {
		writeError(w, "import registry", err)
		return
	}
	writeResult(w, res, false)
}

// ImportMarkdown handles POST /api/import/markdown.
//
//	@Summary		Merge Markdown documents into the graph
//	@Tags			registry
//	@Accept			json
//	@Produce		json
//	@Param			body	body		MarkdownImportRequest	true	"Documents or a data directory"
//	@Success		200		{object}	MarkdownImportResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/import/markdown [post]
func (h *Handler) ImportMarkdown(w http.ResponseWriter, r *http.Request) {
	var req MarkdownImportRequest
	if !decodeValid(w, r, &req) {
		return
	}
	if req.Dir != "" {
		report, res, err := h.svc.ImportMarkdownDir(r.Context(), req.Dir)
		if err != nil {
			writeError(w, "import markdown", err)
			return
		}
		writeJSON(w, http.StatusOK, MarkdownImportResponse{Report: report, Result: res})
		return
	}
	docs := make([]*parser.Document, 0, len(req.Documents))
	for _, raw := range req.Documents {
		doc, err := parser.Parse([]byte(raw))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
		docs = append(docs, doc)
	}
	report, res, err := h.svc.ImportMarkdown(r.Context(), docs)
	if err != nil {
		writeError(w, "import markdown", err)
		return
	}
	writeJSON(w, http.StatusOK, MarkdownImportResponse{Report: report, Result: res})
}

// Undo handles POST /api/undo.
//
//	@Summary		Revert the most recent write
//	@Tags			registry
//	@Produce		json
//	@Success		200	{object}	MutationResponse
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/undo [post]
func (h *Handler) Undo(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Undo(r.Context())
	if err != nil {
		writeError(w, "undo", err)
		return
	}
	writeResult(w, res, false)
}

// ListSnapshots handles GET /api/snapshots.
//
//	@Summary		List stored checkpoints
//	@Tags			snapshots
//	@Produce		json
//	@Success		200	{array}		models.SnapshotMetadata
//	@Security		BearerAuth
//	@Router			/snapshots [get]
func (h *Handler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.svc.Snapshots(r.Context())
	if err != nil {
		writeError(w, "list snapshots", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNilSlice(snaps))
}

// CreateSnapshot handles POST /api/snapshots.
//
//	@Summary		Store the current registry as a named checkpoint
//	@Tags			snapshots
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SnapshotRequest	true	"Checkpoint name"
//	@Success		201		{object}	models.SnapshotMetadata
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/snapshots [post]
func (h *Handler) CreateSnapshot(w http.ResponseWriter, r *http.Request) {
	var req SnapshotRequest
	if !decodeValid(w, r, &req) {
		return
	}
	meta, err := h.svc.Checkpoint(r.Context(), req.Name)
	if err != nil {
		writeError(w, "create snapshot", err)
		return
	}
	writeJSON(w, http.StatusCreated, meta)
}

// RestoreSnapshot handles POST /api/snapshots/{name}/restore.
//
//	@Summary		Replace the registry with a checkpoint
//	@Tags			snapshots
//	@Produce		json
//	@Param			name	path		string	true	"Checkpoint name"
//	@Success		200		{object}	MutationResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/snapshots/{name}/restore [post]
func (h *Handler) RestoreSnapshot(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Restore(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, "restore snapshot", err)
		return
	}
	writeResult(w, res, false)
}

// RenameSnapshot handles POST /api/snapshots/{name}/rename.
//
//	@Summary		Rename a checkpoint
//	@Tags			snapshots
//	@Accept			json
//	@Produce		json
//	@Param			name	path		string			true	"Current checkpoint name"
//	@Param			body	body		SnapshotRequest	true	"New name"
//	@Success		200		{object}	models.SnapshotMetadata
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/snapshots/{name}/rename [post]
func (h *Handler) RenameSnapshot(w http.ResponseWriter, r *http.Request) {
	var req SnapshotRequest
	if !decodeValid(w, r, &req) {
		return
	}
	meta, err := h.svc.RenameSnapshot(r.Context(), chi.URLParam(r, "name"), req.Name)
	if err != nil {
		writeError(w, "rename snapshot", err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

// DeleteSnapshot handles DELETE /api/snapshots/{name}.
//
//	@Summary		Remove a checkpoint
//	@Tags			snapshots
//	@Param			name	path	string	true	"Checkpoint name"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/snapshots/{name} [delete]
func (h *Handler) DeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteSnapshot(r.Context(), chi.URLParam(r, "name")); err != nil {
		writeError(w, "delete snapshot", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
