package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/lorekeep/internal/graphservice"
	"github.com/starford/lorekeep/internal/integrity"
	"github.com/starford/lorekeep/internal/mutation"
)

// CreateLink handles POST /api/links.
//
//	@Summary		Create a semantic or hierarchical link
//	@Tags			links
//	@Accept			json
//	@Produce		json
//	@Param			body	body		LinkRequest	true	"Link to create"
//	@Success		201		{object}	MutationResponse
//	@Failure		400		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/links [post]
func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	var req LinkRequest
	if !decodeValid(w, r, &req) {
		return
	}
	kind, _ := integrity.ParseLinkKind(req.Kind)
	res, err := h.svc.Connect(r.Context(), mutation.LinkSpec{
		Source:       req.Source,
		Target:       req.Target,
		Verb:         req.Verb,
		InverseVerb:  req.InverseVerb,
		Hierarchical: kind == integrity.LinkHierarchical,
		Tags:         req.Tags,
	})
	if err != nil {
		writeError(w, "create link", err)
		return
	}
	writeResult(w, res, true)
}

// AnalyzeLink handles GET /api/analyze.
//
//	@Summary		Judge a proposed link without creating it
//	@Tags			integrity
//	@Produce		json
//	@Param			source	query		string	true	"Source id"
//	@Param			target	query		string	true	"Target id"
//	@Param			kind	query		string	false	"Link kind"	Enums(semantic, hierarchical, reified)
//	@Success		200		{object}	integrity.Report
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/analyze [get]
func (h *Handler) AnalyzeLink(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	source, target := q.Get("source"), q.Get("target")
	if source == "" || target == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("source and target are required"))
		return
	}
	kind, err := integrity.ParseLinkKind(q.Get("kind"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Analyze(r.Context(), source, target, kind))
}

// Reparent handles POST /api/reparent.
//
//	@Summary		Move or reference an entity under a new parent
//	@Tags			links
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ReparentRequest	true	"Move to perform"
//	@Success		200		{object}	MutationResponse
//	@Failure		400		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/reparent [post]
func (h *Handler) Reparent(w http.ResponseWriter, r *http.Request) {
	var req ReparentRequest
	if !decodeValid(w, r, &req) {
		return
	}
	res, err := h.svc.Reparent(r.Context(), req.Source, req.Target, req.OldParent, req.IsReference)
	if err != nil {
		writeError(w, "reparent", err)
		return
	}
	writeResult(w, res, false)
}

// ReifyLink handles POST /api/links/{id}/reify.
//
//	@Summary		Promote a link into a reified link
//	@Tags			links
//	@Produce		json
//	@Param			id	path		string	true	"Link id"
//	@Success		200	{object}	MutationResponse
//	@Security		BearerAuth
//	@Router			/links/{id}/reify [post]
func (h *Handler) ReifyLink(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ReifyLink(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "reify link", err)
		return
	}
	writeResult(w, res, false)
}

// ReifyNode handles POST /api/notes/{id}/reify.
//
//	@Summary		Promote a note into a container
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	MutationResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/reify [post]
func (h *Handler) ReifyNode(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ReifyNode(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "reify node", err)
		return
	}
	writeResult(w, res, false)
}

// ReifyNodeToLink handles POST /api/notes/{id}/reify-link.
//
//	@Summary		Turn a node into a reified link between two others
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Node id"
//	@Param			body	body		ReifyToLinkRequest	true	"Endpoints"
//	@Success		200		{object}	MutationResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/reify-link [post]
func (h *Handler) ReifyNodeToLink(w http.ResponseWriter, r *http.Request) {
	var req ReifyToLinkRequest
	if !decodeValid(w, r, &req) {
		return
	}
	res, err := h.svc.ReifyNodeToLink(r.Context(), chi.URLParam(r, "id"), req.Source, req.Target)
	if err != nil {
		writeError(w, "reify node to link", err)
		return
	}
	writeResult(w, res, false)
}

// Drilldown handles GET /api/drilldown.
//
//	@Summary		Materialize the bounded view around a focus
//	@Tags			graph
//	@Produce		json
//	@Param			focus			query		string	false	"Focus id; empty shows the top level"
//	@Param			budget			query		int		false	"Maximum number of nodes"
//	@Param			depth			query		int		false	"Maximum traversal depth"
//	@Param			author_notes	query		bool	false	"Include author notes; unset uses the configured default"
//	@Success		200				{object}	DrilldownResponse
//	@Security		BearerAuth
//	@Router			/drilldown [get]
func (h *Handler) Drilldown(w http.ResponseWriter, r *http.Request) {
	view, edges := h.svc.Drilldown(r.Context(), graphservice.DrilldownQuery{
		FocusID:     r.URL.Query().Get("focus"),
		NodeBudget:  queryInt(r, "budget"),
		MaxDepth:    queryInt(r, "depth"),
		AuthorNotes: queryOptBool(r, "author_notes"),
	})
	writeJSON(w, http.StatusOK, DrilldownResponse{Nodes: view, Edges: nonNilSlice(edges)})
}

// Hierarchy handles GET /api/hierarchy.
//
//	@Summary		Child to parents map over hierarchical edges
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	map[string][]string
//	@Security		BearerAuth
//	@Router			/hierarchy [get]
func (h *Handler) Hierarchy(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.HierarchyMap(r.Context()))
}

// Integrity handles GET /api/integrity.
//
//	@Summary		Analyze every link in the registry
//	@Tags			integrity
//	@Produce		json
//	@Param			flagged	query		bool	false	"Only return links that are not approved"
//	@Success		200		{object}	IntegrityResponse
//	@Security		BearerAuth
//	@Router			/integrity [get]
func (h *Handler) Integrity(w http.ResponseWriter, r *http.Request) {
	reports := h.svc.IntegrityReport(r.Context(), queryBool(r, "flagged"))
	writeJSON(w, http.StatusOK, IntegrityResponse{
		Reports: reports,
		Flagged: len(integrity.Flagged(reports)),
	})
}

// Cycles handles GET /api/cycles.
//
//	@Summary		List hierarchy loops already present
//	@Tags			integrity
//	@Produce		json
//	@Success		200	{object}	CyclesResponse
//	@Security		BearerAuth
//	@Router			/cycles [get]
func (h *Handler) Cycles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, CyclesResponse{Cycles: nonNilSlice(h.svc.Cycles(r.Context()))})
}

// Dangling handles GET /api/dangling.
//
//	@Summary		List references to entities that do not exist
//	@Tags			integrity
//	@Produce		json
//	@Success		200	{object}	map[string][]string
//	@Security		BearerAuth
//	@Router			/dangling [get]
func (h *Handler) Dangling(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Dangling(r.Context()))
}

// Purge handles POST /api/purge.
//
//	@Summary		Remove dangling links and child references
//	@Tags			integrity
//	@Produce		json
//	@Success		200	{object}	MutationResponse
//	@Security		BearerAuth
//	@Router			/purge [post]
func (h *Handler) Purge(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Purge(r.Context())
	if err != nil {
		writeError(w, "purge", err)
		return
	}
	writeResult(w, res, false)
}
