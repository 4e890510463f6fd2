package handler

import (
	"log/slog"
	"net/http"

	wikiSvc "wikiflow/internal/domain/services/wiki"
	"wikiflow/internal/httputil"
)

// SpaceHandler handles spaces, their trees and draft batches
type SpaceHandler struct {
	spaceService wikiSvc.SpaceService
	treeService  wikiSvc.TreeService
	batchService wikiSvc.BatchService
	logger       *slog.Logger
}

// NewSpaceHandler creates a new space handler
func NewSpaceHandler(
	spaceService wikiSvc.SpaceService,
	treeService wikiSvc.TreeService,
	batchService wikiSvc.BatchService,
	logger *slog.Logger,
) *SpaceHandler {
	return &SpaceHandler{
		spaceService: spaceService,
		treeService:  treeService,
		batchService: batchService,
		logger:       logger,
	}
}

// CreateSpace creates a space and its root group
// POST /api/spaces
func (h *SpaceHandler) CreateSpace(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req wikiSvc.CreateSpaceRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	space, err := h.spaceService.CreateSpace(r.Context(), p, &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, space)
}

// ListSpaces returns every space
// GET /api/spaces
func (h *SpaceHandler) ListSpaces(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	spaces, err := h.spaceService.ListSpaces(r.Context(), p)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, spaces)
}

// GetSpace retrieves a space by ID
// GET /api/spaces/{id}
func (h *SpaceHandler) GetSpace(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	spaceID, ok := PathParam(w, r, "id", "Space ID")
	if !ok {
		return
	}

	space, err := h.spaceService.GetSpace(r.Context(), p, spaceID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, space)
}

// GetTree returns the nested live tree of a space
// GET /api/spaces/{id}/tree
func (h *SpaceHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	spaceID, ok := PathParam(w, r, "id", "Space ID")
	if !ok {
		return
	}

	tree, err := h.treeService.GetTree(r.Context(), p, spaceID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, tree)
}

// GetPreview returns the tree the batch would produce if merged now
// GET /api/spaces/{id}/preview?batch=ID
func (h *SpaceHandler) GetPreview(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	spaceID, ok := PathParam(w, r, "id", "Space ID")
	if !ok {
		return
	}

	batchID := r.URL.Query().Get("batch")
	if batchID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "batch query parameter is required")
		return
	}

	preview, err := h.treeService.GetMergedTreePreview(r.Context(), p, spaceID, batchID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, preview)
}

// GetOrCreateDraft returns the caller's draft batch in the space
// POST /api/spaces/{id}/draft-batch
func (h *SpaceHandler) GetOrCreateDraft(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	spaceID, ok := PathParam(w, r, "id", "Space ID")
	if !ok {
		return
	}

	// Body is optional
	var req wikiSvc.DraftBatchRequest
	if r.ContentLength != 0 {
		if err := httputil.ParseJSON(w, r, &req); err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	batch, err := h.batchService.GetOrCreateDraft(r.Context(), p, spaceID, req.Title)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, batch)
}
