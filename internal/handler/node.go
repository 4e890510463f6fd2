package handler

import (
	"log/slog"
	"net/http"

	wikiSvc "wikiflow/internal/domain/services/wiki"
	"wikiflow/internal/httputil"
)

// NodeHandler handles direct edits of the live tree
type NodeHandler struct {
	nodeService    wikiSvc.NodeService
	reorderService wikiSvc.ReorderService
	logger         *slog.Logger
}

// NewNodeHandler creates a new node handler
func NewNodeHandler(nodeService wikiSvc.NodeService, reorderService wikiSvc.ReorderService, logger *slog.Logger) *NodeHandler {
	return &NodeHandler{
		nodeService:    nodeService,
		reorderService: reorderService,
		logger:         logger,
	}
}

// updateNodeDTO is the wire form of a node PATCH.
// Content uses OptionalString so an explicit null can be told apart from an absent field.
type updateNodeDTO struct {
	Title       *string                 `json:"title"`
	Content     httputil.OptionalString `json:"content"`
	IsPublished *bool                   `json:"is_published"`
	Slug        *string                 `json:"slug"`
}

// CreateNode creates a page or group under a live parent
// POST /api/nodes
func (h *NodeHandler) CreateNode(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req wikiSvc.CreateNodeRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	node, err := h.nodeService.CreateNode(r.Context(), p, &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, node)
}

// GetNode retrieves a node by ID
// GET /api/nodes/{id}
func (h *NodeHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	nodeID, ok := PathParam(w, r, "id", "Node ID")
	if !ok {
		return
	}

	node, err := h.nodeService.GetNode(r.Context(), p, nodeID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, node)
}

// UpdateNode applies a partial update
// PATCH /api/nodes/{id}
func (h *NodeHandler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	nodeID, ok := PathParam(w, r, "id", "Node ID")
	if !ok {
		return
	}

	var dto updateNodeDTO
	if err := httputil.ParseJSON(w, r, &dto); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req := &wikiSvc.UpdateNodeRequest{
		Title:       dto.Title,
		Content:     wikiSvc.OptionalContent{Present: dto.Content.Present, Value: dto.Content.Value},
		IsPublished: dto.IsPublished,
		Slug:        dto.Slug,
	}

	node, err := h.nodeService.UpdateNode(r.Context(), p, nodeID, req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, node)
}

// DeleteNode deletes a node and its subtree
// DELETE /api/nodes/{id}
func (h *NodeHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	nodeID, ok := PathParam(w, r, "id", "Node ID")
	if !ok {
		return
	}

	deleted, err := h.nodeService.DeleteNode(r.Context(), p, nodeID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]int{"deleted": deleted})
}

// GetBreadcrumbs returns the path from the space root to the node
// GET /api/nodes/{id}/breadcrumbs
func (h *NodeHandler) GetBreadcrumbs(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	nodeID, ok := PathParam(w, r, "id", "Node ID")
	if !ok {
		return
	}

	crumbs, err := h.nodeService.GetBreadcrumbs(r.Context(), p, nodeID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, crumbs)
}

// Reorder handles a drag-and-drop drop, either live or as a contribution
// POST /api/nodes/{id}/reorder
func (h *NodeHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	nodeID, ok := PathParam(w, r, "id", "Node ID")
	if !ok {
		return
	}

	var req wikiSvc.ReorderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.NodeID = nodeID

	result, err := h.reorderService.Reorder(r.Context(), p, &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}

// ResolvePage returns the published page at a route
// GET /api/pages/resolve?route=docs/guides/install
func (h *NodeHandler) ResolvePage(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	route := r.URL.Query().Get("route")
	if route == "" {
		httputil.RespondError(w, http.StatusBadRequest, "route query parameter is required")
		return
	}

	node, err := h.nodeService.ResolveRoute(r.Context(), p, route)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, node)
}
