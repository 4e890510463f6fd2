package handler

import (
	"log/slog"
	"net/http"

	wikiSvc "wikiflow/internal/domain/services/wiki"
	"wikiflow/internal/httputil"
)

// ContributionHandler handles the contributions of a batch
type ContributionHandler struct {
	contribService wikiSvc.ContributionService
	logger         *slog.Logger
}

// NewContributionHandler creates a new contribution handler
func NewContributionHandler(contribService wikiSvc.ContributionService, logger *slog.Logger) *ContributionHandler {
	return &ContributionHandler{
		contribService: contribService,
		logger:         logger,
	}
}

// ListContributions returns a batch's contributions in sequence order
// GET /api/batches/{id}/contributions
func (h *ContributionHandler) ListContributions(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	batchID, ok := PathParam(w, r, "id", "Batch ID")
	if !ok {
		return
	}

	contributions, err := h.contribService.ListContributions(r.Context(), p, batchID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, contributions)
}

// CreateContribution appends an operation to a Draft batch
// POST /api/batches/{id}/contributions
func (h *ContributionHandler) CreateContribution(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	batchID, ok := PathParam(w, r, "id", "Batch ID")
	if !ok {
		return
	}

	var req wikiSvc.CreateContributionRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.BatchID = batchID

	contribution, err := h.contribService.CreateContribution(r.Context(), p, &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, contribution)
}

// UpdateContribution changes the proposed fields of a contribution
// PATCH /api/contributions/{id}
func (h *ContributionHandler) UpdateContribution(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	contributionID, ok := PathParam(w, r, "id", "Contribution ID")
	if !ok {
		return
	}

	var fields wikiSvc.ContributionFields
	if err := httputil.ParseJSON(w, r, &fields); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	contribution, err := h.contribService.UpdateContribution(r.Context(), p, contributionID, &fields)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, contribution)
}

// DeleteContribution removes a contribution and renumbers the rest
// DELETE /api/contributions/{id}
func (h *ContributionHandler) DeleteContribution(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	contributionID, ok := PathParam(w, r, "id", "Contribution ID")
	if !ok {
		return
	}

	if err := h.contribService.DeleteContribution(r.Context(), p, contributionID); err != nil {
		handleError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetDiff compares an Edit contribution with the snapshot it was made against
// GET /api/contributions/{id}/diff
func (h *ContributionHandler) GetDiff(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	contributionID, ok := PathParam(w, r, "id", "Contribution ID")
	if !ok {
		return
	}

	diff, err := h.contribService.GetContributionDiff(r.Context(), p, contributionID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, diff)
}
