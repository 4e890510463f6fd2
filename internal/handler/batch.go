package handler

import (
	"context"
	"log/slog"
	"net/http"

	"wikiflow/internal/domain/models"
	"wikiflow/internal/domain/models/wiki"
	wikiSvc "wikiflow/internal/domain/services/wiki"
	"wikiflow/internal/httputil"
)

// BatchHandler handles the review workflow of contribution batches
type BatchHandler struct {
	batchService wikiSvc.BatchService
	logger       *slog.Logger
}

// NewBatchHandler creates a new batch handler
func NewBatchHandler(batchService wikiSvc.BatchService, logger *slog.Logger) *BatchHandler {
	return &BatchHandler{
		batchService: batchService,
		logger:       logger,
	}
}

// ListMyBatches lists the caller's batches
// GET /api/batches?status=Draft
func (h *BatchHandler) ListMyBatches(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var status *wiki.BatchStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := wiki.BatchStatus(raw)
		if !s.Valid() {
			httputil.RespondError(w, http.StatusBadRequest, "unknown batch status "+raw)
			return
		}
		status = &s
	}

	batches, err := h.batchService.ListMyBatches(r.Context(), p, status)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, batches)
}

// ListPending returns the reviewer queue
// GET /api/batches/pending
func (h *BatchHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	batches, err := h.batchService.ListPending(r.Context(), p)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, batches)
}

// GetBatch retrieves a batch by ID
// GET /api/batches/{id}
func (h *BatchHandler) GetBatch(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.batchService.GetBatch)
}

// Submit moves a Draft batch to Submitted
// POST /api/batches/{id}/submit
func (h *BatchHandler) Submit(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.batchService.Submit)
}

// Withdraw returns a Submitted batch to Draft
// POST /api/batches/{id}/withdraw
func (h *BatchHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.batchService.Withdraw)
}

// StartReview marks a Submitted batch Under Review
// POST /api/batches/{id}/start-review
func (h *BatchHandler) StartReview(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.batchService.StartReview)
}

// Reopen returns a Rejected batch to Draft
// POST /api/batches/{id}/reopen
func (h *BatchHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.batchService.Reopen)
}

// Approve approves a pending batch
// POST /api/batches/{id}/approve
func (h *BatchHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.batchService.Approve)
}

// Reject rejects a pending batch
// POST /api/batches/{id}/reject
func (h *BatchHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.batchService.Reject)
}

// Merge applies an Approved batch to the live tree
// POST /api/batches/{id}/merge
func (h *BatchHandler) Merge(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	batchID, ok := PathParam(w, r, "id", "Batch ID")
	if !ok {
		return
	}

	result, err := h.batchService.Merge(r.Context(), p, batchID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}

type batchAction func(ctx context.Context, p models.Principal, batchID string) (*wiki.Batch, error)

type reviewAction func(ctx context.Context, p models.Principal, batchID string, comment *string) (*wiki.Batch, error)

func (h *BatchHandler) transition(w http.ResponseWriter, r *http.Request, action batchAction) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	batchID, ok := PathParam(w, r, "id", "Batch ID")
	if !ok {
		return
	}

	batch, err := action(r.Context(), p, batchID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, batch)
}

func (h *BatchHandler) review(w http.ResponseWriter, r *http.Request, action reviewAction) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	batchID, ok := PathParam(w, r, "id", "Batch ID")
	if !ok {
		return
	}

	// Comment is optional
	var req wikiSvc.ReviewRequest
	if r.ContentLength != 0 {
		if err := httputil.ParseJSON(w, r, &req); err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	batch, err := action(r.Context(), p, batchID, req.Comment)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, batch)
}
