package wiki

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"wikiflow/internal/capabilities"
	"wikiflow/internal/domain"
	domainModels "wikiflow/internal/domain/models"
	models "wikiflow/internal/domain/models/wiki"
	"wikiflow/internal/domain/repositories"
	wikiRepo "wikiflow/internal/domain/repositories/wiki"
	"wikiflow/internal/domain/services"
	wikiSvc "wikiflow/internal/domain/services/wiki"
)

type reorderService struct {
	ops          *treeOps
	batchRepo    wikiRepo.BatchRepository
	txManager    repositories.TransactionManager
	rebuilder    wikiSvc.TreeRebuilder
	batches      wikiSvc.BatchService
	contribution wikiSvc.ContributionService
	publisher    *publisher
	authorizer   services.Authorizer
	logger       *slog.Logger
}

// NewReorderService creates the drag-and-drop service. Callers without the
// write permission, or who name a batch, get contributions instead of live changes.
func NewReorderService(
	nodeRepo wikiRepo.NodeRepository,
	spaceRepo wikiRepo.SpaceRepository,
	batchRepo wikiRepo.BatchRepository,
	contribRepo wikiRepo.ContributionRepository,
	txManager repositories.TransactionManager,
	rebuilder wikiSvc.TreeRebuilder,
	batches wikiSvc.BatchService, // For the auto-created draft batch
	contribution wikiSvc.ContributionService, // For recording Move/Reorder proposals
	indexer wikiSvc.SearchIndexer,
	routeCache wikiSvc.RouteCache,
	authorizer services.Authorizer,
	logger *slog.Logger,
) wikiSvc.ReorderService {
	return &reorderService{
		ops:          &treeOps{nodeRepo: nodeRepo, spaceRepo: spaceRepo, contribRepo: contribRepo},
		batchRepo:    batchRepo,
		txManager:    txManager,
		rebuilder:    rebuilder,
		batches:      batches,
		contribution: contribution,
		publisher:    &publisher{nodeRepo: nodeRepo, indexer: indexer, routeCache: routeCache, logger: logger},
		authorizer:   authorizer,
		logger:       logger,
	}
}

func (s *reorderService) Reorder(ctx context.Context, p domainModels.Principal, req *wikiSvc.ReorderRequest) (*wikiSvc.ReorderResult, error) {
	if req.NodeID == "" {
		return nil, domain.NewValidationError("node id is required")
	}
	if req.NewIndex < 0 {
		return nil, domain.NewValidationError("new_index must not be negative")
	}
	if err := validateSiblings(req.Siblings); err != nil {
		return nil, err
	}
	if req.NewParentID != nil && *req.NewParentID == "" {
		req.NewParentID = nil
	}

	switch {
	case models.IsTempID(req.NodeID):
		return s.reorderDraft(ctx, p, req)
	case req.BatchID != nil || !s.authorizer.Can(p, capabilities.ActionWrite):
		return s.reorderAsContribution(ctx, p, req)
	}
	return s.reorderDirect(ctx, p, req)
}

// reorderDraft repositions a node that only exists as a Create in a Draft batch
func (s *reorderService) reorderDraft(ctx context.Context, p domainModels.Principal, req *wikiSvc.ReorderRequest) (*wikiSvc.ReorderResult, error) {
	if req.BatchID == nil || *req.BatchID == "" {
		return nil, domain.NewValidationError("batch_id is required to move unsaved node %s", req.NodeID)
	}

	fields := &wikiSvc.ContributionFields{
		ProposedSortOrder: &req.NewIndex,
		SiblingsOrder:     append([]string{}, req.Siblings...),
	}
	if req.NewParentID != nil {
		if *req.NewParentID == req.NodeID {
			return nil, domain.NewValidationError("cannot move %s under itself", req.NodeID)
		}
		fields.ParentRef = req.NewParentID
	}

	var c *models.Contribution
	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		batch, err := s.batchRepo.GetForUpdate(ctx, *req.BatchID)
		if err != nil {
			return err
		}
		if err := requireDraftOwner(p, batch); err != nil {
			return err
		}
		draft, err := s.ops.contribRepo.FindByTempID(ctx, batch.ID, req.NodeID)
		if err != nil {
			return err
		}
		// Joins this transaction
		c, err = s.contribution.UpdateContribution(ctx, p, draft.ID, fields)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &wikiSvc.ReorderResult{
		Mode:         wikiSvc.ReorderModeDraft,
		BatchID:      c.BatchID,
		Contribution: c,
	}, nil
}

// reorderAsContribution records the drop as a Move (new parent) or Reorder contribution
func (s *reorderService) reorderAsContribution(ctx context.Context, p domainModels.Principal, req *wikiSvc.ReorderRequest) (*wikiSvc.ReorderResult, error) {
	node, err := s.ops.nodeRepo.GetByID(ctx, req.NodeID)
	if err != nil {
		return nil, err
	}

	batchID := ""
	if req.BatchID != nil && *req.BatchID != "" {
		batchID = *req.BatchID
	} else {
		space, err := s.ops.spaceOf(ctx, node)
		if err != nil {
			return nil, err
		}
		batch, err := s.batches.GetOrCreateDraft(ctx, p, space.ID, "")
		if err != nil {
			return nil, err
		}
		batchID = batch.ID
	}

	index := req.NewIndex
	contribReq := &wikiSvc.CreateContributionRequest{BatchID: batchID}
	contribReq.TargetDocumentID = &node.ID
	if len(req.Siblings) > 0 {
		contribReq.SiblingsOrder = append([]string{}, req.Siblings...)
	}
	if req.NewParentID != nil && !node.ParentIs(*req.NewParentID) {
		contribReq.Operation = models.OpMove
		contribReq.NewParentRef = req.NewParentID
		contribReq.NewSortOrder = &index
	} else {
		contribReq.Operation = models.OpReorder
		contribReq.ProposedSortOrder = &index
	}

	c, err := s.contribution.CreateContribution(ctx, p, contribReq)
	if err != nil {
		return nil, err
	}
	return &wikiSvc.ReorderResult{
		Mode:         wikiSvc.ReorderModeContribution,
		BatchID:      batchID,
		Contribution: c,
	}, nil
}

// reorderDirect changes the live tree in one transaction and rebuilds it
func (s *reorderService) reorderDirect(ctx context.Context, p domainModels.Principal, req *wikiSvc.ReorderRequest) (*wikiSvc.ReorderResult, error) {
	if err := s.authorizer.Require(p, capabilities.ActionWrite); err != nil {
		return nil, err
	}

	var changes changeSet
	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		node, err := s.ops.nodeRepo.GetByID(ctx, req.NodeID)
		if err != nil {
			return err
		}

		if req.NewParentID != nil && !node.ParentIs(*req.NewParentID) {
			if node.ParentID == nil {
				return domain.NewValidationError("%q is the root of a space and cannot be moved", node.Title)
			}
			if _, err := s.ops.loadParent(ctx, *req.NewParentID); err != nil {
				return err
			}
			if err := s.ops.checkNoCycle(ctx, node.ID, *req.NewParentID); err != nil {
				return err
			}
			applyMove(node, *req.NewParentID, &req.NewIndex)
			node.ModifiedAt = now()
			if err := s.ops.nodeRepo.Update(ctx, node); err != nil {
				return fmt.Errorf("move node: %w", err)
			}
			stale, err := s.ops.refreshRoutes(ctx, node, "")
			if err != nil {
				return err
			}
			changes.expire(stale...)
			changes.touch(node.ID)
		}

		listed := false
		for i, id := range req.Siblings {
			if models.IsTempID(id) {
				continue
			}
			if id == node.ID {
				listed = true
			}
			err := s.ops.nodeRepo.UpdateSortOrder(ctx, id, i)
			if errors.Is(err, domain.ErrNotFound) {
				s.logger.Debug("skipping missing sibling", "node_id", id)
				continue
			}
			if err != nil {
				return fmt.Errorf("position sibling %s: %w", id, err)
			}
		}
		if !listed {
			if err := s.ops.nodeRepo.UpdateSortOrder(ctx, node.ID, req.NewIndex); err != nil {
				return fmt.Errorf("position node: %w", err)
			}
		}

		_, err = s.rebuilder.Rebuild(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publisher.publish(ctx, &changes)
	s.logger.Info("node reordered",
		"node_id", req.NodeID,
		"new_parent_id", req.NewParentID,
		"new_index", req.NewIndex,
	)
	return &wikiSvc.ReorderResult{Mode: wikiSvc.ReorderModeDirect}, nil
}
