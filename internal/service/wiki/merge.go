package wiki

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"wikiflow/internal/domain"
	models "wikiflow/internal/domain/models/wiki"
	wikiSvc "wikiflow/internal/domain/services/wiki"
)

// mergeEngine applies a batch's contributions to the live tree.
// It runs inside the caller's transaction and never commits on its own.
type mergeEngine struct {
	ops    *treeOps
	logger *slog.Logger
}

// mergeState is local to one merge call
type mergeState struct {
	tempIDs models.TempIDMap
	// baseline is each existing node's modified_at before this merge touched it
	baseline map[string]time.Time
	created  map[string]bool
	deleted  map[string]bool
	changes  changeSet
	result   *wikiSvc.MergeResult
}

func newMergeState() *mergeState {
	return &mergeState{
		tempIDs:  make(models.TempIDMap),
		baseline: make(map[string]time.Time),
		created:  make(map[string]bool),
		deleted:  make(map[string]bool),
		result: &wikiSvc.MergeResult{
			Created: make(map[string]string),
			Touched: []string{},
			Deleted: []string{},
		},
	}
}

// apply runs every contribution in sequence order. The first error aborts the merge.
func (e *mergeEngine) apply(ctx context.Context, contributions []models.Contribution) (*mergeState, error) {
	st := newMergeState()
	for i := range contributions {
		c := &contributions[i]
		if err := e.applyOne(ctx, st, c); err != nil {
			var refErr *domain.ReferenceError
			if errors.As(err, &refErr) && refErr.Sequence == 0 {
				refErr.Sequence = c.Sequence
			}
			return nil, fmt.Errorf("apply %s #%d on %s: %w", c.Kind(), c.Sequence, describeTarget(c), err)
		}
		st.result.Applied++
	}
	return st, nil
}

func describeTarget(c *models.Contribution) string {
	if target := c.Operation.Target(); target != "" {
		return target
	}
	return c.TempID()
}

func (e *mergeEngine) applyOne(ctx context.Context, st *mergeState, c *models.Contribution) error {
	var err error
	switch op := c.Operation.(type) {
	case *models.CreateOp:
		err = e.applyCreate(ctx, st, op)
	case *models.EditOp:
		err = e.applyEdit(ctx, st, c, op)
	case *models.DeleteOp:
		err = e.applyDelete(ctx, st, op)
	case *models.MoveOp:
		err = e.applyMove(ctx, st, op)
	case *models.ReorderOp:
		err = e.applyReorder(ctx, st, op)
	default:
		return domain.NewValidationError("contribution %s has no operation", c.ID)
	}
	if err != nil {
		return err
	}

	if len(c.SiblingsOrder) > 0 && c.Kind() != models.OpEdit && c.Kind() != models.OpDelete {
		return e.applySiblings(ctx, st, c.SiblingsOrder)
	}
	return nil
}

func (e *mergeEngine) applyCreate(ctx context.Context, st *mergeState, op *models.CreateOp) error {
	parentID, err := op.ResolveParentRef(st.tempIDs)
	if err != nil {
		return err
	}
	parent, err := e.ops.loadParent(ctx, parentID)
	if err != nil {
		return err
	}
	siblings, err := e.ops.nodeRepo.ListChildren(ctx, parent.ID)
	if err != nil {
		return fmt.Errorf("list children of %s: %w", parent.ID, err)
	}

	route := joinRoute(parent.Route, uniqueSlug(siblings, createSlug(op)))
	node := newNodeFromCreate(op, parent.ID, route, now())
	if err := e.ops.nodeRepo.Create(ctx, &node); err != nil {
		return fmt.Errorf("create node: %w", err)
	}

	st.tempIDs[op.TempID] = node.ID
	st.created[node.ID] = true
	st.result.Created[op.TempID] = node.ID
	st.result.Touched = append(st.result.Touched, node.ID)
	st.changes.touch(node.ID)
	return nil
}

// load fetches a node and remembers its pre-merge modified_at on first sight.
func (e *mergeEngine) load(ctx context.Context, st *mergeState, id string) (*models.Node, error) {
	node, err := e.ops.nodeRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, seen := st.baseline[node.ID]; !seen && !st.created[node.ID] {
		st.baseline[node.ID] = node.ModifiedAt
	}
	return node, nil
}

func (e *mergeEngine) applyEdit(ctx context.Context, st *mergeState, c *models.Contribution, op *models.EditOp) error {
	node, err := e.load(ctx, st, op.TargetID)
	if err != nil {
		return err
	}

	// First merge wins: any change since the snapshot conflicts, even on other fields
	if base, ok := st.baseline[node.ID]; ok && c.Snapshot != nil && base.After(c.Snapshot.OriginalModifiedAt) {
		return &domain.ConflictError{
			Message:      fmt.Sprintf("%q was changed after contribution #%d was proposed", node.Title, c.Sequence),
			ResourceType: "document",
			ResourceID:   node.ID,
		}
	}

	wasGroup := node.IsGroup
	slug := applyEdit(node, op)
	if wasGroup && !node.IsGroup {
		children, err := e.ops.nodeRepo.ListChildren(ctx, node.ID)
		if err != nil {
			return fmt.Errorf("list children of %s: %w", node.ID, err)
		}
		if len(children) > 0 {
			return domain.NewValidationError("%q still has children and cannot become a page", node.Title)
		}
	}

	node.ModifiedAt = now()
	if err := e.ops.nodeRepo.Update(ctx, node); err != nil {
		return fmt.Errorf("update node: %w", err)
	}
	if slug != "" {
		stale, err := e.ops.refreshRoutes(ctx, node, slug)
		if err != nil {
			return err
		}
		st.changes.expire(stale...)
	}

	st.result.Touched = append(st.result.Touched, node.ID)
	st.changes.touch(node.ID)
	return nil
}

func (e *mergeEngine) applyDelete(ctx context.Context, st *mergeState, op *models.DeleteOp) error {
	if st.deleted[op.TargetID] {
		// Already removed with an ancestor earlier in this batch
		return nil
	}
	node, err := e.load(ctx, st, op.TargetID)
	if err != nil {
		return err
	}
	isRoot, err := e.ops.isSpaceRoot(ctx, node.ID)
	if err != nil {
		return err
	}
	if isRoot {
		return domain.NewValidationError("%q is the root of a space and cannot be deleted", node.Title)
	}

	removed, err := e.ops.deleteSubtree(ctx, node)
	if err != nil {
		return err
	}
	for _, n := range removed {
		st.deleted[n.ID] = true
		st.result.Deleted = append(st.result.Deleted, n.ID)
	}
	st.changes.remove(removed)
	return nil
}

func (e *mergeEngine) applyMove(ctx context.Context, st *mergeState, op *models.MoveOp) error {
	node, err := e.load(ctx, st, op.TargetID)
	if err != nil {
		return err
	}
	parentID, err := op.ResolveNewParentRef(st.tempIDs)
	if err != nil {
		return err
	}
	if node.ParentID == nil {
		return domain.NewValidationError("%q is the root of a space and cannot be moved", node.Title)
	}
	if _, err := e.ops.loadParent(ctx, parentID); err != nil {
		return err
	}
	if err := e.ops.checkNoCycle(ctx, node.ID, parentID); err != nil {
		return err
	}

	applyMove(node, parentID, op.NewSortOrder)
	node.ModifiedAt = now()
	if err := e.ops.nodeRepo.Update(ctx, node); err != nil {
		return fmt.Errorf("update node: %w", err)
	}
	stale, err := e.ops.refreshRoutes(ctx, node, "")
	if err != nil {
		return err
	}

	st.changes.expire(stale...)
	st.result.Touched = append(st.result.Touched, node.ID)
	st.changes.touch(node.ID)
	return nil
}

func (e *mergeEngine) applyReorder(ctx context.Context, st *mergeState, op *models.ReorderOp) error {
	node, err := e.load(ctx, st, op.TargetID)
	if err != nil {
		return err
	}
	if applyReorder(node, op) {
		if err := e.ops.nodeRepo.UpdateSortOrder(ctx, node.ID, node.SortOrder); err != nil {
			return fmt.Errorf("update sort order: %w", err)
		}
	}
	st.result.Touched = append(st.result.Touched, node.ID)
	return nil
}

// applySiblings rewrites sibling sort orders by list index. Siblings deleted
// earlier in the batch or otherwise gone are skipped.
func (e *mergeEngine) applySiblings(ctx context.Context, st *mergeState, siblings []string) error {
	for id, index := range siblingPositions(siblings, st.tempIDs) {
		if st.deleted[id] {
			continue
		}
		err := e.ops.nodeRepo.UpdateSortOrder(ctx, id, index)
		if errors.Is(err, domain.ErrNotFound) {
			e.logger.Debug("skipping missing sibling", "node_id", id)
			continue
		}
		if err != nil {
			return fmt.Errorf("update sort order of %s: %w", id, err)
		}
	}
	return nil
}
