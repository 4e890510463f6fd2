package wiki

import (
	"context"
	"errors"
	"fmt"

	"wikiflow/internal/domain"
	models "wikiflow/internal/domain/models/wiki"
	wikiRepo "wikiflow/internal/domain/repositories/wiki"
)

// treeOps holds the structural helpers shared by direct edits and the merge engine
type treeOps struct {
	nodeRepo    wikiRepo.NodeRepository
	spaceRepo   wikiRepo.SpaceRepository
	contribRepo wikiRepo.ContributionRepository
}

// loadParent returns parentID's node, which must be a group
func (t *treeOps) loadParent(ctx context.Context, parentID string) (*models.Node, error) {
	parent, err := t.nodeRepo.GetByID(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("parent %s: %w", parentID, err)
	}
	if !parent.IsGroup {
		return nil, domain.NewValidationError("%q is a page; only groups can contain other nodes", parent.Title)
	}
	return parent, nil
}

// checkNoCycle walks up from newParentID and fails if it meets nodeID
func (t *treeOps) checkNoCycle(ctx context.Context, nodeID, newParentID string) error {
	seen := make(map[string]bool)
	for id := newParentID; id != "" && !seen[id]; {
		if id == nodeID {
			return domain.NewValidationError("cannot move %s under itself or one of its descendants", nodeID)
		}
		seen[id] = true

		n, err := t.nodeRepo.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("walk ancestors of %s: %w", newParentID, err)
		}
		if n.ParentID == nil {
			break
		}
		id = *n.ParentID
	}
	return nil
}

// rootOf follows parent pointers to the top of the node's tree.
// Bounds are not used because merges insert nodes before the rebuild.
func (t *treeOps) rootOf(ctx context.Context, node *models.Node) (*models.Node, error) {
	root := node
	seen := map[string]bool{node.ID: true}
	for root.ParentID != nil && !seen[*root.ParentID] {
		seen[*root.ParentID] = true
		parent, err := t.nodeRepo.GetByID(ctx, *root.ParentID)
		if err != nil {
			return nil, fmt.Errorf("walk ancestors of %s: %w", node.ID, err)
		}
		root = parent
	}
	return root, nil
}

// spaceOf returns the space whose root group holds the node
func (t *treeOps) spaceOf(ctx context.Context, node *models.Node) (*models.Space, error) {
	root, err := t.rootOf(ctx, node)
	if err != nil {
		return nil, err
	}
	space, err := t.spaceRepo.GetByRootGroup(ctx, root.ID)
	if err != nil {
		return nil, fmt.Errorf("space of node %s: %w", node.ID, err)
	}
	return space, nil
}

// isSpaceRoot reports whether the node is some space's root group
func (t *treeOps) isSpaceRoot(ctx context.Context, nodeID string) (bool, error) {
	_, err := t.spaceRepo.GetByRootGroup(ctx, nodeID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrNotFound):
		return false, nil
	}
	return false, err
}

// refreshRoutes recomputes the route of node and every descendant from the
// parent's route. slug replaces the node's last segment when non-empty.
// Returns the routes that stopped being valid.
func (t *treeOps) refreshRoutes(ctx context.Context, node *models.Node, slug string) ([]string, error) {
	if node.ParentID == nil {
		return nil, nil
	}
	parent, err := t.nodeRepo.GetByID(ctx, *node.ParentID)
	if err != nil {
		return nil, fmt.Errorf("parent of %s: %w", node.ID, err)
	}
	if slug == "" {
		slug = lastSegment(node.Route)
	}

	var stale []string
	routes := map[string]string{node.ID: joinRoute(parent.Route, slug)}
	if node.Route != routes[node.ID] {
		stale = append(stale, node.Route)
		if err := t.nodeRepo.UpdateRoute(ctx, node.ID, routes[node.ID]); err != nil {
			return nil, err
		}
		node.Route = routes[node.ID]
	}

	// Depth order guarantees a parent's new route is known before its children
	descendants, err := t.nodeRepo.ListDescendants(ctx, node.ID)
	if err != nil {
		return nil, fmt.Errorf("list descendants of %s: %w", node.ID, err)
	}
	for _, d := range descendants {
		route := joinRoute(routes[*d.ParentID], lastSegment(d.Route))
		routes[d.ID] = route
		if d.Route == route {
			continue
		}
		stale = append(stale, d.Route)
		if err := t.nodeRepo.UpdateRoute(ctx, d.ID, route); err != nil {
			return nil, err
		}
	}
	return stale, nil
}

// deleteSubtree deletes the node's descendants deepest first, then the node,
// detaching contribution links on the way. Returns every deleted node.
func (t *treeOps) deleteSubtree(ctx context.Context, node *models.Node) ([]models.Node, error) {
	descendants, err := t.nodeRepo.ListDescendants(ctx, node.ID)
	if err != nil {
		return nil, fmt.Errorf("list descendants of %s: %w", node.ID, err)
	}

	victims := make([]models.Node, 0, len(descendants)+1)
	for i := len(descendants) - 1; i >= 0; i-- {
		victims = append(victims, descendants[i])
	}
	victims = append(victims, *node)

	for _, v := range victims {
		if err := t.contribRepo.DetachTarget(ctx, v.ID); err != nil {
			return nil, fmt.Errorf("detach contributions from %s: %w", v.ID, err)
		}
		if err := t.nodeRepo.Delete(ctx, v.ID); err != nil {
			return nil, fmt.Errorf("delete node %s: %w", v.ID, err)
		}
	}
	return victims, nil
}
