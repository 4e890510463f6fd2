package wiki

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"wikiflow/internal/capabilities"
	"wikiflow/internal/domain"
	domainModels "wikiflow/internal/domain/models"
	models "wikiflow/internal/domain/models/wiki"
	wikiRepo "wikiflow/internal/domain/repositories/wiki"
	"wikiflow/internal/domain/services"
	wikiSvc "wikiflow/internal/domain/services/wiki"
)

type treeService struct {
	nodeRepo    wikiRepo.NodeRepository
	spaceRepo   wikiRepo.SpaceRepository
	batchRepo   wikiRepo.BatchRepository
	contribRepo wikiRepo.ContributionRepository
	authorizer  services.Authorizer
	logger      *slog.Logger
}

// NewTreeService creates the read side of the tree
func NewTreeService(
	nodeRepo wikiRepo.NodeRepository,
	spaceRepo wikiRepo.SpaceRepository,
	batchRepo wikiRepo.BatchRepository,
	contribRepo wikiRepo.ContributionRepository,
	authorizer services.Authorizer,
	logger *slog.Logger,
) wikiSvc.TreeService {
	return &treeService{
		nodeRepo:    nodeRepo,
		spaceRepo:   spaceRepo,
		batchRepo:   batchRepo,
		contribRepo: contribRepo,
		authorizer:  authorizer,
		logger:      logger,
	}
}

// liveNodes returns the space's root and every node inside its bounds
func (s *treeService) liveNodes(ctx context.Context, spaceID string) (*models.Node, []models.Node, error) {
	space, err := s.spaceRepo.GetByID(ctx, spaceID)
	if err != nil {
		return nil, nil, err
	}
	root, err := s.nodeRepo.GetByID(ctx, space.RootGroupID)
	if err != nil {
		return nil, nil, fmt.Errorf("root group of space %s: %w", space.ID, err)
	}
	nodes, err := s.nodeRepo.ListSubtree(ctx, root.Lft, root.Rgt)
	if err != nil {
		return nil, nil, fmt.Errorf("list subtree: %w", err)
	}
	return root, nodes, nil
}

// GetTree builds the nested tree from one range query. Nodes arrive in lft
// order, so every parent is seen before its children.
func (s *treeService) GetTree(ctx context.Context, p domainModels.Principal, spaceID string) (*models.TreeNode, error) {
	if err := s.authorizer.Require(p, capabilities.ActionRead); err != nil {
		return nil, err
	}
	root, nodes, err := s.liveNodes(ctx, spaceID)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*models.TreeNode, len(nodes))
	for i := range nodes {
		n := &nodes[i]
		byID[n.ID] = &models.TreeNode{
			ID:          n.ID,
			Title:       n.Title,
			IsGroup:     n.IsGroup,
			IsPublished: n.IsPublished,
			Route:       n.Route,
			Children:    []*models.TreeNode{},
		}
	}
	for i := range nodes {
		n := &nodes[i]
		if n.ID == root.ID || n.ParentID == nil {
			continue
		}
		if parent, ok := byID[*n.ParentID]; ok {
			parent.Children = append(parent.Children, byID[n.ID])
		}
	}

	tree, ok := byID[root.ID]
	if !ok {
		return nil, fmt.Errorf("root group %s missing from its own subtree: %w", root.ID, domain.ErrNotFound)
	}
	return tree, nil
}

// statusRank orders preview statuses; a node keeps the highest one it earns
var statusRank = map[models.PreviewStatus]int{
	models.PreviewLive:      0,
	models.PreviewReordered: 1,
	models.PreviewModified:  2,
	models.PreviewMoved:     3,
	models.PreviewNew:       4,
	models.PreviewDeleted:   5,
}

type previewNode struct {
	node   models.Node
	status models.PreviewStatus
}

func (v *previewNode) mark(status models.PreviewStatus) {
	if statusRank[status] > statusRank[v.status] {
		v.status = status
	}
}

// GetMergedTreePreview overlays the batch on the live tree in memory. New
// nodes keep their temp ids, and contributions whose references no longer
// resolve are left out.
func (s *treeService) GetMergedTreePreview(ctx context.Context, p domainModels.Principal, spaceID, batchID string) (*models.PreviewNode, error) {
	batch, err := s.batchRepo.GetByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if err := requireBatchAccess(s.authorizer, p, batch); err != nil {
		return nil, err
	}
	if batch.SpaceID != spaceID {
		return nil, domain.NewValidationError("batch %s belongs to another space", batch.ID)
	}

	root, nodes, err := s.liveNodes(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	contributions, err := s.contribRepo.ListByBatch(ctx, batch.ID)
	if err != nil {
		return nil, fmt.Errorf("list contributions: %w", err)
	}

	virtual := make(map[string]*previewNode, len(nodes))
	for _, n := range nodes {
		virtual[n.ID] = &previewNode{node: n, status: models.PreviewLive}
	}
	// Temp ids resolve to themselves: new nodes are keyed by them
	tempIDs := make(models.TempIDMap)

	for i := range contributions {
		c := &contributions[i]
		if !overlayContribution(virtual, tempIDs, c) {
			s.logger.Debug("preview skipped contribution",
				"batch_id", batch.ID,
				"sequence", c.Sequence,
				"operation", c.Kind(),
			)
			continue
		}
		if len(c.SiblingsOrder) > 0 && c.Kind() != models.OpEdit && c.Kind() != models.OpDelete {
			for id, index := range siblingPositions(c.SiblingsOrder, tempIDs) {
				if v, ok := virtual[id]; ok && v.node.SortOrder != index {
					v.node.SortOrder = index
					v.mark(models.PreviewReordered)
				}
			}
		}
	}

	return renderPreview(virtual, root.ID), nil
}

// overlayContribution applies c to the virtual tree and reports whether it could
func overlayContribution(virtual map[string]*previewNode, tempIDs models.TempIDMap, c *models.Contribution) bool {
	switch op := c.Operation.(type) {
	case *models.CreateOp:
		parentID, err := op.ResolveParentRef(tempIDs)
		if err != nil || virtual[parentID] == nil {
			return false
		}
		n := newNodeFromCreate(op, parentID, "", c.CreatedAt)
		n.ID = op.TempID
		virtual[n.ID] = &previewNode{node: n, status: models.PreviewNew}
		tempIDs[op.TempID] = op.TempID
	case *models.EditOp:
		v, ok := virtual[op.TargetID]
		if !ok {
			return false
		}
		applyEdit(&v.node, op)
		v.mark(models.PreviewModified)
	case *models.DeleteOp:
		v, ok := virtual[op.TargetID]
		if !ok {
			return false
		}
		v.mark(models.PreviewDeleted)
	case *models.MoveOp:
		v, ok := virtual[op.TargetID]
		if !ok {
			return false
		}
		parentID, err := op.ResolveNewParentRef(tempIDs)
		if err != nil || virtual[parentID] == nil || createsCycle(virtual, v.node.ID, parentID) {
			return false
		}
		applyMove(&v.node, parentID, op.NewSortOrder)
		v.mark(models.PreviewMoved)
	case *models.ReorderOp:
		v, ok := virtual[op.TargetID]
		if !ok {
			return false
		}
		if applyReorder(&v.node, op) {
			v.mark(models.PreviewReordered)
		}
	default:
		return false
	}
	return true
}

// createsCycle reports whether parentID lies under nodeID in the virtual tree
func createsCycle(virtual map[string]*previewNode, nodeID, parentID string) bool {
	seen := make(map[string]bool)
	for id := parentID; id != "" && !seen[id]; {
		if id == nodeID {
			return true
		}
		seen[id] = true
		v, ok := virtual[id]
		if !ok || v.node.ParentID == nil {
			return false
		}
		id = *v.node.ParentID
	}
	return false
}

// renderPreview nests the virtual nodes under rootID. Descendants of a
// deleted node are shown deleted too.
func renderPreview(virtual map[string]*previewNode, rootID string) *models.PreviewNode {
	children := make(map[string][]*previewNode)
	for _, v := range virtual {
		if v.node.ParentID != nil {
			children[*v.node.ParentID] = append(children[*v.node.ParentID], v)
		}
	}
	for _, list := range children {
		sort.Slice(list, func(i, j int) bool {
			a, b := list[i].node, list[j].node
			if a.SortOrder != b.SortOrder {
				return a.SortOrder < b.SortOrder
			}
			return a.ID < b.ID
		})
	}

	visited := make(map[string]bool)
	var build func(v *previewNode, deleted bool) *models.PreviewNode
	build = func(v *previewNode, deleted bool) *models.PreviewNode {
		visited[v.node.ID] = true
		status := v.status
		if deleted {
			status = models.PreviewDeleted
		}
		out := &models.PreviewNode{
			ID:       v.node.ID,
			Title:    v.node.Title,
			IsGroup:  v.node.IsGroup,
			Status:   status,
			Children: []*models.PreviewNode{},
		}
		for _, child := range children[v.node.ID] {
			if visited[child.node.ID] {
				continue
			}
			out.Children = append(out.Children, build(child, status == models.PreviewDeleted))
		}
		return out
	}
	return build(virtual[rootID], false)
}
