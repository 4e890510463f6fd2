package wiki

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	models "wikiflow/internal/domain/models/wiki"
	wikiRepo "wikiflow/internal/domain/repositories/wiki"
	wikiSvc "wikiflow/internal/domain/services/wiki"
)

// Bounds is a node's nested-set interval
type Bounds struct {
	Lft int
	Rgt int
}

// ComputeBounds assigns nested-set bounds to every node.
// Roots are nodes without a parent or whose parent is not in nodes, visited in
// (sort_order, id) order like every sibling list. A single counter starting at 1
// hands out lft on entry and rgt on exit.
func ComputeBounds(nodes []models.Node) (map[string]Bounds, error) {
	byID := make(map[string]*models.Node, len(nodes))
	for i := range nodes {
		byID[nodes[i].ID] = &nodes[i]
	}

	children := make(map[string][]*models.Node)
	var roots []*models.Node
	for i := range nodes {
		n := &nodes[i]
		if n.ParentID == nil || byID[*n.ParentID] == nil {
			roots = append(roots, n)
			continue
		}
		children[*n.ParentID] = append(children[*n.ParentID], n)
	}

	sortSiblings(roots)
	for _, list := range children {
		sortSiblings(list)
	}

	bounds := make(map[string]Bounds, len(nodes))
	counter := 1
	var visit func(n *models.Node)
	visit = func(n *models.Node) {
		lft := counter
		counter++
		for _, child := range children[n.ID] {
			visit(child)
		}
		bounds[n.ID] = Bounds{Lft: lft, Rgt: counter}
		counter++
	}
	for _, root := range roots {
		visit(root)
	}

	if len(bounds) != len(nodes) {
		return nil, fmt.Errorf("tree rebuild: %d of %d nodes unreachable from a root (parent cycle)",
			len(nodes)-len(bounds), len(nodes))
	}
	return bounds, nil
}

func sortSiblings(nodes []*models.Node) {
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].SortOrder != nodes[j].SortOrder {
			return nodes[i].SortOrder < nodes[j].SortOrder
		}
		return nodes[i].ID < nodes[j].ID
	})
}

type treeRebuilder struct {
	nodeRepo wikiRepo.NodeRepository
	logger   *slog.Logger
}

// NewTreeRebuilder creates the rebuilder that owns nested-set bounds
func NewTreeRebuilder(nodeRepo wikiRepo.NodeRepository, logger *slog.Logger) wikiSvc.TreeRebuilder {
	return &treeRebuilder{
		nodeRepo: nodeRepo,
		logger:   logger,
	}
}

// Rebuild recomputes bounds from parent pointers and sort orders and writes
// only the ones that changed
func (r *treeRebuilder) Rebuild(ctx context.Context) (int, error) {
	nodes, err := r.nodeRepo.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("list nodes: %w", err)
	}

	bounds, err := ComputeBounds(nodes)
	if err != nil {
		return 0, err
	}

	changed := 0
	for _, n := range nodes {
		b := bounds[n.ID]
		if n.Lft == b.Lft && n.Rgt == b.Rgt {
			continue
		}
		if err := r.nodeRepo.UpdateBounds(ctx, n.ID, b.Lft, b.Rgt); err != nil {
			return changed, fmt.Errorf("update bounds of %s: %w", n.ID, err)
		}
		changed++
	}

	r.logger.Debug("tree rebuilt", "nodes", len(nodes), "changed", changed)
	return changed, nil
}
