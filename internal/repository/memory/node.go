package memory

import (
	"context"
	"fmt"
	"sort"

	"wikiflow/internal/domain"
	models "wikiflow/internal/domain/models/wiki"
	wikiRepo "wikiflow/internal/domain/repositories/wiki"
)

type nodeRepository struct {
	s *Store
}

// NewNodeRepository returns a NodeRepository backed by the store
func NewNodeRepository(s *Store) wikiRepo.NodeRepository {
	return &nodeRepository{s: s}
}

func sortBySiblingOrder(nodes []models.Node) {
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].SortOrder != nodes[j].SortOrder {
			return nodes[i].SortOrder < nodes[j].SortOrder
		}
		return nodes[i].ID < nodes[j].ID
	})
}

func sortByLft(nodes []models.Node) {
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Lft != nodes[j].Lft {
			return nodes[i].Lft < nodes[j].Lft
		}
		return nodes[i].ID < nodes[j].ID
	})
}

func (r *nodeRepository) Create(ctx context.Context, node *models.Node) error {
	defer r.s.write(ctx)()

	if node.ParentID != nil {
		if _, ok := r.s.nodes[*node.ParentID]; !ok {
			return fmt.Errorf("parent of %q: %w", node.Title, domain.ErrNotFound)
		}
	}

	node.ID = newID()
	node.Lft, node.Rgt = 0, 0
	r.s.nodes[node.ID] = cloneNode(*node)
	return nil
}

func (r *nodeRepository) GetByID(ctx context.Context, id string) (*models.Node, error) {
	defer r.s.read(ctx)()

	n, ok := r.s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
	}
	n = cloneNode(n)
	return &n, nil
}

func (r *nodeRepository) GetByRoute(ctx context.Context, route string) (*models.Node, error) {
	defer r.s.read(ctx)()

	var matches []models.Node
	for _, n := range r.s.nodes {
		if n.Route == route {
			matches = append(matches, n)
		}
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("route %s: %w", route, domain.ErrNotFound)
	}
	sortByLft(matches)
	n := cloneNode(matches[0])
	return &n, nil
}

func (r *nodeRepository) Update(ctx context.Context, node *models.Node) error {
	defer r.s.write(ctx)()

	existing, ok := r.s.nodes[node.ID]
	if !ok {
		return fmt.Errorf("node %s: %w", node.ID, domain.ErrNotFound)
	}
	if node.ParentID != nil {
		if _, ok := r.s.nodes[*node.ParentID]; !ok {
			return fmt.Errorf("parent of node %s: %w", node.ID, domain.ErrNotFound)
		}
	}

	updated := cloneNode(*node)
	updated.Lft, updated.Rgt = existing.Lft, existing.Rgt
	updated.CreatedAt = existing.CreatedAt
	r.s.nodes[node.ID] = updated
	return nil
}

func (r *nodeRepository) UpdateSortOrder(ctx context.Context, id string, sortOrder int) error {
	return r.mutate(ctx, id, func(n *models.Node) { n.SortOrder = sortOrder })
}

func (r *nodeRepository) UpdateRoute(ctx context.Context, id, route string) error {
	return r.mutate(ctx, id, func(n *models.Node) { n.Route = route })
}

func (r *nodeRepository) UpdateBounds(ctx context.Context, id string, lft, rgt int) error {
	return r.mutate(ctx, id, func(n *models.Node) { n.Lft, n.Rgt = lft, rgt })
}

func (r *nodeRepository) mutate(ctx context.Context, id string, fn func(n *models.Node)) error {
	defer r.s.write(ctx)()

	n, ok := r.s.nodes[id]
	if !ok {
		return fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
	}
	fn(&n)
	r.s.nodes[id] = n
	return nil
}

// Delete mirrors the postgres constraints: children and space roots block deletion,
// and contribution target links are nulled.
func (r *nodeRepository) Delete(ctx context.Context, id string) error {
	defer r.s.write(ctx)()

	if _, ok := r.s.nodes[id]; !ok {
		return fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
	}
	for _, n := range r.s.nodes {
		if n.ParentIs(id) {
			return fmt.Errorf("node %s still has children or is a space root: %w", id, domain.ErrValidation)
		}
	}
	for _, sp := range r.s.spaces {
		if sp.RootGroupID == id {
			return fmt.Errorf("node %s still has children or is a space root: %w", id, domain.ErrValidation)
		}
	}

	delete(r.s.nodes, id)
	for cid, c := range r.s.contributions {
		if c.TargetDocumentID != nil && *c.TargetDocumentID == id {
			c.TargetDocumentID = nil
			r.s.contributions[cid] = c
		}
	}
	return nil
}

func (r *nodeRepository) ListChildren(ctx context.Context, parentID string) ([]models.Node, error) {
	defer r.s.read(ctx)()

	children := r.childrenLocked(parentID)
	sortBySiblingOrder(children)
	return children, nil
}

func (r *nodeRepository) childrenLocked(parentID string) []models.Node {
	var children []models.Node
	for _, n := range r.s.nodes {
		if n.ParentIs(parentID) {
			children = append(children, cloneNode(n))
		}
	}
	return children
}

func (r *nodeRepository) ListDescendants(ctx context.Context, id string) ([]models.Node, error) {
	defer r.s.read(ctx)()

	var result []models.Node
	level := []string{id}
	seen := map[string]bool{id: true}
	for len(level) > 0 {
		var next []models.Node
		for _, parentID := range level {
			next = append(next, r.childrenLocked(parentID)...)
		}
		sortBySiblingOrder(next)

		level = level[:0]
		for _, n := range next {
			if seen[n.ID] {
				continue
			}
			seen[n.ID] = true
			result = append(result, n)
			level = append(level, n.ID)
		}
	}
	return result, nil
}

func (r *nodeRepository) ListSubtree(ctx context.Context, lft, rgt int) ([]models.Node, error) {
	defer r.s.read(ctx)()

	var nodes []models.Node
	for _, n := range r.s.nodes {
		if n.Lft >= lft && n.Rgt <= rgt {
			nodes = append(nodes, cloneNode(n))
		}
	}
	sortByLft(nodes)
	return nodes, nil
}

func (r *nodeRepository) ListAncestors(ctx context.Context, node *models.Node) ([]models.Node, error) {
	defer r.s.read(ctx)()

	var nodes []models.Node
	for _, n := range r.s.nodes {
		if n.Lft < node.Lft && n.Rgt > node.Rgt {
			nodes = append(nodes, cloneNode(n))
		}
	}
	sortByLft(nodes)
	return nodes, nil
}

func (r *nodeRepository) ListAll(ctx context.Context) ([]models.Node, error) {
	defer r.s.read(ctx)()

	nodes := make([]models.Node, 0, len(r.s.nodes))
	for _, n := range r.s.nodes {
		nodes = append(nodes, cloneNode(n))
	}
	sortByLft(nodes)
	return nodes, nil
}
