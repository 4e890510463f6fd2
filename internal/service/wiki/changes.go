package wiki

import (
	"context"
	"errors"
	"log/slog"

	"wikiflow/internal/domain"
	models "wikiflow/internal/domain/models/wiki"
	wikiRepo "wikiflow/internal/domain/repositories/wiki"
	wikiSvc "wikiflow/internal/domain/services/wiki"
)

// changeSet collects what a committed change must propagate to search and the route cache
type changeSet struct {
	touched     []string
	deleted     []string
	staleRoutes []string
}

func (c *changeSet) touch(ids ...string) {
	c.touched = append(c.touched, ids...)
}

func (c *changeSet) remove(nodes []models.Node) {
	for _, n := range nodes {
		c.deleted = append(c.deleted, n.ID)
		c.staleRoutes = append(c.staleRoutes, n.Route)
	}
}

func (c *changeSet) expire(routes ...string) {
	c.staleRoutes = append(c.staleRoutes, routes...)
}

// publisher pushes committed changes to the search index and route cache.
// Either collaborator may be nil.
type publisher struct {
	nodeRepo   wikiRepo.NodeRepository
	indexer    wikiSvc.SearchIndexer
	routeCache wikiSvc.RouteCache
	logger     *slog.Logger
}

// publish runs after commit; failures are logged and never returned
func (p *publisher) publish(ctx context.Context, cs *changeSet) {
	deleted := make(map[string]bool, len(cs.deleted))
	for _, id := range cs.deleted {
		deleted[id] = true
	}

	if p.indexer != nil {
		seen := make(map[string]bool)
		var nodes []models.Node
		for _, id := range cs.touched {
			if seen[id] || deleted[id] {
				continue
			}
			seen[id] = true
			n, err := p.nodeRepo.GetByID(ctx, id)
			if err != nil {
				if !errors.Is(err, domain.ErrNotFound) {
					p.logger.Warn("failed to load node for indexing", "node_id", id, "error", err)
				}
				continue
			}
			nodes = append(nodes, *n)
		}
		if len(nodes) > 0 {
			if err := p.indexer.IndexNodes(ctx, nodes); err != nil {
				p.logger.Warn("failed to index nodes", "count", len(nodes), "error", err)
			}
		}
		if len(cs.deleted) > 0 {
			if err := p.indexer.RemoveNodes(ctx, cs.deleted); err != nil {
				p.logger.Warn("failed to remove nodes from index", "count", len(cs.deleted), "error", err)
			}
		}
	}

	if p.routeCache != nil && len(cs.staleRoutes) > 0 {
		if err := p.routeCache.Invalidate(ctx, cs.staleRoutes...); err != nil {
			p.logger.Warn("failed to invalidate routes", "count", len(cs.staleRoutes), "error", err)
		}
	}
}
