package wiki

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"wikiflow/internal/capabilities"
	"wikiflow/internal/config"
	"wikiflow/internal/domain"
	domainModels "wikiflow/internal/domain/models"
	models "wikiflow/internal/domain/models/wiki"
	"wikiflow/internal/domain/repositories"
	wikiRepo "wikiflow/internal/domain/repositories/wiki"
	"wikiflow/internal/domain/services"
	wikiSvc "wikiflow/internal/domain/services/wiki"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type nodeService struct {
	ops        *treeOps
	txManager  repositories.TransactionManager
	rebuilder  wikiSvc.TreeRebuilder
	publisher  *publisher
	routeCache wikiSvc.RouteCache
	authorizer services.Authorizer
	logger     *slog.Logger
}

// NewNodeService creates the service for direct edits of the live tree
func NewNodeService(
	nodeRepo wikiRepo.NodeRepository,
	spaceRepo wikiRepo.SpaceRepository,
	contribRepo wikiRepo.ContributionRepository,
	txManager repositories.TransactionManager,
	rebuilder wikiSvc.TreeRebuilder,
	indexer wikiSvc.SearchIndexer,
	routeCache wikiSvc.RouteCache,
	authorizer services.Authorizer,
	logger *slog.Logger,
) wikiSvc.NodeService {
	return &nodeService{
		ops:        &treeOps{nodeRepo: nodeRepo, spaceRepo: spaceRepo, contribRepo: contribRepo},
		txManager:  txManager,
		rebuilder:  rebuilder,
		publisher:  &publisher{nodeRepo: nodeRepo, indexer: indexer, routeCache: routeCache, logger: logger},
		routeCache: routeCache,
		authorizer: authorizer,
		logger:     logger,
	}
}

// CreateNode inserts a page or group under an existing group.
// Without a sort order the node goes after its current siblings.
func (s *nodeService) CreateNode(ctx context.Context, p domainModels.Principal, req *wikiSvc.CreateNodeRequest) (*models.Node, error) {
	if err := s.authorizer.Require(p, capabilities.ActionWrite); err != nil {
		return nil, err
	}
	if err := s.validateCreateRequest(req); err != nil {
		return nil, validationFailed(err)
	}

	var node models.Node
	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		parent, err := s.ops.loadParent(ctx, req.ParentID)
		if err != nil {
			return err
		}
		siblings, err := s.ops.nodeRepo.ListChildren(ctx, parent.ID)
		if err != nil {
			return fmt.Errorf("list children: %w", err)
		}

		op := &models.CreateOp{
			ParentRef:   parent.ID,
			Title:       req.Title,
			Content:     req.Content,
			IsGroup:     req.IsGroup,
			IsPublished: req.IsPublished,
			SortOrder:   req.SortOrder,
			Slug:        req.Slug,
		}
		if op.SortOrder == nil {
			next := len(siblings)
			op.SortOrder = &next
		}
		route := joinRoute(parent.Route, uniqueSlug(siblings, createSlug(op)))
		node = newNodeFromCreate(op, parent.ID, route, now())
		if err := s.ops.nodeRepo.Create(ctx, &node); err != nil {
			return fmt.Errorf("create node: %w", err)
		}

		if _, err := s.rebuilder.Rebuild(ctx); err != nil {
			return fmt.Errorf("rebuild tree: %w", err)
		}
		created, err := s.ops.nodeRepo.GetByID(ctx, node.ID)
		if err != nil {
			return err
		}
		node = *created
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.publish(ctx, &changeSet{touched: []string{node.ID}})
	s.logger.Info("node created",
		"id", node.ID,
		"title", node.Title,
		"parent_id", node.ParentID,
		"route", node.Route,
	)
	return &node, nil
}

func (s *nodeService) validateCreateRequest(req *wikiSvc.CreateNodeRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.ParentID, validation.Required),
		validation.Field(&req.Title, validation.Required, validation.Length(1, config.MaxTitleLength)),
		validation.Field(&req.Slug, validation.NilOrNotEmpty, validation.Length(1, config.MaxSlugLength)),
		validation.Field(&req.SortOrder, validation.Min(0)),
	)
}

func (s *nodeService) GetNode(ctx context.Context, p domainModels.Principal, nodeID string) (*models.Node, error) {
	if err := s.authorizer.Require(p, capabilities.ActionRead); err != nil {
		return nil, err
	}
	return s.ops.nodeRepo.GetByID(ctx, nodeID)
}

// UpdateNode applies a partial update. A new slug re-routes the node and its subtree.
func (s *nodeService) UpdateNode(ctx context.Context, p domainModels.Principal, nodeID string, req *wikiSvc.UpdateNodeRequest) (*models.Node, error) {
	if err := s.authorizer.Require(p, capabilities.ActionWrite); err != nil {
		return nil, err
	}
	err := validation.ValidateStruct(req,
		validation.Field(&req.Title, validation.NilOrNotEmpty, validation.Length(1, config.MaxTitleLength)),
		validation.Field(&req.Slug, validation.NilOrNotEmpty, validation.Length(1, config.MaxSlugLength)),
	)
	if err != nil {
		return nil, validationFailed(err)
	}

	var node *models.Node
	var changes changeSet
	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		var err error
		node, err = s.ops.nodeRepo.GetByID(ctx, nodeID)
		if err != nil {
			return err
		}

		if req.Title != nil {
			node.Title = *req.Title
		}
		if req.Content.Present {
			if req.Content.Value == nil && !node.IsGroup {
				return domain.NewValidationError("pages must keep content; send an empty string to clear it")
			}
			node.Content = req.Content.Value
		}
		if req.IsPublished != nil {
			node.IsPublished = *req.IsPublished
		}
		slug := ""
		if req.Slug != nil {
			if node.ParentID == nil {
				return domain.NewValidationError("the root of a space takes its route from the space")
			}
			slug = Slugify(*req.Slug)
		}

		node.ModifiedAt = now()
		if err := s.ops.nodeRepo.Update(ctx, node); err != nil {
			return fmt.Errorf("update node: %w", err)
		}
		if slug != "" {
			stale, err := s.ops.refreshRoutes(ctx, node, slug)
			if err != nil {
				return err
			}
			changes.expire(stale...)
		}
		changes.touch(node.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.publish(ctx, &changes)
	s.logger.Info("node updated", "id", node.ID, "route", node.Route)
	return node, nil
}

// DeleteNode removes the node with its whole subtree
func (s *nodeService) DeleteNode(ctx context.Context, p domainModels.Principal, nodeID string) (int, error) {
	if err := s.authorizer.Require(p, capabilities.ActionWrite); err != nil {
		return 0, err
	}

	var changes changeSet
	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		node, err := s.ops.nodeRepo.GetByID(ctx, nodeID)
		if err != nil {
			return err
		}
		isRoot, err := s.ops.isSpaceRoot(ctx, node.ID)
		if err != nil {
			return err
		}
		if isRoot {
			return domain.NewValidationError("%q is the root of a space and cannot be deleted", node.Title)
		}

		removed, err := s.ops.deleteSubtree(ctx, node)
		if err != nil {
			return err
		}
		changes.remove(removed)

		if _, err := s.rebuilder.Rebuild(ctx); err != nil {
			return fmt.Errorf("rebuild tree: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.publisher.publish(ctx, &changes)
	s.logger.Info("node deleted", "id", nodeID, "deleted", len(changes.deleted))
	return len(changes.deleted), nil
}

// GetBreadcrumbs returns the ancestors of the node, root first, followed by the node
func (s *nodeService) GetBreadcrumbs(ctx context.Context, p domainModels.Principal, nodeID string) ([]models.Breadcrumb, error) {
	if err := s.authorizer.Require(p, capabilities.ActionRead); err != nil {
		return nil, err
	}
	node, err := s.ops.nodeRepo.GetByID(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	ancestors, err := s.ops.nodeRepo.ListAncestors(ctx, node)
	if err != nil {
		return nil, fmt.Errorf("list ancestors: %w", err)
	}

	crumbs := make([]models.Breadcrumb, 0, len(ancestors)+1)
	for _, a := range append(ancestors, *node) {
		crumbs = append(crumbs, models.Breadcrumb{ID: a.ID, Title: a.Title, Route: a.Route})
	}
	return crumbs, nil
}

// ResolveRoute finds the published page at route, consulting the route cache first
func (s *nodeService) ResolveRoute(ctx context.Context, p domainModels.Principal, route string) (*models.Node, error) {
	if err := s.authorizer.Require(p, capabilities.ActionRead); err != nil {
		return nil, err
	}
	route = NormalizeRoute(route)
	if route == "" {
		return nil, domain.NewValidationError("route is required")
	}
	if len(route) > config.MaxRouteLength {
		return nil, domain.NewValidationError("route is longer than %d characters", config.MaxRouteLength)
	}

	if s.routeCache != nil {
		id, ok, err := s.routeCache.Get(ctx, route)
		if err != nil {
			s.logger.Warn("route cache lookup failed", "route", route, "error", err)
		}
		if ok {
			node, err := s.ops.nodeRepo.GetByID(ctx, id)
			if err == nil && node.Route == route && isPublishedPage(node) {
				return node, nil
			}
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return nil, err
			}
		}
	}

	node, err := s.ops.nodeRepo.GetByRoute(ctx, route)
	if err != nil {
		return nil, err
	}
	if !isPublishedPage(node) {
		return nil, fmt.Errorf("published page at %s: %w", route, domain.ErrNotFound)
	}

	if s.routeCache != nil {
		if err := s.routeCache.Set(ctx, route, node.ID); err != nil {
			s.logger.Warn("route cache store failed", "route", route, "error", err)
		}
	}
	return node, nil
}

func isPublishedPage(n *models.Node) bool {
	return n.IsPublished && !n.IsGroup
}
