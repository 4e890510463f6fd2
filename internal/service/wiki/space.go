package wiki

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"wikiflow/internal/capabilities"
	"wikiflow/internal/config"
	domainModels "wikiflow/internal/domain/models"
	models "wikiflow/internal/domain/models/wiki"
	"wikiflow/internal/domain/repositories"
	wikiRepo "wikiflow/internal/domain/repositories/wiki"
	"wikiflow/internal/domain/services"
	wikiSvc "wikiflow/internal/domain/services/wiki"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type spaceService struct {
	nodeRepo   wikiRepo.NodeRepository
	spaceRepo  wikiRepo.SpaceRepository
	txManager  repositories.TransactionManager
	rebuilder  wikiSvc.TreeRebuilder
	authorizer services.Authorizer
	logger     *slog.Logger
}

// NewSpaceService creates the space service
func NewSpaceService(
	nodeRepo wikiRepo.NodeRepository,
	spaceRepo wikiRepo.SpaceRepository,
	txManager repositories.TransactionManager,
	rebuilder wikiSvc.TreeRebuilder,
	authorizer services.Authorizer,
	logger *slog.Logger,
) wikiSvc.SpaceService {
	return &spaceService{
		nodeRepo:   nodeRepo,
		spaceRepo:  spaceRepo,
		txManager:  txManager,
		rebuilder:  rebuilder,
		authorizer: authorizer,
		logger:     logger,
	}
}

// CreateSpace creates the space together with its published root group
func (s *spaceService) CreateSpace(ctx context.Context, p domainModels.Principal, req *wikiSvc.CreateSpaceRequest) (*models.Space, error) {
	if err := s.authorizer.Require(p, capabilities.ActionWrite); err != nil {
		return nil, err
	}
	req.Name = strings.TrimSpace(req.Name)
	err := validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, config.MaxSpaceNameLength)),
		validation.Field(&req.Route, validation.Length(0, config.MaxSlugLength)),
	)
	if err != nil {
		return nil, validationFailed(err)
	}

	route := req.Route
	if strings.TrimSpace(route) == "" {
		route = req.Name
	}
	route = Slugify(route)

	var space models.Space
	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		existing, err := s.spaceRepo.List(ctx)
		if err != nil {
			return fmt.Errorf("list spaces: %w", err)
		}

		ts := now()
		root := models.Node{
			Title:       req.Name,
			IsGroup:     true,
			IsPublished: true,
			SortOrder:   len(existing),
			Route:       route,
			CreatedAt:   ts,
			ModifiedAt:  ts,
		}
		if err := s.nodeRepo.Create(ctx, &root); err != nil {
			return fmt.Errorf("create root group: %w", err)
		}

		space = models.Space{
			Name:        req.Name,
			Route:       route,
			RootGroupID: root.ID,
			CreatedAt:   ts,
		}
		if err := s.spaceRepo.Create(ctx, &space); err != nil {
			return err
		}

		if _, err := s.rebuilder.Rebuild(ctx); err != nil {
			return fmt.Errorf("rebuild tree: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("space created",
		"id", space.ID,
		"name", space.Name,
		"route", space.Route,
		"root_group_id", space.RootGroupID,
	)
	return &space, nil
}

func (s *spaceService) GetSpace(ctx context.Context, p domainModels.Principal, spaceID string) (*models.Space, error) {
	if err := s.authorizer.Require(p, capabilities.ActionRead); err != nil {
		return nil, err
	}
	return s.spaceRepo.GetByID(ctx, spaceID)
}

func (s *spaceService) ListSpaces(ctx context.Context, p domainModels.Principal) ([]models.Space, error) {
	if err := s.authorizer.Require(p, capabilities.ActionRead); err != nil {
		return nil, err
	}
	return s.spaceRepo.List(ctx)
}
