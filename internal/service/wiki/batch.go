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

type batchService struct {
	batchRepo   wikiRepo.BatchRepository
	contribRepo wikiRepo.ContributionRepository
	spaceRepo   wikiRepo.SpaceRepository
	txManager   repositories.TransactionManager
	rebuilder   wikiSvc.TreeRebuilder
	merger      *mergeEngine
	publisher   *publisher
	authorizer  services.Authorizer
	logger      *slog.Logger
}

// NewBatchService creates the batch workflow service and its merge engine
func NewBatchService(
	nodeRepo wikiRepo.NodeRepository,
	spaceRepo wikiRepo.SpaceRepository,
	batchRepo wikiRepo.BatchRepository,
	contribRepo wikiRepo.ContributionRepository,
	txManager repositories.TransactionManager,
	rebuilder wikiSvc.TreeRebuilder,
	indexer wikiSvc.SearchIndexer,
	routeCache wikiSvc.RouteCache,
	authorizer services.Authorizer,
	logger *slog.Logger,
) wikiSvc.BatchService {
	ops := &treeOps{nodeRepo: nodeRepo, spaceRepo: spaceRepo, contribRepo: contribRepo}
	return &batchService{
		batchRepo:   batchRepo,
		contribRepo: contribRepo,
		spaceRepo:   spaceRepo,
		txManager:   txManager,
		rebuilder:   rebuilder,
		merger:      &mergeEngine{ops: ops, logger: logger},
		publisher:   &publisher{nodeRepo: nodeRepo, indexer: indexer, routeCache: routeCache, logger: logger},
		authorizer:  authorizer,
		logger:      logger,
	}
}

// save persists the batch after checking its status change against the stored status
func (s *batchService) save(ctx context.Context, batch *models.Batch) error {
	prior, err := s.batchRepo.GetByID(ctx, batch.ID)
	if err != nil {
		return err
	}
	if prior.Status != batch.Status {
		if err := models.CheckTransition(prior.Status, batch.Status); err != nil {
			return err
		}
	}
	batch.ModifiedAt = now()
	return s.batchRepo.Update(ctx, batch)
}

// transition locks the batch, lets mutate change it and saves it in one transaction
func (s *batchService) transition(
	ctx context.Context,
	batchID string,
	action string,
	mutate func(b *models.Batch) error,
) (*models.Batch, error) {
	var updated *models.Batch
	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		batch, err := s.batchRepo.GetForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		if err := mutate(batch); err != nil {
			return err
		}
		if err := s.save(ctx, batch); err != nil {
			return err
		}
		updated = batch
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("batch "+action,
		"batch_id", updated.ID,
		"status", updated.Status,
	)
	return updated, nil
}

func (s *batchService) GetOrCreateDraft(ctx context.Context, p domainModels.Principal, spaceID, title string) (*models.Batch, error) {
	if err := s.authorizer.Require(p, capabilities.ActionContribute); err != nil {
		return nil, err
	}
	if err := validation.Validate(title, validation.Length(0, config.MaxTitleLength)); err != nil {
		return nil, validationFailed(fmt.Errorf("title: %w", err))
	}

	var batch *models.Batch
	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		space, err := s.spaceRepo.GetByID(ctx, spaceID)
		if err != nil {
			return err
		}

		existing, err := s.batchRepo.FindDraft(ctx, space.ID, p.UserID)
		if err == nil {
			batch = existing
			return nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		if title == "" {
			title = "Changes to " + space.Name
		}
		ts := now()
		batch = &models.Batch{
			Title:         title,
			SpaceID:       space.ID,
			ContributorID: p.UserID,
			Status:        models.BatchDraft,
			CreatedAt:     ts,
			ModifiedAt:    ts,
		}
		if err := s.batchRepo.Create(ctx, batch); err != nil {
			return fmt.Errorf("create draft batch: %w", err)
		}
		s.logger.Info("draft batch created", "batch_id", batch.ID, "space_id", space.ID, "contributor_id", p.UserID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

func (s *batchService) GetBatch(ctx context.Context, p domainModels.Principal, batchID string) (*models.Batch, error) {
	batch, err := s.batchRepo.GetByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if err := requireBatchAccess(s.authorizer, p, batch); err != nil {
		return nil, err
	}
	return batch, nil
}

func (s *batchService) ListMyBatches(ctx context.Context, p domainModels.Principal, status *models.BatchStatus) ([]models.Batch, error) {
	if err := s.authorizer.Require(p, capabilities.ActionRead); err != nil {
		return nil, err
	}
	if status != nil && !status.Valid() {
		return nil, domain.NewValidationError("unknown batch status %q", *status)
	}
	return s.batchRepo.ListByContributor(ctx, p.UserID, status)
}

func (s *batchService) ListPending(ctx context.Context, p domainModels.Principal) ([]models.Batch, error) {
	if err := s.authorizer.Require(p, capabilities.ActionReview); err != nil {
		return nil, err
	}
	return s.batchRepo.ListByStatus(ctx, []models.BatchStatus{models.BatchSubmitted, models.BatchUnderReview})
}

// Submit sends a non-empty Draft batch for review
func (s *batchService) Submit(ctx context.Context, p domainModels.Principal, batchID string) (*models.Batch, error) {
	return s.transition(ctx, batchID, "submitted", func(b *models.Batch) error {
		if err := requireOwner(p, b); err != nil {
			return err
		}
		if err := models.CheckTransition(b.Status, models.BatchSubmitted); err != nil {
			return err
		}
		if b.ContributionCount == 0 {
			return domain.NewValidationError("batch %q has no contributions to submit", b.Title)
		}
		ts := now()
		b.Status = models.BatchSubmitted
		b.SubmittedAt = &ts
		return nil
	})
}

// Withdraw pulls a pending batch back to Draft
func (s *batchService) Withdraw(ctx context.Context, p domainModels.Principal, batchID string) (*models.Batch, error) {
	return s.transition(ctx, batchID, "withdrawn", func(b *models.Batch) error {
		if err := requireOwner(p, b); err != nil {
			return err
		}
		if !b.IsPending() {
			return domain.NewValidationError("only Submitted or Under Review batches can be withdrawn, %q is %s", b.Title, b.Status)
		}
		b.Status = models.BatchDraft
		b.SubmittedAt = nil
		return nil
	})
}

func (s *batchService) StartReview(ctx context.Context, p domainModels.Principal, batchID string) (*models.Batch, error) {
	if err := s.authorizer.Require(p, capabilities.ActionReview); err != nil {
		return nil, err
	}
	return s.transition(ctx, batchID, "review started", func(b *models.Batch) error {
		if err := models.CheckTransition(b.Status, models.BatchUnderReview); err != nil {
			return err
		}
		b.Status = models.BatchUnderReview
		return nil
	})
}

func (s *batchService) Approve(ctx context.Context, p domainModels.Principal, batchID string, comment *string) (*models.Batch, error) {
	return s.review(ctx, p, batchID, models.BatchApproved, comment)
}

func (s *batchService) Reject(ctx context.Context, p domainModels.Principal, batchID string, comment *string) (*models.Batch, error) {
	return s.review(ctx, p, batchID, models.BatchRejected, comment)
}

func (s *batchService) review(ctx context.Context, p domainModels.Principal, batchID string, outcome models.BatchStatus, comment *string) (*models.Batch, error) {
	if err := s.authorizer.Require(p, capabilities.ActionReview); err != nil {
		return nil, err
	}
	if err := validation.Validate(comment, validation.NilOrNotEmpty, validation.Length(0, config.MaxReviewCommentLength)); err != nil {
		return nil, validationFailed(fmt.Errorf("comment: %w", err))
	}

	return s.transition(ctx, batchID, string(outcome), func(b *models.Batch) error {
		if !b.IsPending() {
			return domain.NewValidationError("only Submitted or Under Review batches can be %s, %q is %s", outcome, b.Title, b.Status)
		}
		ts := now()
		reviewer := p.UserID
		b.Status = outcome
		b.ReviewedBy = &reviewer
		b.ReviewedAt = &ts
		b.ReviewComment = comment
		return nil
	})
}

// Reopen returns a Rejected batch to Draft so its owner can revise it
func (s *batchService) Reopen(ctx context.Context, p domainModels.Principal, batchID string) (*models.Batch, error) {
	return s.transition(ctx, batchID, "reopened", func(b *models.Batch) error {
		if err := requireOwner(p, b); err != nil {
			return err
		}
		if b.Status != models.BatchRejected {
			return domain.NewValidationError("only Rejected batches can be reopened, %q is %s", b.Title, b.Status)
		}
		b.Status = models.BatchDraft
		b.SubmittedAt = nil
		return nil
	})
}

// Merge applies an Approved batch. Everything happens in one transaction:
// the contributions in sequence order, the Merged status and the tree rebuild.
// Search and route cache updates follow the commit.
func (s *batchService) Merge(ctx context.Context, p domainModels.Principal, batchID string) (*wikiSvc.MergeResult, error) {
	if err := s.authorizer.Require(p, capabilities.ActionReview); err != nil {
		return nil, err
	}

	var st *mergeState
	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		batch, err := s.batchRepo.GetForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		if batch.Status != models.BatchApproved {
			return domain.NewValidationError("batch %q must be Approved to merge, it is %s", batch.Title, batch.Status)
		}

		contributions, err := s.contribRepo.ListByBatch(ctx, batch.ID)
		if err != nil {
			return fmt.Errorf("list contributions: %w", err)
		}
		if len(contributions) == 0 {
			return domain.NewValidationError("batch %q has no contributions to merge", batch.Title)
		}

		st, err = s.merger.apply(ctx, contributions)
		if err != nil {
			return err
		}

		batch.Status = models.BatchMerged
		if err := s.save(ctx, batch); err != nil {
			return err
		}
		if _, err := s.rebuilder.Rebuild(ctx); err != nil {
			return fmt.Errorf("rebuild tree: %w", err)
		}
		st.result.Batch = batch
		return nil
	})
	if err != nil {
		s.logger.Warn("batch merge failed", "batch_id", batchID, "error", err)
		return nil, err
	}

	s.publisher.publish(ctx, &st.changes)

	s.logger.Info("batch merged",
		"batch_id", batchID,
		"applied", st.result.Applied,
		"created", len(st.result.Created),
		"deleted", len(st.result.Deleted),
	)
	return st.result, nil
}
