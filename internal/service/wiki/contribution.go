package wiki

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"wikiflow/internal/capabilities"
	"wikiflow/internal/config"
	"wikiflow/internal/domain"
	domainModels "wikiflow/internal/domain/models"
	models "wikiflow/internal/domain/models/wiki"
	"wikiflow/internal/domain/repositories"
	wikiRepo "wikiflow/internal/domain/repositories/wiki"
	"wikiflow/internal/domain/services"
	wikiSvc "wikiflow/internal/domain/services/wiki"

	"github.com/go-git/go-git/v5/utils/diff"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Wire names of the contribution fields, as accepted per operation kind
const (
	fieldTempID        = "temp_id"
	fieldParentRef     = "parent_ref"
	fieldTarget        = "target_document_id"
	fieldNewParentRef  = "new_parent_ref"
	fieldTitle         = "proposed_title"
	fieldContent       = "proposed_content"
	fieldIsGroup       = "proposed_is_group"
	fieldIsPublished   = "proposed_is_published"
	fieldSortOrder     = "proposed_sort_order"
	fieldNewSortOrder  = "new_sort_order"
	fieldSlug          = "proposed_slug"
	fieldSiblingsOrder = "siblings_order"
)

var allowedFields = map[models.OperationKind][]string{
	models.OpCreate:  {fieldTempID, fieldParentRef, fieldTitle, fieldContent, fieldIsGroup, fieldIsPublished, fieldSortOrder, fieldSlug, fieldSiblingsOrder},
	models.OpEdit:    {fieldTarget, fieldTitle, fieldContent, fieldIsGroup, fieldIsPublished, fieldSortOrder, fieldSlug},
	models.OpDelete:  {fieldTarget},
	models.OpMove:    {fieldTarget, fieldNewParentRef, fieldNewSortOrder, fieldSiblingsOrder},
	models.OpReorder: {fieldTarget, fieldSortOrder, fieldNewSortOrder, fieldSiblingsOrder},
}

type contributionService struct {
	ops         *treeOps
	batchRepo   wikiRepo.BatchRepository
	contribRepo wikiRepo.ContributionRepository
	txManager   repositories.TransactionManager
	authorizer  services.Authorizer
	logger      *slog.Logger
}

// NewContributionService creates the service that edits Draft batches
func NewContributionService(
	nodeRepo wikiRepo.NodeRepository,
	spaceRepo wikiRepo.SpaceRepository,
	batchRepo wikiRepo.BatchRepository,
	contribRepo wikiRepo.ContributionRepository,
	txManager repositories.TransactionManager,
	authorizer services.Authorizer,
	logger *slog.Logger,
) wikiSvc.ContributionService {
	return &contributionService{
		ops:         &treeOps{nodeRepo: nodeRepo, spaceRepo: spaceRepo, contribRepo: contribRepo},
		batchRepo:   batchRepo,
		contribRepo: contribRepo,
		txManager:   txManager,
		authorizer:  authorizer,
		logger:      logger,
	}
}

// CreateContribution appends a validated operation to a Draft batch.
// The sequence is computed under the batch lock so concurrent appends stay ordered.
func (s *contributionService) CreateContribution(ctx context.Context, p domainModels.Principal, req *wikiSvc.CreateContributionRequest) (*models.Contribution, error) {
	if err := s.authorizer.Require(p, capabilities.ActionContribute); err != nil {
		return nil, err
	}
	if err := checkFields(req.Operation, &req.ContributionFields); err != nil {
		return nil, err
	}
	if err := validateSiblings(req.SiblingsOrder); err != nil {
		return nil, err
	}

	op, err := models.NewOperation(req.Operation)
	if err != nil {
		return nil, err
	}
	applyFields(op, &req.ContributionFields)
	if create, ok := op.(*models.CreateOp); ok {
		create.EnsureTempID()
	}
	if err := op.Validate(); err != nil {
		return nil, err
	}
	if err := validateProposal(op); err != nil {
		return nil, err
	}

	var created *models.Contribution
	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		batch, err := s.batchRepo.GetForUpdate(ctx, req.BatchID)
		if err != nil {
			return err
		}
		if err := requireDraftOwner(p, batch); err != nil {
			return err
		}

		maxSeq, err := s.contribRepo.MaxSequence(ctx, batch.ID)
		if err != nil {
			return fmt.Errorf("max sequence: %w", err)
		}
		sequence := maxSeq + 1

		if create, ok := op.(*models.CreateOp); ok {
			if _, err := s.contribRepo.FindByTempID(ctx, batch.ID, create.TempID); err == nil {
				return domain.NewValidationError("temp id %s is already used in this batch", create.TempID)
			} else if !errors.Is(err, domain.ErrNotFound) {
				return err
			}
		}
		if err := s.checkReferences(ctx, batch, op, sequence); err != nil {
			return err
		}

		c := &models.Contribution{
			BatchID:       batch.ID,
			Sequence:      sequence,
			Operation:     op,
			SiblingsOrder: req.SiblingsOrder,
		}
		if target := op.Target(); target != "" {
			node, err := s.ops.nodeRepo.GetByID(ctx, target)
			if err != nil {
				return err
			}
			if err := s.checkTarget(ctx, batch, op, node); err != nil {
				return err
			}
			c.TargetDocumentID = &node.ID
			c.Snapshot = models.SnapshotOf(node)
		}

		ts := now()
		c.CreatedAt = ts
		c.ModifiedAt = ts
		if err := s.contribRepo.Create(ctx, c); err != nil {
			return fmt.Errorf("create contribution: %w", err)
		}
		created = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("contribution created",
		"id", created.ID,
		"batch_id", created.BatchID,
		"operation", created.Kind(),
		"sequence", created.Sequence,
	)
	return created, nil
}

// checkReferences verifies that the operation's parent references exist:
// temp ids must name an earlier Create in the batch, real ids a group in the batch's space
func (s *contributionService) checkReferences(ctx context.Context, batch *models.Batch, op models.Operation, sequence int) error {
	var ref string
	switch op := op.(type) {
	case *models.CreateOp:
		ref = op.ParentRef
	case *models.MoveOp:
		ref = op.NewParentRef
	default:
		return nil
	}

	if models.IsTempID(ref) {
		origin, err := s.contribRepo.FindByTempID(ctx, batch.ID, ref)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NewValidationError("%s does not name an earlier Create in this batch", ref)
		}
		if err != nil {
			return err
		}
		if origin.Sequence >= sequence {
			return domain.NewValidationError("%s is created by a later contribution (#%d)", ref, origin.Sequence)
		}
		if create, ok := origin.Operation.(*models.CreateOp); ok && !create.IsGroup {
			return domain.NewValidationError("%s is a page; only groups can contain other nodes", ref)
		}
		return nil
	}

	parent, err := s.ops.loadParent(ctx, ref)
	if err != nil {
		return err
	}
	return s.checkSameSpace(ctx, batch, parent)
}

// checkTarget verifies the target belongs to the batch's space and that
// structural operations leave the space root alone
func (s *contributionService) checkTarget(ctx context.Context, batch *models.Batch, op models.Operation, node *models.Node) error {
	if err := s.checkSameSpace(ctx, batch, node); err != nil {
		return err
	}
	switch op.Kind() {
	case models.OpDelete, models.OpMove:
		if node.ParentID == nil {
			return domain.NewValidationError("%q is the root of a space and cannot be %sd", node.Title, strings.ToLower(string(op.Kind())))
		}
	}
	if move, ok := op.(*models.MoveOp); ok && !models.IsTempID(move.NewParentRef) {
		return s.ops.checkNoCycle(ctx, node.ID, move.NewParentRef)
	}
	return nil
}

func (s *contributionService) checkSameSpace(ctx context.Context, batch *models.Batch, node *models.Node) error {
	space, err := s.ops.spaceOf(ctx, node)
	if err != nil {
		return err
	}
	if space.ID != batch.SpaceID {
		return domain.NewValidationError("%q belongs to another space than this batch", node.Title)
	}
	return nil
}

// UpdateContribution changes proposed fields of a Draft contribution.
// The temp id and target identify the contribution and cannot change; the snapshot is kept.
func (s *contributionService) UpdateContribution(ctx context.Context, p domainModels.Principal, contributionID string, fields *wikiSvc.ContributionFields) (*models.Contribution, error) {
	if err := s.authorizer.Require(p, capabilities.ActionContribute); err != nil {
		return nil, err
	}
	if err := validateSiblings(fields.SiblingsOrder); err != nil {
		return nil, err
	}

	var updated *models.Contribution
	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		c, err := s.contribRepo.GetByID(ctx, contributionID)
		if err != nil {
			return err
		}
		batch, err := s.batchRepo.GetForUpdate(ctx, c.BatchID)
		if err != nil {
			return err
		}
		if err := requireDraftOwner(p, batch); err != nil {
			return err
		}
		if err := checkFields(c.Kind(), fields); err != nil {
			return err
		}
		if err := checkIdentity(c, fields); err != nil {
			return err
		}

		op, err := cloneOperation(c.Operation)
		if err != nil {
			return err
		}
		applyFields(op, fields)
		if err := op.Validate(); err != nil {
			return err
		}
		if err := validateProposal(op); err != nil {
			return err
		}
		if err := s.checkReferences(ctx, batch, op, c.Sequence); err != nil {
			return err
		}
		if move, ok := op.(*models.MoveOp); ok && !models.IsTempID(move.NewParentRef) {
			if err := s.ops.checkNoCycle(ctx, move.TargetID, move.NewParentRef); err != nil {
				return err
			}
		}

		c.Operation = op
		if fields.SiblingsOrder != nil {
			c.SiblingsOrder = fields.SiblingsOrder
		}
		c.ModifiedAt = now()
		if err := s.contribRepo.Update(ctx, c); err != nil {
			return fmt.Errorf("update contribution: %w", err)
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("contribution updated", "id", updated.ID, "batch_id", updated.BatchID)
	return updated, nil
}

// DeleteContribution removes a contribution and renumbers the rest of the batch to 1..N
func (s *contributionService) DeleteContribution(ctx context.Context, p domainModels.Principal, contributionID string) error {
	if err := s.authorizer.Require(p, capabilities.ActionContribute); err != nil {
		return err
	}

	var batchID string
	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		c, err := s.contribRepo.GetByID(ctx, contributionID)
		if err != nil {
			return err
		}
		batch, err := s.batchRepo.GetForUpdate(ctx, c.BatchID)
		if err != nil {
			return err
		}
		if err := requireDraftOwner(p, batch); err != nil {
			return err
		}
		batchID = batch.ID

		siblings, err := s.contribRepo.ListByBatch(ctx, batch.ID)
		if err != nil {
			return fmt.Errorf("list contributions: %w", err)
		}
		if tempID := c.TempID(); tempID != "" {
			for _, other := range siblings {
				if other.ID == c.ID {
					continue
				}
				for _, ref := range other.TempRefs() {
					if ref == tempID {
						return domain.NewValidationError("contribution #%d still refers to %s; delete it first", other.Sequence, tempID)
					}
				}
			}
		}

		if err := s.contribRepo.Delete(ctx, c.ID); err != nil {
			return fmt.Errorf("delete contribution: %w", err)
		}

		// Ascending renumbering only ever moves into a slot that is already free
		next := 1
		for _, other := range siblings {
			if other.ID == c.ID {
				continue
			}
			if other.Sequence != next {
				if err := s.contribRepo.SetSequence(ctx, other.ID, next); err != nil {
					return fmt.Errorf("renumber contribution %s: %w", other.ID, err)
				}
			}
			next++
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("contribution deleted", "id", contributionID, "batch_id", batchID)
	return nil
}

func (s *contributionService) ListContributions(ctx context.Context, p domainModels.Principal, batchID string) ([]models.Contribution, error) {
	batch, err := s.batchRepo.GetByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if err := requireBatchAccess(s.authorizer, p, batch); err != nil {
		return nil, err
	}
	return s.contribRepo.ListByBatch(ctx, batch.ID)
}

// GetContributionDiff compares an Edit's proposal with the snapshot taken when it was created
func (s *contributionService) GetContributionDiff(ctx context.Context, p domainModels.Principal, contributionID string) (*models.ContributionDiff, error) {
	c, err := s.contribRepo.GetByID(ctx, contributionID)
	if err != nil {
		return nil, err
	}
	batch, err := s.batchRepo.GetByID(ctx, c.BatchID)
	if err != nil {
		return nil, err
	}
	if err := requireBatchAccess(s.authorizer, p, batch); err != nil {
		return nil, err
	}

	edit, ok := c.Operation.(*models.EditOp)
	if !ok {
		return nil, domain.NewValidationError("only Edit contributions have a diff, #%d is %s", c.Sequence, c.Kind())
	}
	if c.Snapshot == nil {
		return nil, domain.NewValidationError("contribution #%d has no snapshot", c.Sequence)
	}

	original := models.DiffSide{Title: c.Snapshot.OriginalTitle}
	if c.Snapshot.OriginalContent != nil {
		original.Content = *c.Snapshot.OriginalContent
	}
	proposed := original
	if edit.Title != nil {
		proposed.Title = *edit.Title
	}
	if edit.Content != nil {
		proposed.Content = *edit.Content
	}

	return &models.ContributionDiff{
		ContributionID: c.ID,
		Original:       original,
		Proposed:       proposed,
		Changed:        original != proposed,
		TitleDiff:      diffSegments(original.Title, proposed.Title),
		ContentDiff:    diffSegments(original.Content, proposed.Content),
	}, nil
}

// diffSegments runs a line diff and labels each run equal, insert or delete
func diffSegments(src, dst string) []models.DiffSegment {
	if src == dst {
		return nil
	}
	diffs := diff.Do(src, dst)
	segments := make([]models.DiffSegment, 0, len(diffs))
	for _, d := range diffs {
		var op string
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			op = "insert"
		case diffmatchpatch.DiffDelete:
			op = "delete"
		default:
			op = "equal"
		}
		segments = append(segments, models.DiffSegment{Op: op, Text: d.Text})
	}
	return segments
}

// presentFields lists the wire names of every field set in f
func presentFields(f *wikiSvc.ContributionFields) []string {
	var names []string
	add := func(set bool, name string) {
		if set {
			names = append(names, name)
		}
	}
	add(f.TempID != nil, fieldTempID)
	add(f.ParentRef != nil, fieldParentRef)
	add(f.TargetDocumentID != nil, fieldTarget)
	add(f.NewParentRef != nil, fieldNewParentRef)
	add(f.ProposedTitle != nil, fieldTitle)
	add(f.ProposedContent != nil, fieldContent)
	add(f.ProposedIsGroup != nil, fieldIsGroup)
	add(f.ProposedIsPublished != nil, fieldIsPublished)
	add(f.ProposedSortOrder != nil, fieldSortOrder)
	add(f.NewSortOrder != nil, fieldNewSortOrder)
	add(f.ProposedSlug != nil, fieldSlug)
	add(f.SiblingsOrder != nil, fieldSiblingsOrder)
	return names
}

// checkFields rejects fields that mean nothing for the operation kind
func checkFields(kind models.OperationKind, f *wikiSvc.ContributionFields) error {
	allowed, ok := allowedFields[kind]
	if !ok {
		return domain.NewValidationError("unknown operation %q", kind)
	}
	var rejected []string
	for _, name := range presentFields(f) {
		if !contains(allowed, name) {
			rejected = append(rejected, name)
		}
	}
	if len(rejected) > 0 {
		sort.Strings(rejected)
		return domain.NewValidationError("%s contribution does not accept %s", kind, strings.Join(rejected, ", "))
	}
	return nil
}

// checkIdentity rejects changes to the temp id or target of an existing contribution
func checkIdentity(c *models.Contribution, f *wikiSvc.ContributionFields) error {
	if f.TempID != nil && *f.TempID != c.TempID() {
		return domain.NewValidationError("temp_id of contribution #%d cannot be changed", c.Sequence)
	}
	if f.TargetDocumentID != nil && *f.TargetDocumentID != c.Operation.Target() {
		return domain.NewValidationError("target_document_id of contribution #%d cannot be changed", c.Sequence)
	}
	return nil
}

// applyFields copies every set field onto op. Fields were already checked against the kind.
func applyFields(op models.Operation, f *wikiSvc.ContributionFields) {
	switch op := op.(type) {
	case *models.CreateOp:
		setString(&op.TempID, f.TempID)
		setString(&op.ParentRef, f.ParentRef)
		setString(&op.Title, f.ProposedTitle)
		if f.ProposedContent != nil {
			op.Content = f.ProposedContent
		}
		if f.ProposedIsGroup != nil {
			op.IsGroup = *f.ProposedIsGroup
		}
		if f.ProposedIsPublished != nil {
			op.IsPublished = *f.ProposedIsPublished
		}
		if f.ProposedSortOrder != nil {
			op.SortOrder = f.ProposedSortOrder
		}
		if f.ProposedSlug != nil {
			op.Slug = f.ProposedSlug
		}
	case *models.EditOp:
		setString(&op.TargetID, f.TargetDocumentID)
		if f.ProposedTitle != nil {
			op.Title = f.ProposedTitle
		}
		if f.ProposedContent != nil {
			op.Content = f.ProposedContent
		}
		if f.ProposedIsGroup != nil {
			op.IsGroup = f.ProposedIsGroup
		}
		if f.ProposedIsPublished != nil {
			op.IsPublished = f.ProposedIsPublished
		}
		if f.ProposedSortOrder != nil {
			op.SortOrder = f.ProposedSortOrder
		}
		if f.ProposedSlug != nil {
			op.Slug = f.ProposedSlug
		}
	case *models.DeleteOp:
		setString(&op.TargetID, f.TargetDocumentID)
	case *models.MoveOp:
		setString(&op.TargetID, f.TargetDocumentID)
		setString(&op.NewParentRef, f.NewParentRef)
		if f.NewSortOrder != nil {
			op.NewSortOrder = f.NewSortOrder
		}
	case *models.ReorderOp:
		setString(&op.TargetID, f.TargetDocumentID)
		if f.ProposedSortOrder != nil {
			op.SortOrder = f.ProposedSortOrder
		}
		if f.NewSortOrder != nil {
			op.NewSortOrder = f.NewSortOrder
		}
	}
}

// validateProposal enforces length limits on proposed text
func validateProposal(op models.Operation) error {
	var err error
	switch op := op.(type) {
	case *models.CreateOp:
		err = validation.ValidateStruct(op,
			validation.Field(&op.Title, validation.Length(1, config.MaxTitleLength)),
			validation.Field(&op.Slug, validation.Length(0, config.MaxSlugLength)),
		)
	case *models.EditOp:
		err = validation.ValidateStruct(op,
			validation.Field(&op.Title, validation.Length(1, config.MaxTitleLength)),
			validation.Field(&op.Slug, validation.Length(0, config.MaxSlugLength)),
		)
	}
	if err != nil {
		return domain.NewValidationError("%s contribution: %v", op.Kind(), err)
	}
	return nil
}

func validateSiblings(siblings []string) error {
	if len(siblings) > config.MaxReorderSiblings {
		return domain.NewValidationError("siblings_order lists %d nodes, at most %d allowed", len(siblings), config.MaxReorderSiblings)
	}
	return nil
}

// cloneOperation deep-copies op through its payload encoding
func cloneOperation(op models.Operation) (models.Operation, error) {
	payload, err := models.EncodeOperation(op)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", op.Kind(), err)
	}
	return models.DecodeOperation(op.Kind(), payload)
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
