package memory

import (
	"context"
	"fmt"
	"sort"

	"wikiflow/internal/domain"
	models "wikiflow/internal/domain/models/wiki"
	wikiRepo "wikiflow/internal/domain/repositories/wiki"
)

type batchRepository struct {
	s *Store
}

// NewBatchRepository returns a BatchRepository backed by the store
func NewBatchRepository(s *Store) wikiRepo.BatchRepository {
	return &batchRepository{s: s}
}

// withCountLocked copies a stored batch and fills in its contribution count
func (r *batchRepository) withCountLocked(b models.Batch) models.Batch {
	b = cloneBatch(b)
	b.ContributionCount = 0
	for _, c := range r.s.contributions {
		if c.BatchID == b.ID {
			b.ContributionCount++
		}
	}
	return b
}

func (r *batchRepository) Create(ctx context.Context, batch *models.Batch) error {
	defer r.s.write(ctx)()

	if _, ok := r.s.spaces[batch.SpaceID]; !ok {
		return fmt.Errorf("space %s: %w", batch.SpaceID, domain.ErrNotFound)
	}

	batch.ID = newID()
	r.s.batches[batch.ID] = cloneBatch(*batch)
	return nil
}

func (r *batchRepository) GetByID(ctx context.Context, id string) (*models.Batch, error) {
	defer r.s.read(ctx)()

	b, ok := r.s.batches[id]
	if !ok {
		return nil, fmt.Errorf("batch %s: %w", id, domain.ErrNotFound)
	}
	b = r.withCountLocked(b)
	return &b, nil
}

// GetForUpdate needs no row lock: ExecTx already serialises writers
func (r *batchRepository) GetForUpdate(ctx context.Context, id string) (*models.Batch, error) {
	return r.GetByID(ctx, id)
}

func (r *batchRepository) Update(ctx context.Context, batch *models.Batch) error {
	defer r.s.write(ctx)()

	existing, ok := r.s.batches[batch.ID]
	if !ok {
		return fmt.Errorf("batch %s: %w", batch.ID, domain.ErrNotFound)
	}

	updated := cloneBatch(*batch)
	updated.SpaceID = existing.SpaceID
	updated.ContributorID = existing.ContributorID
	updated.CreatedAt = existing.CreatedAt
	r.s.batches[batch.ID] = updated
	return nil
}

func (r *batchRepository) FindDraft(ctx context.Context, spaceID, contributorID string) (*models.Batch, error) {
	defer r.s.read(ctx)()

	var found *models.Batch
	for _, b := range r.s.batches {
		if b.SpaceID != spaceID || b.ContributorID != contributorID || b.Status != models.BatchDraft {
			continue
		}
		if found == nil || b.CreatedAt.After(found.CreatedAt) {
			c := r.withCountLocked(b)
			found = &c
		}
	}
	if found == nil {
		return nil, fmt.Errorf("draft batch in space %s: %w", spaceID, domain.ErrNotFound)
	}
	return found, nil
}

func (r *batchRepository) ListByContributor(ctx context.Context, contributorID string, status *models.BatchStatus) ([]models.Batch, error) {
	defer r.s.read(ctx)()

	batches := []models.Batch{}
	for _, b := range r.s.batches {
		if b.ContributorID != contributorID {
			continue
		}
		if status != nil && b.Status != *status {
			continue
		}
		batches = append(batches, r.withCountLocked(b))
	}
	sort.Slice(batches, func(i, j int) bool {
		return batches[i].ModifiedAt.After(batches[j].ModifiedAt)
	})
	return batches, nil
}

func (r *batchRepository) ListByStatus(ctx context.Context, statuses []models.BatchStatus) ([]models.Batch, error) {
	defer r.s.read(ctx)()

	wanted := make(map[models.BatchStatus]bool, len(statuses))
	for _, s := range statuses {
		wanted[s] = true
	}

	batches := []models.Batch{}
	for _, b := range r.s.batches {
		if wanted[b.Status] {
			batches = append(batches, r.withCountLocked(b))
		}
	}
	sort.Slice(batches, func(i, j int) bool {
		a, b := batches[i].SubmittedAt, batches[j].SubmittedAt
		switch {
		case a != nil && b != nil && !a.Equal(*b):
			return a.Before(*b)
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return batches[i].CreatedAt.Before(batches[j].CreatedAt)
	})
	return batches, nil
}
