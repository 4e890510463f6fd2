package memory

import (
	"context"
	"fmt"
	"sort"

	"wikiflow/internal/domain"
	models "wikiflow/internal/domain/models/wiki"
	wikiRepo "wikiflow/internal/domain/repositories/wiki"
)

type contributionRepository struct {
	s *Store
}

// NewContributionRepository returns a ContributionRepository backed by the store
func NewContributionRepository(s *Store) wikiRepo.ContributionRepository {
	return &contributionRepository{s: s}
}

// encodeContribution keeps the operation encoded so callers never share payload pointers with the store
func encodeContribution(c *models.Contribution) (storedContribution, error) {
	payload, err := models.EncodeOperation(c.Operation)
	if err != nil {
		return storedContribution{}, fmt.Errorf("encode payload: %w", err)
	}
	sc := storedContribution{Contribution: *c, kind: c.Kind(), payload: payload}
	sc.Operation = nil
	sc.TargetDocumentID = clonePtr(c.TargetDocumentID)
	sc.SiblingsOrder = append([]string(nil), c.SiblingsOrder...)
	if c.Snapshot != nil {
		snap := *c.Snapshot
		snap.OriginalContent = clonePtr(snap.OriginalContent)
		snap.OriginalParent = clonePtr(snap.OriginalParent)
		sc.Snapshot = &snap
	}
	return sc, nil
}

func decodeContribution(sc storedContribution) (models.Contribution, error) {
	c := sc.Contribution
	op, err := models.DecodeOperation(sc.kind, sc.payload)
	if err != nil {
		return models.Contribution{}, err
	}
	c.Operation = op
	c.TargetDocumentID = clonePtr(sc.TargetDocumentID)
	c.SiblingsOrder = append([]string(nil), sc.SiblingsOrder...)
	if sc.Snapshot != nil {
		snap := *sc.Snapshot
		c.Snapshot = &snap
	}
	return c, nil
}

func (r *contributionRepository) Create(ctx context.Context, c *models.Contribution) error {
	defer r.s.write(ctx)()

	if _, ok := r.s.batches[c.BatchID]; !ok {
		return fmt.Errorf("batch %s: %w", c.BatchID, domain.ErrNotFound)
	}
	if c.TargetDocumentID != nil {
		if _, ok := r.s.nodes[*c.TargetDocumentID]; !ok {
			return fmt.Errorf("target %s: %w", *c.TargetDocumentID, domain.ErrNotFound)
		}
	}
	for _, existing := range r.s.contributions {
		if existing.BatchID != c.BatchID {
			continue
		}
		tempClash := c.TempID() != "" && existing.kind == models.OpCreate && r.tempIDLocked(existing) == c.TempID()
		if existing.Sequence == c.Sequence || tempClash {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("batch %s already has contribution #%d or temp id %s", c.BatchID, c.Sequence, c.TempID()),
				ResourceType: "contribution",
				ResourceID:   c.BatchID,
			}
		}
	}

	c.ID = newID()
	sc, err := encodeContribution(c)
	if err != nil {
		return err
	}
	r.s.contributions[c.ID] = sc
	return nil
}

func (r *contributionRepository) tempIDLocked(sc storedContribution) string {
	c, err := decodeContribution(sc)
	if err != nil {
		return ""
	}
	return c.TempID()
}

func (r *contributionRepository) GetByID(ctx context.Context, id string) (*models.Contribution, error) {
	defer r.s.read(ctx)()

	sc, ok := r.s.contributions[id]
	if !ok {
		return nil, fmt.Errorf("contribution %s: %w", id, domain.ErrNotFound)
	}
	c, err := decodeContribution(sc)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *contributionRepository) Update(ctx context.Context, c *models.Contribution) error {
	defer r.s.write(ctx)()

	existing, ok := r.s.contributions[c.ID]
	if !ok {
		return fmt.Errorf("contribution %s: %w", c.ID, domain.ErrNotFound)
	}

	sc, err := encodeContribution(c)
	if err != nil {
		return err
	}
	existing.kind = sc.kind
	existing.payload = sc.payload
	existing.SiblingsOrder = sc.SiblingsOrder
	existing.ModifiedAt = c.ModifiedAt
	r.s.contributions[c.ID] = existing
	return nil
}

func (r *contributionRepository) Delete(ctx context.Context, id string) error {
	defer r.s.write(ctx)()

	if _, ok := r.s.contributions[id]; !ok {
		return fmt.Errorf("contribution %s: %w", id, domain.ErrNotFound)
	}
	delete(r.s.contributions, id)
	return nil
}

func (r *contributionRepository) ListByBatch(ctx context.Context, batchID string) ([]models.Contribution, error) {
	defer r.s.read(ctx)()

	contributions := []models.Contribution{}
	for _, sc := range r.s.contributions {
		if sc.BatchID != batchID {
			continue
		}
		c, err := decodeContribution(sc)
		if err != nil {
			return nil, err
		}
		contributions = append(contributions, c)
	}
	sort.Slice(contributions, func(i, j int) bool {
		return contributions[i].Sequence < contributions[j].Sequence
	})
	return contributions, nil
}

func (r *contributionRepository) MaxSequence(ctx context.Context, batchID string) (int, error) {
	defer r.s.read(ctx)()

	maxSeq := 0
	for _, sc := range r.s.contributions {
		if sc.BatchID == batchID && sc.Sequence > maxSeq {
			maxSeq = sc.Sequence
		}
	}
	return maxSeq, nil
}

func (r *contributionRepository) SetSequence(ctx context.Context, id string, sequence int) error {
	defer r.s.write(ctx)()

	sc, ok := r.s.contributions[id]
	if !ok {
		return fmt.Errorf("contribution %s: %w", id, domain.ErrNotFound)
	}
	sc.Sequence = sequence
	r.s.contributions[id] = sc
	return nil
}

func (r *contributionRepository) FindByTempID(ctx context.Context, batchID, tempID string) (*models.Contribution, error) {
	defer r.s.read(ctx)()

	for _, sc := range r.s.contributions {
		if sc.BatchID != batchID || sc.kind != models.OpCreate {
			continue
		}
		c, err := decodeContribution(sc)
		if err != nil {
			return nil, err
		}
		if c.TempID() == tempID {
			return &c, nil
		}
	}
	return nil, fmt.Errorf("temp id %s in batch %s: %w", tempID, batchID, domain.ErrNotFound)
}

func (r *contributionRepository) DetachTarget(ctx context.Context, nodeID string) error {
	defer r.s.write(ctx)()

	for id, sc := range r.s.contributions {
		if sc.TargetDocumentID != nil && *sc.TargetDocumentID == nodeID {
			sc.TargetDocumentID = nil
			r.s.contributions[id] = sc
		}
	}
	return nil
}
