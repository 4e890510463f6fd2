package memory

import (
	"context"
	"fmt"
	"sort"

	"wikiflow/internal/domain"
	models "wikiflow/internal/domain/models/wiki"
	wikiRepo "wikiflow/internal/domain/repositories/wiki"
)

type spaceRepository struct {
	s *Store
}

// NewSpaceRepository returns a SpaceRepository backed by the store
func NewSpaceRepository(s *Store) wikiRepo.SpaceRepository {
	return &spaceRepository{s: s}
}

func (r *spaceRepository) Create(ctx context.Context, space *models.Space) error {
	defer r.s.write(ctx)()

	for _, existing := range r.s.spaces {
		if existing.Route == space.Route {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("a space with route %q already exists", space.Route),
				ResourceType: "space",
				ResourceID:   space.Route,
			}
		}
	}
	if _, ok := r.s.nodes[space.RootGroupID]; !ok {
		return fmt.Errorf("root group %s: %w", space.RootGroupID, domain.ErrNotFound)
	}

	space.ID = newID()
	r.s.spaces[space.ID] = *space
	return nil
}

func (r *spaceRepository) GetByID(ctx context.Context, id string) (*models.Space, error) {
	defer r.s.read(ctx)()

	sp, ok := r.s.spaces[id]
	if !ok {
		return nil, fmt.Errorf("space %s: %w", id, domain.ErrNotFound)
	}
	return &sp, nil
}

func (r *spaceRepository) GetByRootGroup(ctx context.Context, rootGroupID string) (*models.Space, error) {
	defer r.s.read(ctx)()

	for _, sp := range r.s.spaces {
		if sp.RootGroupID == rootGroupID {
			return &sp, nil
		}
	}
	return nil, fmt.Errorf("space %s: %w", rootGroupID, domain.ErrNotFound)
}

func (r *spaceRepository) List(ctx context.Context) ([]models.Space, error) {
	defer r.s.read(ctx)()

	spaces := make([]models.Space, 0, len(r.s.spaces))
	for _, sp := range r.s.spaces {
		spaces = append(spaces, sp)
	}
	sort.Slice(spaces, func(i, j int) bool { return spaces[i].Name < spaces[j].Name })
	return spaces, nil
}
