package wiki

import (
	"context"
	"fmt"
	"log/slog"

	"wikiflow/internal/domain"
	models "wikiflow/internal/domain/models/wiki"
	wikiRepo "wikiflow/internal/domain/repositories/wiki"
	"wikiflow/internal/repository/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSpaceRepository implements the SpaceRepository interface
type PostgresSpaceRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewSpaceRepository creates a new space repository
func NewSpaceRepository(config *postgres.RepositoryConfig) wikiRepo.SpaceRepository {
	return &PostgresSpaceRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create inserts a space
func (r *PostgresSpaceRepository) Create(ctx context.Context, space *models.Space) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (name, route, root_group_id, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, r.tables.Spaces)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		space.Name,
		space.Route,
		space.RootGroupID,
		space.CreatedAt,
	).Scan(&space.ID)

	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("a space with route %q already exists", space.Route),
				ResourceType: "space",
				ResourceID:   space.Route,
			}
		}
		return fmt.Errorf("create space: %w", err)
	}

	return nil
}

// GetByID retrieves a space by ID
func (r *PostgresSpaceRepository) GetByID(ctx context.Context, id string) (*models.Space, error) {
	return r.getOne(ctx, "id", id)
}

// GetByRootGroup retrieves the space whose root group is rootGroupID
func (r *PostgresSpaceRepository) GetByRootGroup(ctx context.Context, rootGroupID string) (*models.Space, error) {
	return r.getOne(ctx, "root_group_id", rootGroupID)
}

// List returns all spaces by name
func (r *PostgresSpaceRepository) List(ctx context.Context) ([]models.Space, error) {
	query := fmt.Sprintf(`
		SELECT id, name, route, root_group_id, created_at
		FROM %s
		ORDER BY name
	`, r.tables.Spaces)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list spaces: %w", err)
	}
	defer rows.Close()

	spaces := []models.Space{}
	for rows.Next() {
		var s models.Space
		if err := rows.Scan(&s.ID, &s.Name, &s.Route, &s.RootGroupID, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan space: %w", err)
		}
		spaces = append(spaces, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate spaces: %w", err)
	}

	return spaces, nil
}

func (r *PostgresSpaceRepository) getOne(ctx context.Context, column, value string) (*models.Space, error) {
	query := fmt.Sprintf(`
		SELECT id, name, route, root_group_id, created_at
		FROM %s
		WHERE %s = $1
	`, r.tables.Spaces, column)

	var s models.Space
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, value).Scan(&s.ID, &s.Name, &s.Route, &s.RootGroupID, &s.CreatedAt)
	if err != nil {
		if postgres.IsPgMissingRowError(err) {
			return nil, fmt.Errorf("space %s: %w", value, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get space: %w", err)
	}

	return &s, nil
}
