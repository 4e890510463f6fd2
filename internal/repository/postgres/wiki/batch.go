package wiki

import (
	"context"
	"fmt"
	"log/slog"

	"wikiflow/internal/domain"
	models "wikiflow/internal/domain/models/wiki"
	wikiRepo "wikiflow/internal/domain/repositories/wiki"
	"wikiflow/internal/repository/postgres"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresBatchRepository implements the BatchRepository interface
type PostgresBatchRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewBatchRepository creates a new batch repository
func NewBatchRepository(config *postgres.RepositoryConfig) wikiRepo.BatchRepository {
	return &PostgresBatchRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// batchSelect selects every batch column plus a computed contribution count
func (r *PostgresBatchRepository) batchSelect() string {
	return fmt.Sprintf(`
		SELECT b.id, b.title, b.space_id, b.contributor_id, b.status, b.submitted_at,
		       b.reviewed_by, b.reviewed_at, b.review_comment, b.created_at, b.modified_at,
		       (SELECT COUNT(*) FROM %s c WHERE c.batch_id = b.id)
		FROM %s b
	`, r.tables.Contributions, r.tables.Batches)
}

func scanBatch(row rowScanner) (*models.Batch, error) {
	var b models.Batch
	err := row.Scan(
		&b.ID,
		&b.Title,
		&b.SpaceID,
		&b.ContributorID,
		&b.Status,
		&b.SubmittedAt,
		&b.ReviewedBy,
		&b.ReviewedAt,
		&b.ReviewComment,
		&b.CreatedAt,
		&b.ModifiedAt,
		&b.ContributionCount,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func collectBatches(rows pgx.Rows) ([]models.Batch, error) {
	defer rows.Close()

	batches := []models.Batch{}
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		batches = append(batches, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batches: %w", err)
	}
	return batches, nil
}

// Create inserts a batch
func (r *PostgresBatchRepository) Create(ctx context.Context, batch *models.Batch) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (title, space_id, contributor_id, status, created_at, modified_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, r.tables.Batches)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		batch.Title,
		batch.SpaceID,
		batch.ContributorID,
		batch.Status,
		batch.CreatedAt,
		batch.ModifiedAt,
	).Scan(&batch.ID)

	if err != nil {
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("space %s: %w", batch.SpaceID, domain.ErrNotFound)
		}
		return fmt.Errorf("create batch: %w", err)
	}

	return nil
}

// GetByID retrieves a batch by ID
func (r *PostgresBatchRepository) GetByID(ctx context.Context, id string) (*models.Batch, error) {
	return r.getOne(ctx, r.batchSelect()+` WHERE b.id = $1`, id)
}

// GetForUpdate retrieves a batch and takes a row lock on it
func (r *PostgresBatchRepository) GetForUpdate(ctx context.Context, id string) (*models.Batch, error) {
	return r.getOne(ctx, r.batchSelect()+` WHERE b.id = $1 FOR UPDATE OF b`, id)
}

func (r *PostgresBatchRepository) getOne(ctx context.Context, query, id string) (*models.Batch, error) {
	executor := postgres.GetExecutor(ctx, r.pool)
	batch, err := scanBatch(executor.QueryRow(ctx, query, id))
	if err != nil {
		if postgres.IsPgMissingRowError(err) {
			return nil, fmt.Errorf("batch %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return batch, nil
}

// Update writes title, status and review fields
func (r *PostgresBatchRepository) Update(ctx context.Context, batch *models.Batch) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET title = $1, status = $2, submitted_at = $3, reviewed_by = $4,
		    reviewed_at = $5, review_comment = $6, modified_at = $7
		WHERE id = $8
	`, r.tables.Batches)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		batch.Title,
		batch.Status,
		batch.SubmittedAt,
		batch.ReviewedBy,
		batch.ReviewedAt,
		batch.ReviewComment,
		batch.ModifiedAt,
		batch.ID,
	)
	if err != nil {
		return fmt.Errorf("update batch: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("batch %s: %w", batch.ID, domain.ErrNotFound)
	}

	return nil
}

// FindDraft returns the contributor's most recent Draft batch in a space
func (r *PostgresBatchRepository) FindDraft(ctx context.Context, spaceID, contributorID string) (*models.Batch, error) {
	query := r.batchSelect() + `
		WHERE b.space_id = $1 AND b.contributor_id = $2 AND b.status = $3
		ORDER BY b.created_at DESC
		LIMIT 1
	`

	executor := postgres.GetExecutor(ctx, r.pool)
	batch, err := scanBatch(executor.QueryRow(ctx, query, spaceID, contributorID, models.BatchDraft))
	if err != nil {
		if postgres.IsPgMissingRowError(err) {
			return nil, fmt.Errorf("draft batch in space %s: %w", spaceID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("find draft batch: %w", err)
	}
	return batch, nil
}

// ListByContributor lists a contributor's batches, newest first
func (r *PostgresBatchRepository) ListByContributor(ctx context.Context, contributorID string, status *models.BatchStatus) ([]models.Batch, error) {
	query := r.batchSelect() + ` WHERE b.contributor_id = $1`
	args := []interface{}{contributorID}

	if status != nil {
		query += ` AND b.status = $2`
		args = append(args, *status)
	}
	query += ` ORDER BY b.modified_at DESC`

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	return collectBatches(rows)
}

// ListByStatus lists batches in the given statuses, oldest submission first
func (r *PostgresBatchRepository) ListByStatus(ctx context.Context, statuses []models.BatchStatus) ([]models.Batch, error) {
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}

	query := r.batchSelect() + `
		WHERE b.status = ANY($1)
		ORDER BY b.submitted_at ASC NULLS LAST, b.created_at ASC
	`

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, values)
	if err != nil {
		return nil, fmt.Errorf("list batches by status: %w", err)
	}
	return collectBatches(rows)
}
