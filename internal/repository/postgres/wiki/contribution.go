package wiki

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"wikiflow/internal/domain"
	models "wikiflow/internal/domain/models/wiki"
	wikiRepo "wikiflow/internal/domain/repositories/wiki"
	"wikiflow/internal/repository/postgres"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const contributionColumns = `id, batch_id, sequence, operation, payload, target_document_id, siblings_order, snapshot, created_at, modified_at`

// PostgresContributionRepository implements the ContributionRepository interface
type PostgresContributionRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewContributionRepository creates a new contribution repository
func NewContributionRepository(config *postgres.RepositoryConfig) wikiRepo.ContributionRepository {
	return &PostgresContributionRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

func scanContribution(row rowScanner) (*models.Contribution, error) {
	var (
		c        models.Contribution
		kind     models.OperationKind
		payload  []byte
		siblings []byte
		snapshot []byte
	)
	err := row.Scan(
		&c.ID,
		&c.BatchID,
		&c.Sequence,
		&kind,
		&payload,
		&c.TargetDocumentID,
		&siblings,
		&snapshot,
		&c.CreatedAt,
		&c.ModifiedAt,
	)
	if err != nil {
		return nil, err
	}

	if c.Operation, err = models.DecodeOperation(kind, payload); err != nil {
		return nil, err
	}
	if len(siblings) > 0 {
		if err := json.Unmarshal(siblings, &c.SiblingsOrder); err != nil {
			return nil, fmt.Errorf("decode siblings order: %w", err)
		}
	}
	if len(snapshot) > 0 && string(snapshot) != "null" {
		c.Snapshot = &models.Snapshot{}
		if err := json.Unmarshal(snapshot, c.Snapshot); err != nil {
			return nil, fmt.Errorf("decode snapshot: %w", err)
		}
	}

	return &c, nil
}

// encodeJSON returns nil for nil values so the column stays SQL NULL
func encodeJSON(v interface{}, isNil bool) ([]byte, error) {
	if isNil {
		return nil, nil
	}
	return json.Marshal(v)
}

// Create inserts a contribution
func (r *PostgresContributionRepository) Create(ctx context.Context, c *models.Contribution) error {
	payload, err := models.EncodeOperation(c.Operation)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	siblings, err := encodeJSON(c.SiblingsOrder, c.SiblingsOrder == nil)
	if err != nil {
		return fmt.Errorf("encode siblings order: %w", err)
	}
	snapshot, err := encodeJSON(c.Snapshot, c.Snapshot == nil)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	var tempID *string
	if t := c.TempID(); t != "" {
		tempID = &t
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (batch_id, sequence, operation, payload, temp_id, target_document_id,
		                siblings_order, snapshot, created_at, modified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, r.tables.Contributions)

	executor := postgres.GetExecutor(ctx, r.pool)
	err = executor.QueryRow(ctx, query,
		c.BatchID,
		c.Sequence,
		c.Kind(),
		payload,
		tempID,
		c.TargetDocumentID,
		siblings,
		snapshot,
		c.CreatedAt,
		c.ModifiedAt,
	).Scan(&c.ID)

	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("batch %s already has contribution #%d or temp id %s", c.BatchID, c.Sequence, c.TempID()),
				ResourceType: "contribution",
				ResourceID:   c.BatchID,
			}
		}
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("batch or target of contribution: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("create contribution: %w", err)
	}

	return nil
}

// GetByID retrieves a contribution by ID
func (r *PostgresContributionRepository) GetByID(ctx context.Context, id string) (*models.Contribution, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, contributionColumns, r.tables.Contributions)

	executor := postgres.GetExecutor(ctx, r.pool)
	c, err := scanContribution(executor.QueryRow(ctx, query, id))
	if err != nil {
		if postgres.IsPgMissingRowError(err) {
			return nil, fmt.Errorf("contribution %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get contribution: %w", err)
	}
	return c, nil
}

// Update writes the payload and siblings order
func (r *PostgresContributionRepository) Update(ctx context.Context, c *models.Contribution) error {
	payload, err := models.EncodeOperation(c.Operation)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	siblings, err := encodeJSON(c.SiblingsOrder, c.SiblingsOrder == nil)
	if err != nil {
		return fmt.Errorf("encode siblings order: %w", err)
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET payload = $1, siblings_order = $2, modified_at = $3
		WHERE id = $4
	`, r.tables.Contributions)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, payload, siblings, c.ModifiedAt, c.ID)
	if err != nil {
		return fmt.Errorf("update contribution: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("contribution %s: %w", c.ID, domain.ErrNotFound)
	}
	return nil
}

// Delete removes a contribution
func (r *PostgresContributionRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Contributions)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete contribution: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("contribution %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ListByBatch returns a batch's contributions in merge order
func (r *PostgresContributionRepository) ListByBatch(ctx context.Context, batchID string) ([]models.Contribution, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE batch_id = $1
		ORDER BY sequence ASC
	`, contributionColumns, r.tables.Contributions)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, batchID)
	if err != nil {
		return nil, fmt.Errorf("list contributions: %w", err)
	}
	return collectContributions(rows)
}

func collectContributions(rows pgx.Rows) ([]models.Contribution, error) {
	defer rows.Close()

	contributions := []models.Contribution{}
	for rows.Next() {
		c, err := scanContribution(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contribution: %w", err)
		}
		contributions = append(contributions, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contributions: %w", err)
	}
	return contributions, nil
}

// MaxSequence returns the highest sequence in the batch
func (r *PostgresContributionRepository) MaxSequence(ctx context.Context, batchID string) (int, error) {
	query := fmt.Sprintf(`SELECT COALESCE(MAX(sequence), 0) FROM %s WHERE batch_id = $1`, r.tables.Contributions)

	var maxSeq int
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, batchID).Scan(&maxSeq); err != nil {
		return 0, fmt.Errorf("max sequence: %w", err)
	}
	return maxSeq, nil
}

// SetSequence renumbers one contribution
func (r *PostgresContributionRepository) SetSequence(ctx context.Context, id string, sequence int) error {
	query := fmt.Sprintf(`UPDATE %s SET sequence = $1 WHERE id = $2`, r.tables.Contributions)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, sequence, id)
	if err != nil {
		return fmt.Errorf("set sequence: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("contribution %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// FindByTempID returns the Create contribution that minted tempID
func (r *PostgresContributionRepository) FindByTempID(ctx context.Context, batchID, tempID string) (*models.Contribution, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE batch_id = $1 AND temp_id = $2
	`, contributionColumns, r.tables.Contributions)

	executor := postgres.GetExecutor(ctx, r.pool)
	c, err := scanContribution(executor.QueryRow(ctx, query, batchID, tempID))
	if err != nil {
		if postgres.IsPgMissingRowError(err) {
			return nil, fmt.Errorf("temp id %s in batch %s: %w", tempID, batchID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("find contribution by temp id: %w", err)
	}
	return c, nil
}

// DetachTarget clears target links to nodeID
func (r *PostgresContributionRepository) DetachTarget(ctx context.Context, nodeID string) error {
	query := fmt.Sprintf(`UPDATE %s SET target_document_id = NULL WHERE target_document_id = $1`, r.tables.Contributions)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, nodeID); err != nil {
		return fmt.Errorf("detach contribution target: %w", err)
	}
	return nil
}
