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

const nodeColumns = `id, title, content, is_group, is_published, parent_id, sort_order, lft, rgt, route, created_at, modified_at`

// PostgresNodeRepository implements the NodeRepository interface
type PostgresNodeRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewNodeRepository creates a new node repository
func NewNodeRepository(config *postgres.RepositoryConfig) wikiRepo.NodeRepository {
	return &PostgresNodeRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNode(row rowScanner) (*models.Node, error) {
	var n models.Node
	err := row.Scan(
		&n.ID,
		&n.Title,
		&n.Content,
		&n.IsGroup,
		&n.IsPublished,
		&n.ParentID,
		&n.SortOrder,
		&n.Lft,
		&n.Rgt,
		&n.Route,
		&n.CreatedAt,
		&n.ModifiedAt,
	)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func collectNodes(rows pgx.Rows) ([]models.Node, error) {
	defer rows.Close()

	var nodes []models.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		nodes = append(nodes, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nodes: %w", err)
	}
	return nodes, nil
}

// Create inserts a node
func (r *PostgresNodeRepository) Create(ctx context.Context, node *models.Node) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (title, content, is_group, is_published, parent_id, sort_order, route, created_at, modified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, lft, rgt
	`, r.tables.Nodes)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		node.Title,
		node.Content,
		node.IsGroup,
		node.IsPublished,
		node.ParentID,
		node.SortOrder,
		node.Route,
		node.CreatedAt,
		node.ModifiedAt,
	).Scan(&node.ID, &node.Lft, &node.Rgt)

	if err != nil {
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("parent of %q: %w", node.Title, domain.ErrNotFound)
		}
		return fmt.Errorf("create node: %w", err)
	}

	return nil
}

// GetByID retrieves a node by ID
func (r *PostgresNodeRepository) GetByID(ctx context.Context, id string) (*models.Node, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, nodeColumns, r.tables.Nodes)

	executor := postgres.GetExecutor(ctx, r.pool)
	node, err := scanNode(executor.QueryRow(ctx, query, id))
	if err != nil {
		if postgres.IsPgMissingRowError(err) {
			return nil, fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get node: %w", err)
	}

	return node, nil
}

// GetByRoute retrieves the first node (in tree order) holding a route
func (r *PostgresNodeRepository) GetByRoute(ctx context.Context, route string) (*models.Node, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE route = $1 ORDER BY lft LIMIT 1`, nodeColumns, r.tables.Nodes)

	executor := postgres.GetExecutor(ctx, r.pool)
	node, err := scanNode(executor.QueryRow(ctx, query, route))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("route %s: %w", route, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get node by route: %w", err)
	}

	return node, nil
}

// Update writes content and structural fields
func (r *PostgresNodeRepository) Update(ctx context.Context, node *models.Node) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET title = $1, content = $2, is_group = $3, is_published = $4,
		    parent_id = $5, sort_order = $6, route = $7, modified_at = $8
		WHERE id = $9
	`, r.tables.Nodes)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		node.Title,
		node.Content,
		node.IsGroup,
		node.IsPublished,
		node.ParentID,
		node.SortOrder,
		node.Route,
		node.ModifiedAt,
		node.ID,
	)
	if err != nil {
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("parent of node %s: %w", node.ID, domain.ErrNotFound)
		}
		return fmt.Errorf("update node: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("node %s: %w", node.ID, domain.ErrNotFound)
	}

	return nil
}

// UpdateSortOrder sets sort_order only
func (r *PostgresNodeRepository) UpdateSortOrder(ctx context.Context, id string, sortOrder int) error {
	query := fmt.Sprintf(`UPDATE %s SET sort_order = $1 WHERE id = $2`, r.tables.Nodes)
	return r.execOne(ctx, query, id, sortOrder, id)
}

// UpdateRoute sets route only
func (r *PostgresNodeRepository) UpdateRoute(ctx context.Context, id, route string) error {
	query := fmt.Sprintf(`UPDATE %s SET route = $1 WHERE id = $2`, r.tables.Nodes)
	return r.execOne(ctx, query, id, route, id)
}

// UpdateBounds sets the nested-set bounds
func (r *PostgresNodeRepository) UpdateBounds(ctx context.Context, id string, lft, rgt int) error {
	query := fmt.Sprintf(`UPDATE %s SET lft = $1, rgt = $2 WHERE id = $3`, r.tables.Nodes)
	return r.execOne(ctx, query, id, lft, rgt, id)
}

// Delete removes a single node
func (r *PostgresNodeRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Nodes)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("node %s still has children or is a space root: %w", id, domain.ErrValidation)
		}
		return fmt.Errorf("delete node: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// ListChildren lists immediate children ordered by (sort_order, id)
func (r *PostgresNodeRepository) ListChildren(ctx context.Context, parentID string) ([]models.Node, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE parent_id = $1
		ORDER BY sort_order, id
	`, nodeColumns, r.tables.Nodes)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, parentID)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	return collectNodes(rows)
}

// ListDescendants walks parent pointers so it stays correct while bounds are stale
func (r *PostgresNodeRepository) ListDescendants(ctx context.Context, id string) ([]models.Node, error) {
	query := fmt.Sprintf(`
		WITH RECURSIVE descendants AS (
			SELECT %[1]s, 1 AS depth
			FROM %[2]s
			WHERE parent_id = $1
			UNION ALL
			SELECT n.id, n.title, n.content, n.is_group, n.is_published, n.parent_id,
			       n.sort_order, n.lft, n.rgt, n.route, n.created_at, n.modified_at, d.depth + 1
			FROM %[2]s n
			JOIN descendants d ON n.parent_id = d.id
		)
		SELECT %[1]s FROM descendants
		ORDER BY depth, sort_order, id
	`, nodeColumns, r.tables.Nodes)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("list descendants: %w", err)
	}
	return collectNodes(rows)
}

// ListSubtree returns nodes inside [lft, rgt] in tree order
func (r *PostgresNodeRepository) ListSubtree(ctx context.Context, lft, rgt int) ([]models.Node, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE lft >= $1 AND rgt <= $2
		ORDER BY lft
	`, nodeColumns, r.tables.Nodes)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, lft, rgt)
	if err != nil {
		return nil, fmt.Errorf("list subtree: %w", err)
	}
	return collectNodes(rows)
}

// ListAncestors returns the nodes enclosing node, root first
func (r *PostgresNodeRepository) ListAncestors(ctx context.Context, node *models.Node) ([]models.Node, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE lft < $1 AND rgt > $2
		ORDER BY lft
	`, nodeColumns, r.tables.Nodes)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, node.Lft, node.Rgt)
	if err != nil {
		return nil, fmt.Errorf("list ancestors: %w", err)
	}
	return collectNodes(rows)
}

// ListAll returns every node
func (r *PostgresNodeRepository) ListAll(ctx context.Context) ([]models.Node, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY lft, id`, nodeColumns, r.tables.Nodes)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	return collectNodes(rows)
}

func (r *PostgresNodeRepository) execOne(ctx context.Context, query, id string, args ...interface{}) error {
	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update node %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
