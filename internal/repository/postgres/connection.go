package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"wikiflow/internal/domain/repositories"
)

// Pool sizing shared by the server and seed tool
const (
	MaxConns = 25
	MinConns = 5
)

// RepositoryConfig holds configuration for repository implementations
type RepositoryConfig struct {
	Pool   *pgxpool.Pool
	Tables *TableNames
	Logger *slog.Logger
}

// TableNames holds dynamically prefixed table names
type TableNames struct {
	Spaces        string
	Nodes         string
	Batches       string
	Contributions string
}

// NewTableNames creates table names with the given prefix
func NewTableNames(prefix string) *TableNames {
	return &TableNames{
		Spaces:        fmt.Sprintf("%sspaces", prefix),
		Nodes:         fmt.Sprintf("%swiki_nodes", prefix),
		Batches:       fmt.Sprintf("%scontribution_batches", prefix),
		Contributions: fmt.Sprintf("%scontributions", prefix),
	}
}

// All returns every table in dependency order (referenced tables first)
func (t *TableNames) All() []string {
	return []string{t.Nodes, t.Spaces, t.Batches, t.Contributions}
}

// CreateConnectionPool creates a pgx connection pool.
//
// PgBouncer in transaction pooling mode (port 6543) rejects prepared statements, so that
// port is switched to QueryExecModeCacheDescribe unless default_query_exec_mode is set
// explicitly in the connection string. Prefixed table names are interpolated before the
// statement reaches the server, so each environment caches its own statements.
func CreateConnectionPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	config.MaxConns = MaxConns
	config.MinConns = MinConns

	// Extended protocol is still needed for JSONB payload encoding
	if config.ConnConfig.Port == 6543 && config.ConnConfig.DefaultQueryExecMode == pgx.QueryExecModeCacheStatement {
		config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheDescribe
		slog.Debug("auto-configured cache_describe mode for PgBouncer compatibility", "port", 6543)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// GetExecutor returns the transaction carried by ctx, or the pool outside one.
func GetExecutor(ctx context.Context, pool *pgxpool.Pool) repositories.DBTX {
	return repositories.Executor(ctx, pool)
}
