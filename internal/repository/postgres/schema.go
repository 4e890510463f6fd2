package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SchemaStatements returns the DDL for every table, in creation order.
// Node ids are text so client-supplied references that are not UUIDs simply
// match nothing instead of aborting the surrounding transaction.
func SchemaStatements(t *TableNames) []string {
	return []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto`,
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
				title        VARCHAR(255) NOT NULL,
				content      TEXT,
				is_group     BOOLEAN NOT NULL DEFAULT FALSE,
				is_published BOOLEAN NOT NULL DEFAULT FALSE,
				parent_id    TEXT REFERENCES %s(id),
				sort_order   INTEGER NOT NULL DEFAULT 0,
				lft          INTEGER NOT NULL DEFAULT 0,
				rgt          INTEGER NOT NULL DEFAULT 0,
				route        VARCHAR(500) NOT NULL DEFAULT '',
				created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				modified_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`, t.Nodes, t.Nodes),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_parent_idx ON %s (parent_id, sort_order, id)`, t.Nodes, t.Nodes),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_bounds_idx ON %s (lft, rgt)`, t.Nodes, t.Nodes),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_route_idx ON %s (route)`, t.Nodes, t.Nodes),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				name          VARCHAR(255) NOT NULL,
				route         VARCHAR(255) NOT NULL UNIQUE,
				root_group_id TEXT NOT NULL UNIQUE REFERENCES %s(id),
				created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`, t.Spaces, t.Nodes),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id             UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				title          VARCHAR(255) NOT NULL,
				space_id       UUID NOT NULL REFERENCES %s(id),
				contributor_id TEXT NOT NULL,
				status         VARCHAR(32) NOT NULL DEFAULT 'Draft',
				submitted_at   TIMESTAMPTZ,
				reviewed_by    TEXT,
				reviewed_at    TIMESTAMPTZ,
				review_comment TEXT,
				created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				modified_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`, t.Batches, t.Spaces),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_contributor_idx ON %s (contributor_id, status)`, t.Batches, t.Batches),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id                 UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				batch_id           UUID NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
				sequence           INTEGER NOT NULL,
				operation          VARCHAR(16) NOT NULL,
				payload            JSONB NOT NULL DEFAULT '{}',
				temp_id            VARCHAR(64),
				target_document_id TEXT REFERENCES %s(id) ON DELETE SET NULL,
				siblings_order     JSONB,
				snapshot           JSONB,
				created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				modified_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				UNIQUE (batch_id, sequence)
			)`, t.Contributions, t.Batches, t.Nodes),
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %s_temp_idx ON %s (batch_id, temp_id) WHERE temp_id IS NOT NULL`, t.Contributions, t.Contributions),
	}
}

// EnsureSchema creates any missing tables and indexes.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, t *TableNames) error {
	for _, stmt := range SchemaStatements(t) {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// DropSchema drops every table, dependents first.
func DropSchema(ctx context.Context, pool *pgxpool.Pool, t *TableNames) error {
	tables := t.All()
	for i := len(tables) - 1; i >= 0; i-- {
		if _, err := pool.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s CASCADE`, tables[i])); err != nil {
			return fmt.Errorf("drop %s: %w", tables[i], err)
		}
	}
	return nil
}

// ClearData removes every row but keeps the tables.
func ClearData(ctx context.Context, pool *pgxpool.Pool, t *TableNames) error {
	stmt := fmt.Sprintf(`TRUNCATE %s CASCADE`, strings.Join(t.All(), ", "))
	if _, err := pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("clear data: %w", err)
	}
	return nil
}
