package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
)

// Migration is one versioned schema change
type Migration struct {
	Version int
	Name    string
	Up      string
}

// Statements use ? placeholders and portable types; rebind handles postgres.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_analyses_table",
		Up: `
			CREATE TABLE IF NOT EXISTS analyses (
				id TEXT PRIMARY KEY,
				content_type TEXT NOT NULL,
				status TEXT NOT NULL,
				final_score INTEGER NOT NULL,
				category TEXT NOT NULL,
				votes_up INTEGER NOT NULL DEFAULT 0,
				votes_down INTEGER NOT NULL DEFAULT 0,
				community_score INTEGER,
				created_ns BIGINT NOT NULL,
				data TEXT NOT NULL
			)`,
	},
	{
		Version: 2,
		Name:    "index_analyses_created",
		Up:      `CREATE INDEX IF NOT EXISTS idx_analyses_created ON analyses(created_ns)`,
	},
	{
		Version: 3,
		Name:    "index_analyses_status",
		Up:      `CREATE INDEX IF NOT EXISTS idx_analyses_status ON analyses(status, created_ns)`,
	},
}

// migrate applies pending migrations in version order
func (s *SQLStore) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL
		)`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var current int
	if err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("get current version: %w", err)
	}

	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })

	for _, m := range sorted {
		if m.Version <= current {
			continue
		}
		if err := s.runMigration(ctx, m); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
		}
	}
	return nil
}

func (s *SQLStore) runMigration(ctx context.Context, m Migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, m.Up); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, s.rebind("INSERT INTO schema_migrations (version, name) VALUES (?, ?)"), m.Version, m.Name); err != nil {
		return err
	}
	return tx.Commit()
}

// SchemaVersion returns the highest applied migration
func (s *SQLStore) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&v)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return v, err
}
