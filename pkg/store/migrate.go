// Copyright 2024-2026 Aiku AI

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const tableName = "message_map"

// column is one expected column of the message map. The schema only ever
// grows: new columns are appended here as nullable or defaulted, and no
// column is removed or retyped.
type column struct {
	Name string
	DDL  string
}

var schemaColumns = []column{
	{"id", "INTEGER PRIMARY KEY AUTOINCREMENT"},
	{"user_id", "INTEGER NOT NULL"},
	{"operator_id", "INTEGER"},
	{"original_message_id", "INTEGER NOT NULL"},
	{"delivered_message_id", "INTEGER NOT NULL"},
	{"reply_message_id", "INTEGER"},
	{"content_type", "TEXT NOT NULL DEFAULT 'text'"},
	{"content", "TEXT NOT NULL DEFAULT ''"},
	{"attachment_ref", "TEXT"},
	{"created_at", "INTEGER NOT NULL DEFAULT 0"},
	{"status", "TEXT NOT NULL DEFAULT 'active'"},
}

// Migrate brings the message map up to the current schema. The migration is
// strictly additive: if the table exists but is missing columns, it is
// rebuilt via rename-create-copy-drop inside one transaction, so either the
// new schema with all data is committed or the old schema is left untouched.
// Running it again once the schema is current is a no-op.
func (s *Store) Migrate(ctx context.Context) error {
	exists, err := s.tableExists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		if _, err := s.db.ExecContext(ctx, createTableSQL(tableName)+createIndexSQL()); err != nil {
			return fmt.Errorf("failed to create %s: %w", tableName, err)
		}
		s.log.Info().Str("table", tableName).Msg("Created message map")
		return nil
	}

	existing, err := s.tableColumns(ctx)
	if err != nil {
		return err
	}

	var missing []string
	for _, col := range schemaColumns {
		if _, ok := existing[col.Name]; !ok {
			missing = append(missing, col.Name)
		}
	}
	if len(missing) == 0 {
		// Schema is current; index creation is idempotent.
		if _, err := s.db.ExecContext(ctx, createIndexSQL()); err != nil {
			return fmt.Errorf("failed to ensure index: %w", err)
		}
		return nil
	}

	s.log.Info().
		Strs("missing_columns", missing).
		Msg("Rebuilding message map with new columns")

	if err := s.rebuildTable(ctx, existing); err != nil {
		return err
	}

	s.log.Info().Str("table", tableName).Msg("Migration complete")
	return nil
}

// rebuildTable performs the atomic rename-create-copy-drop migration,
// carrying over every column the old table shares with the new schema.
func (s *Store) rebuildTable(ctx context.Context, existing map[string]struct{}) error {
	var shared []string
	for _, col := range schemaColumns {
		if _, ok := existing[col.Name]; ok {
			shared = append(shared, col.Name)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration transaction: %w", err)
	}

	oldTable := tableName + "_old"
	steps := []string{
		fmt.Sprintf("ALTER TABLE %s RENAME TO %s", tableName, oldTable),
		createTableSQL(tableName),
		fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s",
			tableName, strings.Join(shared, ", "), strings.Join(shared, ", "), oldTable),
		fmt.Sprintf("DROP TABLE %s", oldTable),
		createIndexSQL(),
	}
	for _, stmt := range steps {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration step failed, rolled back: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}
	return nil
}

func (s *Store) tableExists(ctx context.Context) (bool, error) {
	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, tableName,
	).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check for %s: %w", tableName, err)
	}
	return true, nil
}

// tableColumns returns the set of column names currently on the table.
func (s *Store) tableColumns(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return nil, fmt.Errorf("failed to read table info: %w", err)
	}
	defer rows.Close()

	cols := make(map[string]struct{})
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan table info: %w", err)
		}
		cols[name] = struct{}{}
	}
	return cols, rows.Err()
}

func createTableSQL(name string) string {
	defs := make([]string, len(schemaColumns))
	for i, col := range schemaColumns {
		defs[i] = fmt.Sprintf("\t%s %s", col.Name, col.DDL)
	}
	return fmt.Sprintf("CREATE TABLE %s (\n%s\n);\n", name, strings.Join(defs, ",\n"))
}

func createIndexSQL() string {
	return fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS idx_%s_delivered ON %s (delivered_message_id, created_at);\n",
		tableName, tableName)
}
