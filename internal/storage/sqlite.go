package storage

import (
	"fmt"

	"go.uber.org/zap"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// migration represents a single database migration.
type migration struct {
	version int
	name    string
	up      func() error
}

// runMigrations executes database schema migrations. Callers hold s.mu.
func (s *SQLiteStorage) runMigrations() error {
	if s.db == nil {
		return nil
	}

	if err := s.createMigrationsTable(); err != nil {
		return err
	}

	version, err := s.getCurrentMigrationVersion()
	if err != nil {
		return err
	}

	migrations := []migration{
		{version: 1, name: "operations", up: s.migration001Operations},
		{version: 2, name: "operations_session_index", up: s.migration002SessionIndex},
	}

	for _, m := range migrations {
		if version >= m.version {
			continue
		}
		s.logger.Debug("running migration", zap.Int("version", m.version), zap.String("name", m.name))
		if err := m.up(); err != nil {
			return fmt.Errorf("migration %d failed: %w", m.version, err)
		}
		if err := s.setMigrationVersion(m.version, m.name); err != nil {
			return err
		}
	}
	return nil
}

// createMigrationsTable creates the schema_migrations table.
func (s *SQLiteStorage) createMigrationsTable() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`)
	return err
}

// getCurrentMigrationVersion returns the highest applied migration version.
func (s *SQLiteStorage) getCurrentMigrationVersion() (int, error) {
	var version int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version); err != nil {
		return 0, err
	}
	return version, nil
}

// setMigrationVersion records a migration as applied.
func (s *SQLiteStorage) setMigrationVersion(version int, name string) error {
	_, err := s.db.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)", version, name)
	return err
}

func (s *SQLiteStorage) migration001Operations() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS operations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			op_type TEXT NOT NULL,
			tool TEXT NOT NULL,
			intent TEXT NOT NULL,
			tier TEXT NOT NULL,
			path TEXT NOT NULL,
			confidence REAL NOT NULL,
			success INTEGER NOT NULL,
			context_hash TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create operations table: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_operations_tool
		ON operations(tool)
	`); err != nil {
		return fmt.Errorf("failed to create operations tool index: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_operations_timestamp
		ON operations(timestamp DESC)
	`); err != nil {
		return fmt.Errorf("failed to create operations timestamp index: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) migration002SessionIndex() error {
	if _, err := s.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_operations_session
		ON operations(session_id)
	`); err != nil {
		return fmt.Errorf("failed to create operations session index: %w", err)
	}
	return nil
}
