package storage

import (
	"database/sql"
	"fmt"
	"log"
)

// Migration represents a database schema migration
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.Tx) error
}

// allMigrations defines all migrations in order
var allMigrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Up:      migration001InitialSchema,
	},
	{
		Version: 2,
		Name:    "add_directory_tables",
		Up:      migration002AddDirectoryTables,
	},
}

// runMigrations executes all pending migrations
func (s *Storage) runMigrations() error {
	if err := s.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := s.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	for _, migration := range allMigrations {
		if applied[migration.Version] {
			continue // Already applied
		}

		log.Printf("Running migration %d: %s", migration.Version, migration.Name)

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Name, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
			migration.Version, migration.Name,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

func (s *Storage) ensureMigrationsTable() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`)
	return err
}

func (s *Storage) getAppliedMigrations() (map[int]bool, error) {
	rows, err := s.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}

	return applied, rows.Err()
}

func migration001InitialSchema(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS bank_transactions (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			bank_account_id TEXT NOT NULL,
			upload_id TEXT,
			transaction_date DATETIME NOT NULL,
			description TEXT NOT NULL,
			reference TEXT NOT NULL DEFAULT '',
			amount TEXT NOT NULL,
			type TEXT NOT NULL CHECK (type IN ('deposit', 'withdrawal')),
			balance TEXT,
			match_status TEXT NOT NULL DEFAULT 'unmatched',
			matched_customer_id TEXT,
			matched_vendor_id TEXT,
			matched_invoice_id TEXT,
			matched_bill_id TEXT,
			category_id TEXT,
			match_confidence REAL,
			notes TEXT NOT NULL DEFAULT '',
			is_reconciled INTEGER NOT NULL DEFAULT 0,
			reconciled_at DATETIME,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bank_transactions_owner_account
			ON bank_transactions(owner_id, bank_account_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bank_transactions_owner_status
			ON bank_transactions(owner_id, match_status)`,
		`CREATE TABLE IF NOT EXISTS bank_feed_uploads (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			bank_account_id TEXT NOT NULL,
			file_name TEXT NOT NULL,
			bank_preset TEXT NOT NULL DEFAULT '',
			transaction_count INTEGER NOT NULL,
			imported_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS matching_rules (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			name TEXT NOT NULL,
			priority INTEGER NOT NULL,
			conditions_json TEXT NOT NULL,
			action_json TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_matching_rules_owner
			ON matching_rules(owner_id, priority)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func migration002AddDirectoryTables(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS customers (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			name TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS vendors (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			name TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS invoices (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			customer_id TEXT NOT NULL,
			number TEXT NOT NULL DEFAULT '',
			total TEXT NOT NULL,
			status TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS bills (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			vendor_id TEXT NOT NULL,
			number TEXT NOT NULL DEFAULT '',
			total TEXT NOT NULL,
			status TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS categories (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			name TEXT NOT NULL,
			type TEXT NOT NULL CHECK (type IN ('income', 'expense')),
			color TEXT NOT NULL DEFAULT ''
		)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
