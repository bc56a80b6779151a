package database

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
)

// ErrEmptyCatalog is returned when the schema is in place but no dish exists
var ErrEmptyCatalog = errors.New("dishes table is empty after migrations")

const (
	createMigrationsTableSQL = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id SERIAL PRIMARY KEY,
			migration_name VARCHAR(255) NOT NULL UNIQUE,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)`

	listAppliedMigrationsSQL = `SELECT migration_name FROM schema_migrations`

	recordMigrationSQL = `INSERT INTO schema_migrations (migration_name) VALUES ($1)`

	countDishesSQL = `SELECT COUNT(*) FROM dishes`
)

// RunMigrations applies pending .sql files from dir in name order, each in
// its own transaction together with its schema_migrations row, then checks
// that the menu was seeded.
func (db *DB) RunMigrations(ctx context.Context, dir string) error {
	if _, err := db.Exec(ctx, createMigrationsTableSQL); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	files, err := getMigrationFiles(dir)
	if err != nil {
		return fmt.Errorf("failed to get migration files: %w", err)
	}

	applied, err := db.appliedMigrations(ctx)
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	for _, name := range pendingMigrations(files, applied) {
		if err := db.applyMigration(ctx, dir, name); err != nil {
			return fmt.Errorf("failed to run migration %s: %w", name, err)
		}
		db.logger.Info("migration_applied", fmt.Sprintf("Applied migration: %s", name), "startup", map[string]interface{}{
			"migration": name,
		})
	}

	dishes, err := db.countDishes(ctx)
	if err != nil {
		return err
	}
	db.logger.Info("schema_ready", "Database schema is up to date", "startup", map[string]interface{}{
		"migrations": len(files),
		"dishes":     dishes,
	})
	return nil
}

// getMigrationFiles lists the .sql files under dir, sorted by name
func getMigrationFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".sql") {
			files = append(files, filepath.Base(path))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// pendingMigrations keeps the order of files and drops the applied ones
func pendingMigrations(files []string, applied map[string]bool) []string {
	pending := make([]string, 0, len(files))
	for _, name := range files {
		if !applied[name] {
			pending = append(pending, name)
		}
	}
	return pending
}

func (db *DB) appliedMigrations(ctx context.Context) (map[string]bool, error) {
	rows, err := db.Query(ctx, listAppliedMigrationsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		applied[name] = true
	}
	return applied, rows.Err()
}

// applyMigration runs one file and records it in the same transaction
func (db *DB) applyMigration(ctx context.Context, dir, name string) error {
	content, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("failed to read migration file: %w", err)
	}

	return db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, string(content)); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
		if _, err := tx.Exec(ctx, recordMigrationSQL, name); err != nil {
			return fmt.Errorf("failed to record migration: %w", err)
		}
		return nil
	})
}

// countDishes fails with ErrEmptyCatalog when no dish can be ordered
func (db *DB) countDishes(ctx context.Context) (int, error) {
	var n int
	if err := db.QueryRow(ctx, countDishesSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count dishes: %w", err)
	}
	if n == 0 {
		return 0, ErrEmptyCatalog
	}
	return n, nil
}
