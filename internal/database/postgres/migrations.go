package postgres

import (
	"context"
	"embed"
	"fmt"
	"slices"
	"strings"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// requiredExtensions must be installable before the first migration runs:
// vector stores face descriptors, unaccent backs the attendance name filter.
var requiredExtensions = []string{"unaccent", "vector"}

// ensureMigrationsTable creates the bookkeeping table if needed.
func (p *Pool) ensureMigrationsTable(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}
	return nil
}

// appliedVersions returns the migration files already recorded, in order.
func (p *Pool) appliedVersions(ctx context.Context) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan migration version: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applied migrations: %w", err)
	}
	return versions, nil
}

// pendingMigrations returns the embedded migration files not in applied, sorted by name.
func pendingMigrations(applied []string) ([]string, error) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".sql") && !slices.Contains(applied, e.Name()) {
			files = append(files, e.Name())
		}
	}
	slices.Sort(files)
	return files, nil
}

// checkExtensions fails with the names of required extensions the server cannot install.
func (p *Pool) checkExtensions(ctx context.Context) error {
	rows, err := p.db.QueryContext(ctx,
		"SELECT name FROM pg_available_extensions WHERE name = ANY($1)", pq.Array(requiredExtensions))
	if err != nil {
		return fmt.Errorf("query available extensions: %w", err)
	}
	defer rows.Close()

	var available []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("scan extension name: %w", err)
		}
		available = append(available, name)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate available extensions: %w", err)
	}

	var missing []string
	for _, ext := range requiredExtensions {
		if !slices.Contains(available, ext) {
			missing = append(missing, ext)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("PostgreSQL extensions not available: %s (use a server with pgvector and contrib installed)",
			strings.Join(missing, ", "))
	}
	return nil
}

// applyMigration runs one migration file and records it in the same transaction.
func (p *Pool) applyMigration(ctx context.Context, file string) error {
	content, err := migrationsFS.ReadFile("migrations/" + file)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", file, err)
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction for %s: %w", file, err)
	}
	if _, err := tx.ExecContext(ctx, string(content)); err != nil {
		tx.Rollback()
		return fmt.Errorf("execute migration %s: %w", file, err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", file); err != nil {
		tx.Rollback()
		return fmt.Errorf("record migration %s: %w", file, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", file, err)
	}
	return nil
}

// Migrate applies pending migrations and returns the files it applied.
func (p *Pool) Migrate(ctx context.Context, logger *zap.Logger) ([]string, error) {
	if err := p.ensureMigrationsTable(ctx); err != nil {
		return nil, err
	}
	applied, err := p.appliedVersions(ctx)
	if err != nil {
		return nil, err
	}
	files, err := pendingMigrations(applied)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}

	if err := p.checkExtensions(ctx); err != nil {
		return nil, err
	}
	for _, file := range files {
		if err := p.applyMigration(ctx, file); err != nil {
			return nil, err
		}
		logger.Info("applied migration", zap.String("version", file))
	}
	return files, nil
}
