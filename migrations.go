package cargoqueue

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// MigrationFiles contains the SQL migrations embedded in the binary, one directory
// per dialect: migrations/mysql, migrations/postgres, migrations/sqlite3.
// Tables are named with the default "cargo_" prefix.
//
// Users can hand a dialect directory to their preferred migration tool
// (goose, golang-migrate, atlas) or call ApplyMigrations.
//
//go:embed migrations/*/*.sql
var MigrationFiles embed.FS

// DefaultTablePrefix is the table prefix used by the embedded migrations.
const DefaultTablePrefix = "cargo_"

// MigrationDialect maps a database/sql driver name to its migrations directory.
func MigrationDialect(driver string) (string, error) {
	switch driver {
	case "sqlite3", "sqlite":
		return "sqlite3", nil
	case "mysql":
		return "mysql", nil
	case "postgres", "postgresql", "pgx":
		return "postgres", nil
	default:
		return "", NewError(ErrCodeConfiguration, fmt.Sprintf("unsupported database driver: %s", driver))
	}
}

// ApplyMigrations executes every embedded migration of the driver's dialect in file
// name order. Statements are idempotent (CREATE ... IF NOT EXISTS).
func ApplyMigrations(ctx context.Context, db *sql.DB, driver string) error {
	return ApplyMigrationsWithPrefix(ctx, db, driver, DefaultTablePrefix)
}

// ApplyMigrationsWithPrefix is ApplyMigrations with tables renamed to use prefix
// instead of DefaultTablePrefix.
func ApplyMigrationsWithPrefix(ctx context.Context, db *sql.DB, driver, prefix string) error {
	statements, err := MigrationStatements(driver, prefix)
	if err != nil {
		return err
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return databaseError("failed to apply migration", err)
		}
	}
	return nil
}

// MigrationStatements returns the individual SQL statements that ApplyMigrationsWithPrefix runs.
func MigrationStatements(driver, prefix string) ([]string, error) {
	dialect, err := MigrationDialect(driver)
	if err != nil {
		return nil, err
	}

	dir := path.Join("migrations", dialect)
	entries, err := fs.ReadDir(MigrationFiles, dir)
	if err != nil {
		return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to read migrations", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var statements []string
	for _, name := range names {
		content, err := fs.ReadFile(MigrationFiles, path.Join(dir, name))
		if err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to read migration "+name, err)
		}

		script := string(content)
		if prefix != DefaultTablePrefix {
			script = strings.ReplaceAll(script, DefaultTablePrefix, prefix)
		}

		for _, stmt := range strings.Split(script, ";") {
			if stmt = strings.TrimSpace(stmt); stmt != "" {
				statements = append(statements, stmt)
			}
		}
	}
	return statements, nil
}
