package catalog

import (
	"database/sql"
	"embed"
	"fmt"
	"sort"
	"strings"
)

// MigrationFiles contains the SQL migration files embedded in the binary,
// one directory per supported driver (mysql, postgres, sqlite3). Users can
// access these files programmatically to apply migrations with their
// preferred migration tool instead of ApplyMigrations.
//
//go:embed migrations/*/*.sql
var MigrationFiles embed.FS

// migrationLedgerDDL records applied migrations. The statement is portable
// across all three supported dialects.
const migrationLedgerDDL = `CREATE TABLE IF NOT EXISTS catalog_schema_migration (
    name        VARCHAR(255) NOT NULL PRIMARY KEY,
    applied_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// ApplyMigrations executes the embedded migrations for the given driver in
// lexical order. Applied migration names are recorded in
// catalog_schema_migration, so re-running on an existing schema is a no-op.
func ApplyMigrations(db *sql.DB, driverName string) error {
	dir := "migrations/" + driverName
	entries, err := MigrationFiles.ReadDir(dir)
	if err != nil {
		return NewErrorWithCause(ErrCodeConfiguration, "no embedded migrations for driver "+driverName, err)
	}

	if _, err := db.Exec(migrationLedgerDDL); err != nil {
		return NewErrorWithCause(ErrCodeDatabase, "failed to create migration ledger", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		applied, err := migrationApplied(db, driverName, name)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		script, err := MigrationFiles.ReadFile(dir + "/" + name)
		if err != nil {
			return NewErrorWithCause(ErrCodeConfiguration, "failed to read migration "+name, err)
		}

		// One statement per Exec: go-sql-driver rejects multi-statement
		// scripts unless multiStatements is enabled in the DSN.
		for _, stmt := range splitStatements(string(script)) {
			if _, err := db.Exec(stmt); err != nil {
				return NewErrorWithCause(ErrCodeDatabase, "failed to apply migration "+name, err)
			}
		}

		record := "INSERT INTO catalog_schema_migration (name) VALUES (" + sqlPlaceholder(driverName, 1) + ")"
		if _, err := db.Exec(record, name); err != nil {
			return NewErrorWithCause(ErrCodeDatabase, "failed to record migration "+name, err)
		}
	}

	return nil
}

func migrationApplied(db *sql.DB, driverName, name string) (bool, error) {
	query := "SELECT COUNT(*) FROM catalog_schema_migration WHERE name = " + sqlPlaceholder(driverName, 1)

	var count int
	if err := db.QueryRow(query, name).Scan(&count); err != nil {
		return false, NewErrorWithCause(ErrCodeDatabase, "failed to query migration ledger", err)
	}
	return count > 0, nil
}

// sqlPlaceholder returns the parameter marker for the driver's dialect.
func sqlPlaceholder(driverName string, n int) string {
	if driverName == "postgres" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// splitStatements breaks a migration script into single statements so each
// can be passed to Exec on its own. Semicolons only terminate statements in
// these scripts; none appear inside string literals.
func splitStatements(script string) []string {
	var stmts []string
	for _, chunk := range strings.Split(script, ";") {
		if isBlankSQL(chunk) {
			continue
		}
		stmts = append(stmts, strings.TrimSpace(chunk))
	}
	return stmts
}

// isBlankSQL reports whether the chunk holds only whitespace and -- comments.
func isBlankSQL(chunk string) bool {
	for _, line := range strings.Split(chunk, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && !strings.HasPrefix(trimmed, "--") {
			return false
		}
	}
	return true
}
