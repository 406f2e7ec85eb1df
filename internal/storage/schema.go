package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"path"
	"sort"
)

//go:embed schema/*/*.sql
var schemaFiles embed.FS

// EnsureSchema creates the state and district tables for the given driver
// when they are missing. Existing tables and rows are left untouched.
func EnsureSchema(ctx context.Context, db *sql.DB, driver string) error {
	if err := validateDriver(driver); err != nil {
		return err
	}
	dir := path.Join("schema", driver)
	entries, err := schemaFiles.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	for _, name := range names {
		content, err := schemaFiles.ReadFile(path.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read schema %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("apply schema %s: %w", name, err)
		}
	}
	return nil
}
