// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Supported database types
const (
	Postgres = "postgres"
	SQLite   = "sqlite"
)

var ErrUnknownDialect = errors.New("unknown database type")

// DriverName maps a database type to its database/sql driver name
func DriverName(dbType string) (string, error) {
	switch strings.ToLower(dbType) {
	case Postgres, "postgresql":
		return "postgres", nil
	case SQLite, "sqlite3":
		return "sqlite", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDialect, dbType)
	}
}

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(ctx context.Context, db *sql.DB, dbType string) error {
	driver, err := DriverName(dbType)
	if err != nil {
		return err
	}

	stmts := schemaStatements(driver)
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// schemaStatements renders the schema for a driver. SQLite only runs one
// statement per Exec, so the schema is kept as a list.
func schemaStatements(driver string) []string {
	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	numeric := "TEXT"
	if driver == "postgres" {
		serial = "SERIAL PRIMARY KEY"
		numeric = "NUMERIC"
	}

	r := strings.NewReplacer("{serial}", serial, "{numeric}", numeric)
	out := make([]string, 0, len(schema))
	for _, s := range schema {
		out = append(out, r.Replace(s))
	}
	return out
}

var schema = []string{
	// Subsets
	`CREATE TABLE IF NOT EXISTS subset (
    id TEXT PRIMARY KEY,
    display_name TEXT NOT NULL,
    display_order INTEGER NOT NULL DEFAULT 0,
    earliest TIMESTAMP NOT NULL,
    latest TIMESTAMP NOT NULL,
    disabled BOOLEAN NOT NULL DEFAULT FALSE
)`,

	// Weighting schemes, stored flat. parent_target_id is 0 for root plans.
	`CREATE TABLE IF NOT EXISTS weighting_plan (
    id {serial},
    subset_id TEXT NOT NULL REFERENCES subset(id) ON DELETE CASCADE,
    variable_id TEXT NOT NULL,
    parent_target_id INTEGER NOT NULL DEFAULT 0,
    is_group_root BOOLEAN NOT NULL DEFAULT FALSE
)`,
	`CREATE INDEX IF NOT EXISTS idx_weighting_plan_subset ON weighting_plan(subset_id)`,

	`CREATE TABLE IF NOT EXISTS weighting_target (
    id {serial},
    plan_id INTEGER NOT NULL REFERENCES weighting_plan(id) ON DELETE CASCADE,
    entity_instance_id INTEGER NOT NULL,
    proportion {numeric},
    population {numeric}
)`,
	`CREATE INDEX IF NOT EXISTS idx_weighting_target_plan ON weighting_target(plan_id)`,

	// Externally supplied per-respondent weights. target_id 0 is the subset root.
	`CREATE TABLE IF NOT EXISTS response_weight (
    subset_id TEXT NOT NULL REFERENCES subset(id) ON DELETE CASCADE,
    target_id INTEGER NOT NULL,
    response_id INTEGER NOT NULL,
    weight {numeric} NOT NULL,
    PRIMARY KEY (subset_id, target_id, response_id)
)`,

	// Quota cells
	`CREATE TABLE IF NOT EXISTS quota_cell (
    id INTEGER NOT NULL,
    subset_id TEXT NOT NULL REFERENCES subset(id) ON DELETE CASCADE,
    group_key TEXT NOT NULL DEFAULT '',
    weighting_group_id INTEGER,
    unweighted BOOLEAN NOT NULL DEFAULT FALSE,
    PRIMARY KEY (subset_id, id)
)`,

	`CREATE TABLE IF NOT EXISTS quota_cell_part (
    subset_id TEXT NOT NULL,
    cell_id INTEGER NOT NULL,
    ordinal INTEGER NOT NULL,
    part_key TEXT NOT NULL,
    part_value TEXT NOT NULL,
    PRIMARY KEY (subset_id, cell_id, ordinal)
)`,

	// Responses
	`CREATE TABLE IF NOT EXISTS response (
    id INTEGER NOT NULL,
    subset_id TEXT NOT NULL REFERENCES subset(id) ON DELETE CASCADE,
    cell_id INTEGER NOT NULL,
    responded_at TIMESTAMP NOT NULL,
    PRIMARY KEY (subset_id, id)
)`,
	`CREATE INDEX IF NOT EXISTS idx_response_cell ON response(subset_id, cell_id)`,

	`CREATE TABLE IF NOT EXISTS allocation_reason (
    subset_id TEXT NOT NULL,
    response_id INTEGER NOT NULL,
    ordinal INTEGER NOT NULL,
    dimension TEXT NOT NULL,
    answer_value INTEGER,
    reason TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (subset_id, response_id, ordinal)
)`,

	// Variable definitions, JSON encoded
	`CREATE TABLE IF NOT EXISTS variable (
    id TEXT PRIMARY KEY,
    definition TEXT NOT NULL
)`,
}
