// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/danielhkuo/quickly-weigh/generation"
	"github.com/danielhkuo/quickly-weigh/models"
	"github.com/danielhkuo/quickly-weigh/quotacells"
	"github.com/danielhkuo/quickly-weigh/weighting"
)

// Store reads and writes everything the weighting engine persists
type Store struct {
	db *sql.DB
}

var (
	_ generation.SubsetRepository    = (*Store)(nil)
	_ generation.PlanRepository      = (*Store)(nil)
	_ generation.QuotaCellSource     = (*Store)(nil)
	_ generation.ResponseAccessor    = (*Store)(nil)
	_ generation.AllocationExplainer = (*Store)(nil)
	_ quotacells.WeightSource        = (*Store)(nil)
	_ weighting.VariableRepository   = (*Store)(nil)
)

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying connection pool
func (s *Store) DB() *sql.DB {
	return s.db
}

// Subset returns models.ErrSubsetNotFound for unknown ids
func (s *Store) Subset(ctx context.Context, id string) (models.Subset, error) {
	var sub models.Subset
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, earliest, latest, disabled
		FROM subset
		WHERE id = $1
	`, id).Scan(&sub.ID, &sub.DisplayName, &sub.Earliest, &sub.Latest, &sub.Disabled)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Subset{}, fmt.Errorf("%w: %s", models.ErrSubsetNotFound, id)
	}
	if err != nil {
		return models.Subset{}, fmt.Errorf("query subset %s: %w", id, err)
	}
	return sub, nil
}

// Subsets returns enabled subsets in display order
func (s *Store) Subsets(ctx context.Context) ([]models.Subset, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, display_name, earliest, latest, disabled
		FROM subset
		WHERE disabled = $1
		ORDER BY display_order, id
	`, false)
	if err != nil {
		return nil, fmt.Errorf("query subsets: %w", err)
	}
	defer rows.Close()

	var out []models.Subset
	for rows.Next() {
		var sub models.Subset
		if err := rows.Scan(&sub.ID, &sub.DisplayName, &sub.Earliest, &sub.Latest, &sub.Disabled); err != nil {
			return nil, fmt.Errorf("scan subset: %w", err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// SaveSubset inserts or updates a subset
func (s *Store) SaveSubset(ctx context.Context, sub models.Subset, order int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subset (id, display_name, display_order, earliest, latest, disabled)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			display_name = excluded.display_name,
			display_order = excluded.display_order,
			earliest = excluded.earliest,
			latest = excluded.latest,
			disabled = excluded.disabled
	`, sub.ID, sub.DisplayName, order, sub.Earliest.UTC(), sub.Latest.UTC(), sub.Disabled)
	if err != nil {
		return fmt.Errorf("save subset %s: %w", sub.ID, err)
	}
	return nil
}

// placeholders returns "$from, $from+1, ..." for n arguments
func placeholders(from, n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("$")
		b.WriteString(strconv.Itoa(from + i))
	}
	return b.String()
}
