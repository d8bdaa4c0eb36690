// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/danielhkuo/quickly-weigh/models"
)

// QuotaCells splits a subset's cells into unweighted cells and independent
// groups keyed by group_key, in order of first appearance
func (s *Store) QuotaCells(ctx context.Context, subset models.Subset) (models.SubsetCells, error) {
	parts, err := s.cellParts(ctx, subset.ID)
	if err != nil {
		return models.SubsetCells{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, group_key, weighting_group_id, unweighted
		FROM quota_cell
		WHERE subset_id = $1
		ORDER BY id
	`, subset.ID)
	if err != nil {
		return models.SubsetCells{}, fmt.Errorf("query quota cells: %w", err)
	}
	defer rows.Close()

	var out models.SubsetCells
	groupAt := make(map[string]int)
	for rows.Next() {
		var (
			c       models.QuotaCell
			key     string
			groupID sql.NullInt64
		)
		if err := rows.Scan(&c.ID, &key, &groupID, &c.Unweighted); err != nil {
			return models.SubsetCells{}, fmt.Errorf("scan quota cell: %w", err)
		}
		if groupID.Valid {
			id := int(groupID.Int64)
			c.WeightingGroupID = &id
		}
		c.Parts = parts[c.ID]

		if c.Unweighted {
			out.Unweighted = append(out.Unweighted, c)
			continue
		}
		i, ok := groupAt[key]
		if !ok {
			i = len(out.Weighted)
			groupAt[key] = i
			out.Weighted = append(out.Weighted, models.IndependentGroup{Key: key})
		}
		out.Weighted[i].Cells = append(out.Weighted[i].Cells, c)
	}
	return out, rows.Err()
}

func (s *Store) cellParts(ctx context.Context, subsetID string) (map[int][]models.KeyPart, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cell_id, part_key, part_value
		FROM quota_cell_part
		WHERE subset_id = $1
		ORDER BY cell_id, ordinal
	`, subsetID)
	if err != nil {
		return nil, fmt.Errorf("query quota cell parts: %w", err)
	}
	defer rows.Close()

	out := make(map[int][]models.KeyPart)
	for rows.Next() {
		var (
			cellID int
			p      models.KeyPart
		)
		if err := rows.Scan(&cellID, &p.Key, &p.Value); err != nil {
			return nil, fmt.Errorf("scan quota cell part: %w", err)
		}
		out[cellID] = append(out[cellID], p)
	}
	return out, rows.Err()
}

// SaveQuotaCell stores a cell and its parts under groupKey. Unweighted
// cells ignore the key.
func (s *Store) SaveQuotaCell(ctx context.Context, subsetID, groupKey string, c models.QuotaCell) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var groupID sql.NullInt64
	if c.WeightingGroupID != nil {
		groupID = sql.NullInt64{Int64: int64(*c.WeightingGroupID), Valid: true}
	}
	if c.Unweighted {
		groupKey = ""
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO quota_cell (id, subset_id, group_key, weighting_group_id, unweighted)
		VALUES ($1, $2, $3, $4, $5)
	`, c.ID, subsetID, groupKey, groupID, c.Unweighted)
	if err != nil {
		return fmt.Errorf("insert quota cell %d: %w", c.ID, err)
	}

	for i, p := range c.Parts {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO quota_cell_part (subset_id, cell_id, ordinal, part_key, part_value)
			VALUES ($1, $2, $3, $4, $5)
		`, subsetID, c.ID, i, p.Key, p.Value)
		if err != nil {
			return fmt.Errorf("insert quota cell part %s: %w", p.Key, err)
		}
	}

	return tx.Commit()
}
