// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/danielhkuo/quickly-weigh/models"
)

// Responses returns each of cells that has responses, with its responses
// in date order. Cells keep the order they were passed in.
func (s *Store) Responses(ctx context.Context, subset models.Subset, cells []models.QuotaCell) ([]models.PopulatedCell, error) {
	if len(cells) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(cells)+1)
	args = append(args, subset.ID)
	for _, c := range cells {
		args = append(args, c.ID)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, cell_id, responded_at
		FROM response
		WHERE subset_id = $1 AND cell_id IN (`+placeholders(2, len(cells))+`)
		ORDER BY responded_at, id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("query responses: %w", err)
	}
	defer rows.Close()

	byCell := make(map[int][]models.Response, len(cells))
	for rows.Next() {
		var (
			r      models.Response
			cellID int
		)
		if err := rows.Scan(&r.ID, &cellID, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		byCell[cellID] = append(byCell[cellID], r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []models.PopulatedCell
	for _, c := range cells {
		if rs := byCell[c.ID]; len(rs) > 0 {
			out = append(out, models.PopulatedCell{Cell: c, Responses: rs})
		}
	}
	return out, nil
}

// SaveResponses records responses falling into one cell
func (s *Store) SaveResponses(ctx context.Context, subsetID string, cellID int, responses ...models.Response) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, r := range responses {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO response (id, subset_id, cell_id, responded_at)
			VALUES ($1, $2, $3, $4)
		`, r.ID, subsetID, cellID, r.Timestamp.UTC())
		if err != nil {
			return fmt.Errorf("insert response %d: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

// AllocationReasons returns the stored diagnostics for a response, in
// order
func (s *Store) AllocationReasons(ctx context.Context, subset models.Subset, response models.Response) ([]models.AllocationReason, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT dimension, answer_value, reason
		FROM allocation_reason
		WHERE subset_id = $1 AND response_id = $2
		ORDER BY ordinal
	`, subset.ID, response.ID)
	if err != nil {
		return nil, fmt.Errorf("query allocation reasons: %w", err)
	}
	defer rows.Close()

	var out []models.AllocationReason
	for rows.Next() {
		var (
			r     models.AllocationReason
			value sql.NullInt64
		)
		if err := rows.Scan(&r.Dimension, &value, &r.Reason); err != nil {
			return nil, fmt.Errorf("scan allocation reason: %w", err)
		}
		if value.Valid {
			v := int(value.Int64)
			r.AnswerValue = &v
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveAllocationReasons replaces the diagnostics stored for a response
func (s *Store) SaveAllocationReasons(ctx context.Context, subsetID string, responseID int, reasons []models.AllocationReason) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM allocation_reason WHERE subset_id = $1 AND response_id = $2
	`, subsetID, responseID); err != nil {
		return fmt.Errorf("delete allocation reasons: %w", err)
	}
	for i, r := range reasons {
		var value sql.NullInt64
		if r.AnswerValue != nil {
			value = sql.NullInt64{Int64: int64(*r.AnswerValue), Valid: true}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO allocation_reason (subset_id, response_id, ordinal, dimension, answer_value, reason)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, subsetID, responseID, i, r.Dimension, value, r.Reason)
		if err != nil {
			return fmt.Errorf("insert allocation reason: %w", err)
		}
	}
	return tx.Commit()
}
