// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/danielhkuo/quickly-weigh/models"
	"github.com/danielhkuo/quickly-weigh/quotacells"
	"github.com/danielhkuo/quickly-weigh/weighting"
)

// ResponseWeights returns the weights supplied for a target of a subset
// (0 for the subset root). found is false when none were supplied.
func (s *Store) ResponseWeights(ctx context.Context, subsetID string, targetID int) ([]models.RespondentWeight, bool, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT response_id, weight
		FROM response_weight
		WHERE subset_id = $1 AND target_id = $2
		ORDER BY response_id
	`, subsetID, targetID)
	if err != nil {
		return nil, false, fmt.Errorf("query response weights: %w", err)
	}
	defer rows.Close()

	var out []models.RespondentWeight
	for rows.Next() {
		var w models.RespondentWeight
		if err := rows.Scan(&w.ResponseID, &w.Weight); err != nil {
			return nil, false, fmt.Errorf("scan response weight: %w", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	return out, len(out) > 0, nil
}

// SaveResponseWeights replaces the weights supplied for a target. The
// weights must pass quotacells.ValidateWeights; an empty list clears them.
func (s *Store) SaveResponseWeights(ctx context.Context, subsetID string, targetID int, weights []models.RespondentWeight) error {
	if len(weights) > 0 {
		if err := quotacells.ValidateWeights(weights).Err(); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM response_weight WHERE subset_id = $1 AND target_id = $2
	`, subsetID, targetID); err != nil {
		return fmt.Errorf("delete response weights: %w", err)
	}
	for _, w := range weights {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO response_weight (subset_id, target_id, response_id, weight)
			VALUES ($1, $2, $3, $4)
		`, subsetID, targetID, w.ResponseID, w.Weight)
		if err != nil {
			return fmt.Errorf("insert response weight %d: %w", w.ResponseID, err)
		}
	}
	return tx.Commit()
}

// Variable returns a stored variable definition. found is false for
// unknown ids.
func (s *Store) Variable(ctx context.Context, id string) (weighting.VariableDefinition, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT definition FROM variable WHERE id = $1`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return weighting.VariableDefinition{}, false, nil
	}
	if err != nil {
		return weighting.VariableDefinition{}, false, fmt.Errorf("query variable %s: %w", id, err)
	}

	var def weighting.VariableDefinition
	if err := json.Unmarshal([]byte(raw), &def); err != nil {
		return weighting.VariableDefinition{}, false, fmt.Errorf("decode variable %s: %w", id, err)
	}
	return def, true, nil
}

// SaveVariable inserts or replaces a variable definition
func (s *Store) SaveVariable(ctx context.Context, def weighting.VariableDefinition) error {
	raw, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("encode variable %s: %w", def.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO variable (id, definition)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET definition = excluded.definition
	`, def.ID, string(raw))
	if err != nil {
		return fmt.Errorf("save variable %s: %w", def.ID, err)
	}
	return nil
}
