// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/danielhkuo/quickly-weigh/weighting"
)

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// WeightingPlans returns a subset's scheme in stored order. Subsets without
// one get an empty Config.
func (s *Store) WeightingPlans(ctx context.Context, subsetID string) (weighting.Config, error) {
	return weightingPlans(ctx, s.db, subsetID)
}

func weightingPlans(ctx context.Context, q queryer, subsetID string) (weighting.Config, error) {
	var cfg weighting.Config

	rows, err := q.QueryContext(ctx, `
		SELECT id, subset_id, variable_id, parent_target_id, is_group_root
		FROM weighting_plan
		WHERE subset_id = $1
		ORDER BY id
	`, subsetID)
	if err != nil {
		return cfg, fmt.Errorf("query weighting plans: %w", err)
	}
	for rows.Next() {
		var p weighting.PlanRow
		if err := rows.Scan(&p.ID, &p.SubsetID, &p.VariableID, &p.ParentTargetID, &p.IsGroupRoot); err != nil {
			rows.Close()
			return cfg, fmt.Errorf("scan weighting plan: %w", err)
		}
		cfg.Plans = append(cfg.Plans, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return cfg, err
	}

	rows, err = q.QueryContext(ctx, `
		SELECT t.id, t.plan_id, t.entity_instance_id, t.proportion, t.population
		FROM weighting_target t
		JOIN weighting_plan p ON p.id = t.plan_id
		WHERE p.subset_id = $1
		ORDER BY t.id
	`, subsetID)
	if err != nil {
		return cfg, fmt.Errorf("query weighting targets: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var t weighting.TargetRow
		if err := rows.Scan(&t.ID, &t.PlanID, &t.EntityInstanceID, &t.Proportion, &t.Population); err != nil {
			return cfg, fmt.Errorf("scan weighting target: %w", err)
		}
		cfg.Targets = append(cfg.Targets, t)
	}
	return cfg, rows.Err()
}

// ReplacePlans swaps a subset's whole scheme for cfg, which carries
// provisional ids. It returns the scheme as stored.
func (s *Store) ReplacePlans(ctx context.Context, subsetID string, cfg weighting.Config) (weighting.Config, error) {
	if _, err := weighting.NewIndex(cfg); err != nil {
		return weighting.Config{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return weighting.Config{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deletePlans(ctx, tx, subsetID); err != nil {
		return weighting.Config{}, err
	}
	if err := insertPlans(ctx, tx, subsetID, cfg, 0); err != nil {
		return weighting.Config{}, err
	}

	stored, err := weightingPlans(ctx, tx, subsetID)
	if err != nil {
		return weighting.Config{}, err
	}
	if err := tx.Commit(); err != nil {
		return weighting.Config{}, fmt.Errorf("commit plans: %w", err)
	}
	return stored, nil
}

// AddPlans appends cfg to a subset's existing scheme, hanging cfg's root
// plans under parentTargetID (0 adds them as roots). parentTargetID must
// be a stored target of the same subset. Flatten(cfg, 0) output fits.
func (s *Store) AddPlans(ctx context.Context, subsetID string, parentTargetID int, cfg weighting.Config) (weighting.Config, error) {
	if _, err := weighting.NewIndex(cfg); err != nil {
		return weighting.Config{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return weighting.Config{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if parentTargetID != 0 {
		existing, err := weightingPlans(ctx, tx, subsetID)
		if err != nil {
			return weighting.Config{}, err
		}
		found := false
		for _, t := range existing.Targets {
			if t.ID == parentTargetID {
				found = true
				break
			}
		}
		if !found {
			return weighting.Config{}, fmt.Errorf("%w: target %d is not part of subset %s", weighting.ErrInvalidConfig, parentTargetID, subsetID)
		}
	}

	if err := insertPlans(ctx, tx, subsetID, cfg, parentTargetID); err != nil {
		return weighting.Config{}, err
	}

	out, err := weightingPlans(ctx, tx, subsetID)
	if err != nil {
		return weighting.Config{}, err
	}
	if err := tx.Commit(); err != nil {
		return weighting.Config{}, fmt.Errorf("commit plans: %w", err)
	}
	return out, nil
}

func deletePlans(ctx context.Context, q queryer, subsetID string) error {
	if _, err := q.ExecContext(ctx, `
		DELETE FROM weighting_target
		WHERE plan_id IN (SELECT id FROM weighting_plan WHERE subset_id = $1)
	`, subsetID); err != nil {
		return fmt.Errorf("delete weighting targets: %w", err)
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM weighting_plan WHERE subset_id = $1`, subsetID); err != nil {
		return fmt.Errorf("delete weighting plans: %w", err)
	}
	return nil
}

// insertPlans stores cfg's rows with database ids, translating provisional
// parent ids as it goes. Root plans are stored under rootParent. Parents
// must precede children in cfg.Plans.
func insertPlans(ctx context.Context, q queryer, subsetID string, cfg weighting.Config, rootParent int) error {
	targetsOf := make(map[int][]weighting.TargetRow)
	for _, t := range cfg.Targets {
		targetsOf[t.PlanID] = append(targetsOf[t.PlanID], t)
	}

	realTarget := make(map[int]int, len(cfg.Targets))
	for _, p := range cfg.Plans {
		parent := rootParent
		if p.ParentTargetID != 0 {
			id, ok := realTarget[p.ParentTargetID]
			if !ok {
				return fmt.Errorf("%w: plan %d is listed before its parent target %d", weighting.ErrInvalidConfig, p.ID, p.ParentTargetID)
			}
			parent = id
		}

		var planID int
		err := q.QueryRowContext(ctx, `
			INSERT INTO weighting_plan (subset_id, variable_id, parent_target_id, is_group_root)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`, subsetID, p.VariableID, parent, p.IsGroupRoot).Scan(&planID)
		if err != nil {
			return fmt.Errorf("insert weighting plan %s: %w", p.VariableID, err)
		}

		for _, t := range targetsOf[p.ID] {
			var targetID int
			err := q.QueryRowContext(ctx, `
				INSERT INTO weighting_target (plan_id, entity_instance_id, proportion, population)
				VALUES ($1, $2, $3, $4)
				RETURNING id
			`, planID, t.EntityInstanceID, t.Proportion, t.Population).Scan(&targetID)
			if err != nil {
				return fmt.Errorf("insert weighting target %s=%d: %w", p.VariableID, t.EntityInstanceID, err)
			}
			realTarget[t.ID] = targetID
		}
	}
	return nil
}
