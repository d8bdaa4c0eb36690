// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package weighting

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/danielhkuo/quickly-weigh/models"
)

// ToDTO renders a tree for the API, including minted group ids and
// response-level breakdowns
func ToDTO(plans []Plan) []models.PlanDTO {
	out := make([]models.PlanDTO, 0, len(plans))
	for _, p := range plans {
		dto := models.PlanDTO{
			VariableID:           p.VariableID,
			IsWeightingGroupRoot: p.IsGroupRoot,
			ResponseLevel:        p.IsResponseLevel(),
			Targets:              make([]models.TargetDTO, 0, len(p.Targets)),
		}
		for _, t := range p.Targets {
			td := models.TargetDTO{
				EntityInstanceID: t.EntityInstanceID,
				Target:           t.Proportion,
				TargetPopulation: t.Population,
			}
			if gid, ok := t.GroupID(); ok && gid != NoGroup {
				g := gid
				td.WeightingGroupID = &g
			}
			if children := t.Children(); len(children) > 0 {
				td.Plans = ToDTO(children)
			}
			dto.Targets = append(dto.Targets, td)
		}
		out = append(out, dto)
	}
	return out
}

// ConfigFromDTO validates a scheme sent over the API and lays it out in
// persisted form. Response-level plans in the input are ignored.
func ConfigFromDTO(dtos []models.PlanDTO, subsetID string) (Config, error) {
	plans, err := plansFromDTO(dtos)
	if err != nil {
		return Config{}, err
	}
	return FromTree(plans, subsetID), nil
}

func plansFromDTO(dtos []models.PlanDTO) ([]Plan, error) {
	var plans []Plan
	for _, d := range dtos {
		if d.ResponseLevel {
			continue
		}
		if d.VariableID == "" {
			return nil, fmt.Errorf("%w: plan without a variable identifier", ErrInvalidPlan)
		}
		if len(d.Targets) == 0 {
			return nil, fmt.Errorf("%w: plan %s has no targets", ErrInvalidPlan, d.VariableID)
		}

		p := Plan{VariableID: d.VariableID, IsGroupRoot: d.IsWeightingGroupRoot}
		seen := make(map[int]bool, len(d.Targets))
		for _, td := range d.Targets {
			if seen[td.EntityInstanceID] {
				return nil, fmt.Errorf("%w: plan %s lists instance %d twice", ErrInvalidPlan, d.VariableID, td.EntityInstanceID)
			}
			seen[td.EntityInstanceID] = true
			if err := checkTarget(d.VariableID, td); err != nil {
				return nil, err
			}

			t := Target{
				EntityInstanceID: td.EntityInstanceID,
				Proportion:       td.Target,
				Population:       td.TargetPopulation,
				Shape:            Leaf{GroupID: NoGroup},
			}
			children, err := plansFromDTO(td.Plans)
			if err != nil {
				return nil, err
			}
			if len(children) > 0 {
				t.Shape = Nested{Plans: children}
			}
			p.Targets = append(p.Targets, t)
		}
		plans = append(plans, p)
	}
	return plans, nil
}

func checkTarget(variableID string, td models.TargetDTO) error {
	one := decimal.NewFromInt(1)
	if td.Target.Valid && (td.Target.Decimal.IsNegative() || td.Target.Decimal.GreaterThan(one)) {
		return fmt.Errorf("%w: %s=%d target %s is outside 0..1", ErrInvalidPlan, variableID, td.EntityInstanceID, td.Target.Decimal)
	}
	if td.TargetPopulation.Valid && td.TargetPopulation.Decimal.IsNegative() {
		return fmt.Errorf("%w: %s=%d population %s is negative", ErrInvalidPlan, variableID, td.EntityInstanceID, td.TargetPopulation.Decimal)
	}
	return nil
}
