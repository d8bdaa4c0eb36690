// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package weighting

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PlanRow is a persisted plan. ParentTargetID is 0 for root plans.
type PlanRow struct {
	ID             int
	SubsetID       string
	VariableID     string
	ParentTargetID int
	IsGroupRoot    bool
}

// TargetRow is a persisted target owned by PlanID
type TargetRow struct {
	ID               int
	PlanID           int
	EntityInstanceID int
	Proportion       decimal.NullDecimal
	Population       decimal.NullDecimal
}

// Config is the flat, parent-referencing form a subset's scheme is stored
// in. Row order is significant: it is the order siblings appear in.
type Config struct {
	Plans   []PlanRow
	Targets []TargetRow
}

// Empty reports whether no weighting is configured
func (c Config) Empty() bool {
	return len(c.Plans) == 0
}

// Index answers parent/child queries over a Config without holding
// pointers between rows
type Index struct {
	plans         map[int]PlanRow
	targets       map[int]TargetRow
	roots         []PlanRow
	targetsOfPlan map[int][]TargetRow
	plansOfTarget map[int][]PlanRow
}

// NewIndex validates the links in cfg and indexes it
func NewIndex(cfg Config) (*Index, error) {
	idx := &Index{
		plans:         make(map[int]PlanRow, len(cfg.Plans)),
		targets:       make(map[int]TargetRow, len(cfg.Targets)),
		targetsOfPlan: make(map[int][]TargetRow),
		plansOfTarget: make(map[int][]PlanRow),
	}

	for _, p := range cfg.Plans {
		if p.ID <= 0 {
			return nil, fmt.Errorf("%w: plan %q has id %d", ErrInvalidConfig, p.VariableID, p.ID)
		}
		if _, dup := idx.plans[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate plan id %d", ErrInvalidConfig, p.ID)
		}
		idx.plans[p.ID] = p
	}
	for _, t := range cfg.Targets {
		if t.ID <= 0 {
			return nil, fmt.Errorf("%w: target %d of plan %d has id %d", ErrInvalidConfig, t.EntityInstanceID, t.PlanID, t.ID)
		}
		if _, dup := idx.targets[t.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate target id %d", ErrInvalidConfig, t.ID)
		}
		if _, ok := idx.plans[t.PlanID]; !ok {
			return nil, fmt.Errorf("%w: target %d refers to missing plan %d", ErrInvalidConfig, t.ID, t.PlanID)
		}
		idx.targets[t.ID] = t
		idx.targetsOfPlan[t.PlanID] = append(idx.targetsOfPlan[t.PlanID], t)
	}
	for _, p := range cfg.Plans {
		if p.ParentTargetID == 0 {
			idx.roots = append(idx.roots, p)
			continue
		}
		if _, ok := idx.targets[p.ParentTargetID]; !ok {
			return nil, fmt.Errorf("%w: plan %d refers to missing target %d", ErrInvalidConfig, p.ID, p.ParentTargetID)
		}
		idx.plansOfTarget[p.ParentTargetID] = append(idx.plansOfTarget[p.ParentTargetID], p)
	}

	// A cycle leaves plans unreachable from the roots
	reached := 0
	var visit func(plans []PlanRow, depth int) error
	visit = func(plans []PlanRow, depth int) error {
		if depth > len(cfg.Plans) {
			return fmt.Errorf("%w: plans form a cycle", ErrInvalidConfig)
		}
		for _, p := range plans {
			reached++
			for _, t := range idx.targetsOfPlan[p.ID] {
				if err := visit(idx.plansOfTarget[t.ID], depth+1); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := visit(idx.roots, 0); err != nil {
		return nil, err
	}
	if reached != len(cfg.Plans) {
		return nil, fmt.Errorf("%w: %d plans are not reachable from a root plan", ErrInvalidConfig, len(cfg.Plans)-reached)
	}

	return idx, nil
}

// RootPlans returns the plans with no parent target, in stored order
func (i *Index) RootPlans() []PlanRow {
	return i.roots
}

// ChildTargets returns the targets of a plan, in stored order
func (i *Index) ChildTargets(planID int) []TargetRow {
	return i.targetsOfPlan[planID]
}

// ChildPlans returns the plans nested under a target, in stored order
func (i *Index) ChildPlans(targetID int) []PlanRow {
	return i.plansOfTarget[targetID]
}

func (i *Index) Target(targetID int) (TargetRow, bool) {
	t, ok := i.targets[targetID]
	return t, ok
}

func (i *Index) Plan(planID int) (PlanRow, bool) {
	p, ok := i.plans[planID]
	return p, ok
}

// ParentPlanOfTarget returns the plan owning targetID
func (i *Index) ParentPlanOfTarget(targetID int) (PlanRow, bool) {
	t, ok := i.targets[targetID]
	if !ok {
		return PlanRow{}, false
	}
	return i.Plan(t.PlanID)
}

// AncestorLevels counts the nested plan levels above targetID's plan,
// stopping once limit is reached. A target of a root plan has 0.
func (i *Index) AncestorLevels(targetID, limit int) int {
	plan, ok := i.ParentPlanOfTarget(targetID)
	levels := 0
	for ok && plan.ParentTargetID != 0 && levels < limit {
		levels++
		plan, ok = i.ParentPlanOfTarget(plan.ParentTargetID)
	}
	return levels
}
