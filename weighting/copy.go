// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package weighting

import "github.com/shopspring/decimal"

// Clone returns a structurally identical copy of cfg with provisional
// sequential ids, ready to be stored for another subset.
func Clone(cfg Config, subsetID string) (Config, error) {
	idx, err := NewIndex(cfg)
	if err != nil {
		return Config{}, err
	}

	c := &cloner{idx: idx, subsetID: subsetID}
	for _, p := range idx.RootPlans() {
		c.plan(p, 0)
	}
	return c.out, nil
}

type cloner struct {
	idx        *Index
	subsetID   string
	out        Config
	nextPlan   int
	nextTarget int
}

func (c *cloner) plan(p PlanRow, parentTargetID int) {
	c.nextPlan++
	planID := c.nextPlan
	c.out.Plans = append(c.out.Plans, PlanRow{
		ID:             planID,
		SubsetID:       c.subsetID,
		VariableID:     p.VariableID,
		ParentTargetID: parentTargetID,
		IsGroupRoot:    p.IsGroupRoot,
	})

	for _, t := range c.idx.ChildTargets(p.ID) {
		c.nextTarget++
		targetID := c.nextTarget
		c.out.Targets = append(c.out.Targets, TargetRow{
			ID:               targetID,
			PlanID:           planID,
			EntityInstanceID: t.EntityInstanceID,
			Proportion:       t.Proportion,
			Population:       t.Population,
		})
		for _, child := range c.idx.ChildPlans(t.ID) {
			c.plan(child, targetID)
		}
	}
}

// Flatten copies every distinct variable of cfg once, as plans directly
// under parentTargetID, in depth-first order of first appearance.
//
// The first target of each copied plan gets proportion 1 whatever it stored;
// later targets get none and must be filled in by the caller.
// Populations are dropped. Copied rows get provisional ids starting at 1;
// parentTargetID itself is kept as given.
func Flatten(cfg Config, parentTargetID int) (Config, error) {
	idx, err := NewIndex(cfg)
	if err != nil {
		return Config{}, err
	}

	f := &flattener{idx: idx, parent: parentTargetID, seen: make(map[string]bool)}
	f.visit(idx.RootPlans())
	return f.out, nil
}

type flattener struct {
	idx        *Index
	parent     int
	seen       map[string]bool
	out        Config
	nextPlan   int
	nextTarget int
}

func (f *flattener) visit(plans []PlanRow) {
	for _, p := range plans {
		if !f.seen[p.VariableID] {
			f.seen[p.VariableID] = true
			f.copyPlan(p)
		}
		for _, t := range f.idx.ChildTargets(p.ID) {
			f.visit(f.idx.ChildPlans(t.ID))
		}
	}
}

func (f *flattener) copyPlan(p PlanRow) {
	f.nextPlan++
	planID := f.nextPlan
	f.out.Plans = append(f.out.Plans, PlanRow{
		ID:             planID,
		SubsetID:       p.SubsetID,
		VariableID:     p.VariableID,
		ParentTargetID: f.parent,
		IsGroupRoot:    p.IsGroupRoot,
	})

	for i, t := range f.idx.ChildTargets(p.ID) {
		f.nextTarget++
		row := TargetRow{ID: f.nextTarget, PlanID: planID, EntityInstanceID: t.EntityInstanceID}
		if i == 0 {
			row.Proportion = decimal.NewNullDecimal(decimal.NewFromInt(1))
		}
		f.out.Targets = append(f.out.Targets, row)
	}
}
