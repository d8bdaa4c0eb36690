// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package weighting

import (
	"context"

	"github.com/danielhkuo/quickly-weigh/models"
)

// ResponseLevelSource supplies per-respondent breakdowns while a tree is
// built. A nil breakdown with a nil error means none is configured.
type ResponseLevelSource interface {
	ForRoot(ctx context.Context) (*models.ResponseWeighting, error)
	ForTargetRow(ctx context.Context, row TargetRow) (*models.ResponseWeighting, error)
}

// ToTree builds the nested scheme for cfg.
//
// Group ids are minted depth-first: once per target of a group-root plan,
// and once for any sibling list of more than one plan. Ids reach leaves
// only. A target without persisted children whose breakdown is supplied
// by src becomes a ResponseLevel target instead of a leaf; a breakdown for
// the subset root replaces the whole scheme. src may be nil.
func ToTree(ctx context.Context, cfg Config, src ResponseLevelSource) ([]Plan, error) {
	idx, err := NewIndex(cfg)
	if err != nil {
		return nil, err
	}
	return ToTreeFromIndex(ctx, idx, src)
}

// ToTreeFromIndex is ToTree over an already built index
func ToTreeFromIndex(ctx context.Context, idx *Index, src ResponseLevelSource) ([]Plan, error) {
	if src != nil {
		rw, err := src.ForRoot(ctx)
		if err != nil {
			return nil, err
		}
		if rw != nil {
			return []Plan{responseLevelPlan(rw)}, nil
		}
	}

	a := &treeBuilder{idx: idx, src: src}
	return a.plans(ctx, idx.RootPlans(), NoGroup)
}

type treeBuilder struct {
	idx       *Index
	src       ResponseLevelSource
	lastGroup int
	// shared by leaves no group root or sibling list claimed
	implicitGroup int
}

func (b *treeBuilder) mint() int {
	b.lastGroup++
	return b.lastGroup
}

func (b *treeBuilder) plans(ctx context.Context, rows []PlanRow, groupID int) ([]Plan, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	if len(rows) > 1 && groupID == NoGroup {
		groupID = b.mint()
	}

	out := make([]Plan, 0, len(rows))
	for _, row := range rows {
		p, err := b.plan(ctx, row, groupID)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (b *treeBuilder) plan(ctx context.Context, row PlanRow, groupID int) (Plan, error) {
	if err := ctx.Err(); err != nil {
		return Plan{}, err
	}

	p := Plan{VariableID: row.VariableID, IsGroupRoot: row.IsGroupRoot, ID: row.ID}
	for _, t := range b.idx.ChildTargets(row.ID) {
		childGroup := groupID
		if row.IsGroupRoot && childGroup == NoGroup {
			childGroup = b.mint()
		}
		target, err := b.target(ctx, t, childGroup)
		if err != nil {
			return Plan{}, err
		}
		p.Targets = append(p.Targets, target)
	}
	return p, nil
}

func (b *treeBuilder) target(ctx context.Context, row TargetRow, groupID int) (Target, error) {
	t := Target{
		ID:               row.ID,
		EntityInstanceID: row.EntityInstanceID,
		Proportion:       row.Proportion,
		Population:       row.Population,
	}

	children := b.idx.ChildPlans(row.ID)
	if len(children) == 0 && b.src != nil && row.EntityInstanceID > 0 {
		rw, err := b.src.ForTargetRow(ctx, row)
		if err != nil {
			return Target{}, err
		}
		if rw != nil {
			t.Shape = ResponseLevel{Plan: responseLevelPlan(rw)}
			return t, nil
		}
	}

	if len(children) == 0 {
		if groupID == NoGroup {
			if b.implicitGroup == NoGroup {
				b.implicitGroup = b.mint()
			}
			groupID = b.implicitGroup
		}
		t.Shape = Leaf{GroupID: groupID}
		return t, nil
	}

	plans, err := b.plans(ctx, children, groupID)
	if err != nil {
		return Target{}, err
	}
	t.Shape = Nested{Plans: plans}
	return t, nil
}

// FromTree lays plans out in their persisted form. Rows get provisional
// sequential ids, starting at 1, that only link rows to each other;
// response-level plans and shapes are left out.
func FromTree(plans []Plan, subsetID string) Config {
	b := &configBuilder{subsetID: subsetID}
	for _, p := range plans {
		b.plan(p, 0)
	}
	return b.cfg
}

type configBuilder struct {
	subsetID   string
	cfg        Config
	nextPlan   int
	nextTarget int
}

func (b *configBuilder) plan(p Plan, parentTargetID int) {
	if p.IsResponseLevel() {
		return
	}

	b.nextPlan++
	planID := b.nextPlan
	b.cfg.Plans = append(b.cfg.Plans, PlanRow{
		ID:             planID,
		SubsetID:       b.subsetID,
		VariableID:     p.VariableID,
		ParentTargetID: parentTargetID,
		IsGroupRoot:    p.IsGroupRoot,
	})

	for _, t := range p.Targets {
		b.nextTarget++
		targetID := b.nextTarget
		b.cfg.Targets = append(b.cfg.Targets, TargetRow{
			ID:               targetID,
			PlanID:           planID,
			EntityInstanceID: t.EntityInstanceID,
			Proportion:       t.Proportion,
			Population:       t.Population,
		})
		if nested, ok := t.Shape.(Nested); ok {
			for _, child := range nested.Plans {
				b.plan(child, targetID)
			}
		}
	}
}
