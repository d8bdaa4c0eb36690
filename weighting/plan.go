// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package weighting

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/danielhkuo/quickly-weigh/models"
)

// NoGroup marks a leaf that belongs to a response-level breakdown rather
// than a minted weighting group. Minted ids start at 1.
const NoGroup = 0

var (
	ErrInvalidPlan   = errors.New("invalid weighting plan")
	ErrInvalidConfig = errors.New("invalid weighting configuration")
)

// Plan balances one dimension (VariableID) across its targets.
//
// Weighting is set only on synthetic plans built from response-level
// weights; such plans are never persisted.
type Plan struct {
	VariableID  string
	Targets     []Target
	IsGroupRoot bool
	ID          int
	Weighting   *models.ResponseWeighting
}

// IsResponseLevel reports whether the plan was built from externally
// supplied per-respondent weights
func (p Plan) IsResponseLevel() bool {
	return p.Weighting != nil
}

// Target is one category value of its parent plan's dimension
type Target struct {
	ID               int
	EntityInstanceID int
	Proportion       decimal.NullDecimal
	Population       decimal.NullDecimal
	Shape            Shape
}

// Shape is exactly one of Leaf, Nested or ResponseLevel
type Shape interface {
	isShape()
}

// Leaf ends the tree. Its group decides which balancing computation a
// response's weight comes from.
type Leaf struct {
	GroupID int
}

// Nested balances further dimensions inside the target
type Nested struct {
	Plans []Plan
}

// ResponseLevel replaces further structure with a synthetic plan of
// per-respondent weights
type ResponseLevel struct {
	Plan Plan
}

func (Leaf) isShape()          {}
func (Nested) isShape()        {}
func (ResponseLevel) isShape() {}

// GroupID returns the target's weighting group, if it is a leaf
func (t Target) GroupID() (int, bool) {
	if leaf, ok := t.Shape.(Leaf); ok {
		return leaf.GroupID, true
	}
	return NoGroup, false
}

// Children returns the plans directly under the target, including a
// spliced response-level plan
func (t Target) Children() []Plan {
	switch s := t.Shape.(type) {
	case Nested:
		return s.Plans
	case ResponseLevel:
		return []Plan{s.Plan}
	default:
		return nil
	}
}

// Walk visits every plan depth-first, parents before children
func Walk(plans []Plan, fn func(p Plan, depth int)) {
	walk(plans, 0, fn)
}

func walk(plans []Plan, depth int, fn func(Plan, int)) {
	for _, p := range plans {
		fn(p, depth)
		for _, t := range p.Targets {
			walk(t.Children(), depth+1, fn)
		}
	}
}

// Validate checks that every structural leaf carries a minted group and
// that only targets inside response-level plans carry NoGroup
func Validate(plans []Plan) error {
	return validate(plans, false)
}

func validate(plans []Plan, insideResponseLevel bool) error {
	for _, p := range plans {
		if p.VariableID == "" {
			return fmt.Errorf("%w: plan without a variable identifier", ErrInvalidPlan)
		}
		rl := insideResponseLevel || p.IsResponseLevel()
		for _, t := range p.Targets {
			switch s := t.Shape.(type) {
			case Leaf:
				if !rl && s.GroupID == NoGroup {
					return fmt.Errorf("%w: leaf %s=%d has no weighting group", ErrInvalidPlan, p.VariableID, t.EntityInstanceID)
				}
			case Nested:
				if len(s.Plans) == 0 {
					return fmt.Errorf("%w: target %s=%d nests no plans", ErrInvalidPlan, p.VariableID, t.EntityInstanceID)
				}
				if err := validate(s.Plans, rl); err != nil {
					return err
				}
			case ResponseLevel:
				if !s.Plan.IsResponseLevel() {
					return fmt.Errorf("%w: target %s=%d has a response-level shape without weights", ErrInvalidPlan, p.VariableID, t.EntityInstanceID)
				}
				if err := validate([]Plan{s.Plan}, true); err != nil {
					return err
				}
			default:
				return fmt.Errorf("%w: target %s=%d has no shape", ErrInvalidPlan, p.VariableID, t.EntityInstanceID)
			}
		}
	}
	return nil
}

// responseLevelPlan lays a breakdown out as a plan with one leaf per
// synthetic cell, proportion set to the cell's multiplier
func responseLevelPlan(rw *models.ResponseWeighting) Plan {
	p := Plan{VariableID: rw.FieldName, Weighting: rw}
	for _, idx := range rw.CellIndexes() {
		p.Targets = append(p.Targets, Target{
			EntityInstanceID: idx,
			Proportion:       decimal.NewNullDecimal(rw.CellWeights[idx]),
			Shape:            Leaf{GroupID: NoGroup},
		})
	}
	return p
}
