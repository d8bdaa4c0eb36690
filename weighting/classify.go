// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package weighting

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

type Type int

const (
	TypeUnknown Type = iota
	TypeAdhoc
	TypeTracker
)

func (t Type) String() string {
	switch t {
	case TypeAdhoc:
		return "Adhoc"
	case TypeTracker:
		return "Tracker"
	default:
		return "Unknown"
	}
}

// Style is a set of weighting techniques found in a scheme
type Style uint8

const (
	StyleInterlocked Style = 1 << iota
	StyleRIM
	StyleResponseWeighting
	StyleExpansion
)

var styleNames = []struct {
	style Style
	name  string
}{
	{StyleInterlocked, "Interlocked"},
	{StyleRIM, "RIM"},
	{StyleResponseWeighting, "ResponseWeighting"},
	{StyleExpansion, "Expansion"},
}

func (s Style) Has(o Style) bool {
	return s&o == o
}

// Names lists the styles in s in a fixed order
func (s Style) Names() []string {
	names := []string{}
	for _, sn := range styleNames {
		if s.Has(sn.style) {
			names = append(names, sn.name)
		}
	}
	return names
}

func (s Style) String() string {
	if s == 0 {
		return "None"
	}
	return strings.Join(s.Names(), "|")
}

type Classification struct {
	Type  Type
	Style Style
}

// Classify describes a scheme for diagnostics. It never changes plans and
// only consults vars to decide whether a lone root plan is wave-based.
func Classify(ctx context.Context, plans []Plan, vars VariableRepository) (Classification, error) {
	var c Classification
	if len(plans) == 0 {
		return c, nil
	}

	if containsResponseLevel(plans) {
		c.Style |= StyleResponseWeighting
	}
	c.Style |= styleOf(plans)

	if len(plans) > 1 {
		c.Type = TypeAdhoc
		c.Style |= StyleRIM
		return c, nil
	}

	wave, err := IsWaveBased(ctx, vars, plans[0].VariableID)
	if err != nil {
		return Classification{}, err
	}
	if wave {
		c.Type = TypeTracker
	} else {
		c.Type = TypeAdhoc
	}
	return c, nil
}

func containsResponseLevel(plans []Plan) bool {
	found := false
	Walk(plans, func(p Plan, _ int) {
		if p.IsResponseLevel() {
			found = true
		}
	})
	return found
}

// styleOf applies the sibling and leaf-level rules below response-level
// nodes, which are already accounted for
func styleOf(plans []Plan) Style {
	if len(plans) > 1 {
		return StyleRIM
	}
	if len(plans) == 0 || plans[0].IsResponseLevel() {
		return 0
	}

	p := plans[0]
	var style Style
	leafLevel := true
	for _, t := range p.Targets {
		if nested, ok := t.Shape.(Nested); ok {
			leafLevel = false
			style |= styleOf(nested.Plans)
		}
		if _, ok := t.Shape.(ResponseLevel); ok {
			leafLevel = false
		}
	}
	if !leafLevel {
		return style
	}

	proportions, populations := decimal.Zero, decimal.Zero
	for _, t := range p.Targets {
		if t.Proportion.Valid {
			proportions = proportions.Add(t.Proportion.Decimal)
		}
		if t.Population.Valid {
			populations = populations.Add(t.Population.Decimal)
		}
	}

	one := decimal.NewFromInt(1)
	switch {
	case proportions.IsPositive() && proportions.LessThan(one):
		style |= StyleInterlocked
	case proportions.Equal(one):
		style |= StyleRIM
	}
	if populations.IsPositive() {
		style |= StyleExpansion
	}
	return style
}
