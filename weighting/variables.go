// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package weighting

import (
	"context"
	"fmt"
	"strings"
)

// ComponentKind says what a variable grouping is computed from
type ComponentKind int

const (
	ComponentOther ComponentKind = iota
	ComponentDateRange
	ComponentSurveyID
	ComponentInstanceList
	ComponentComposite
)

var componentNames = []string{"Other", "DateRange", "SurveyID", "InstanceList", "Composite"}

func (k ComponentKind) String() string {
	if k < 0 || int(k) >= len(componentNames) {
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
	return componentNames[k]
}

func (k ComponentKind) MarshalText() ([]byte, error) {
	if k < 0 || int(k) >= len(componentNames) {
		return nil, fmt.Errorf("unknown component kind %d", int(k))
	}
	return []byte(componentNames[k]), nil
}

func (k *ComponentKind) UnmarshalText(text []byte) error {
	for i, name := range componentNames {
		if strings.EqualFold(name, string(text)) {
			*k = ComponentKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown component kind %q", text)
}

// Component is one grouping rule of a variable. InstanceList components
// defer to another variable; Composite components combine others.
type Component struct {
	Kind       ComponentKind `json:"kind"`
	VariableID string        `json:"variable_identifier,omitempty"`
	Components []Component   `json:"components,omitempty"`
}

type Grouping struct {
	Name      string    `json:"name"`
	Component Component `json:"component"`
}

// VariableDefinition is the part of a variable's configuration the
// classifier looks at
type VariableDefinition struct {
	ID        string     `json:"variable_identifier"`
	Groupings []Grouping `json:"groupings"`
}

// VariableRepository looks variables up by identifier. found is false for
// an unknown variable.
type VariableRepository interface {
	Variable(ctx context.Context, id string) (def VariableDefinition, found bool, err error)
}

// IsWaveBased reports whether every grouping of the variable resolves to
// date-range or survey-id components. Unknown variables, variables without
// groupings and reference cycles are not wave-based.
func IsWaveBased(ctx context.Context, vars VariableRepository, id string) (bool, error) {
	if vars == nil {
		return false, nil
	}
	return isWaveVariable(ctx, vars, id, map[string]bool{})
}

func isWaveVariable(ctx context.Context, vars VariableRepository, id string, visiting map[string]bool) (bool, error) {
	if visiting[id] {
		return false, nil
	}
	visiting[id] = true
	defer delete(visiting, id)

	def, found, err := vars.Variable(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to load variable %s: %w", id, err)
	}
	if !found || len(def.Groupings) == 0 {
		return false, nil
	}

	for _, g := range def.Groupings {
		ok, err := isWaveComponent(ctx, vars, g.Component, visiting)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func isWaveComponent(ctx context.Context, vars VariableRepository, c Component, visiting map[string]bool) (bool, error) {
	switch c.Kind {
	case ComponentDateRange, ComponentSurveyID:
		return true, nil
	case ComponentInstanceList:
		if c.VariableID == "" {
			return false, nil
		}
		return isWaveVariable(ctx, vars, c.VariableID, visiting)
	case ComponentComposite:
		if len(c.Components) == 0 {
			return false, nil
		}
		for _, child := range c.Components {
			ok, err := isWaveComponent(ctx, vars, child, visiting)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	default:
		return false, nil
	}
}
