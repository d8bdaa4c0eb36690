// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidEnum    = errors.New("invalid enum value")
	ErrInvalidAverage = errors.New("invalid average descriptor")
)

// TotalisationUnit is the calendar unit an average counts periods in.
type TotalisationUnit int

const (
	UnitDay TotalisationUnit = iota
	UnitMonth
	UnitAll
)

var unitNames = []string{"Day", "Month", "All"}

func (u TotalisationUnit) String() string { return enumName(unitNames, int(u)) }

func (u TotalisationUnit) MarshalText() ([]byte, error) { return marshalEnum(unitNames, int(u)) }

func (u *TotalisationUnit) UnmarshalText(text []byte) error {
	return unmarshalEnum("totalisation unit", unitNames, text, (*int)(u))
}

// WeightingMethod says whether responses in an average are weighted at all.
type WeightingMethod int

const (
	MethodNone WeightingMethod = iota
	MethodQuotaCell
)

var methodNames = []string{"None", "QuotaCell"}

func (m WeightingMethod) String() string { return enumName(methodNames, int(m)) }

func (m WeightingMethod) MarshalText() ([]byte, error) { return marshalEnum(methodNames, int(m)) }

func (m *WeightingMethod) UnmarshalText(text []byte) error {
	return unmarshalEnum("weighting method", methodNames, text, (*int)(m))
}

// WeightAcross controls whether weights are computed per period or over the
// whole run of periods an average spans.
type WeightAcross int

const (
	SinglePeriod WeightAcross = iota
	AllPeriods
)

var acrossNames = []string{"SinglePeriod", "AllPeriods"}

func (w WeightAcross) String() string { return enumName(acrossNames, int(w)) }

func (w WeightAcross) MarshalText() ([]byte, error) { return marshalEnum(acrossNames, int(w)) }

func (w *WeightAcross) UnmarshalText(text []byte) error {
	return unmarshalEnum("weight across", acrossNames, text, (*int)(w))
}

// MakeUpTo is the boundary an average's end date snaps to.
type MakeUpTo int

const (
	MakeUpToDay MakeUpTo = iota
	MakeUpToWeekEnd
	MakeUpToMonthEnd
	MakeUpToQuarterEnd
	MakeUpToHalfYearEnd
	MakeUpToCalendarYearEnd
)

var makeUpToNames = []string{"Day", "WeekEnd", "MonthEnd", "QuarterEnd", "HalfYearEnd", "CalendarYearEnd"}

func (m MakeUpTo) String() string { return enumName(makeUpToNames, int(m)) }

func (m MakeUpTo) MarshalText() ([]byte, error) { return marshalEnum(makeUpToNames, int(m)) }

func (m *MakeUpTo) UnmarshalText(text []byte) error {
	return unmarshalEnum("make up to", makeUpToNames, text, (*int)(m))
}

func enumName(names []string, v int) string {
	if v < 0 || v >= len(names) {
		return fmt.Sprintf("Unknown(%d)", v)
	}
	return names[v]
}

func marshalEnum(names []string, v int) ([]byte, error) {
	if v < 0 || v >= len(names) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidEnum, v)
	}
	return []byte(names[v]), nil
}

// Names are matched case-insensitively so hand-written YAML stays forgiving
func unmarshalEnum(kind string, names []string, text []byte, dst *int) error {
	for i, name := range names {
		if strings.EqualFold(name, string(text)) {
			*dst = i
			return nil
		}
	}
	return fmt.Errorf("%w: unknown %s %q", ErrInvalidEnum, kind, text)
}

// AverageDescriptor is a named rule for bucketing responses over calendar time
type AverageDescriptor struct {
	ID               string           `json:"id" yaml:"id"`
	DisplayName      string           `json:"display_name" yaml:"display_name"`
	Order            int              `json:"order" yaml:"order"`
	TotalisationUnit TotalisationUnit `json:"totalisation_unit" yaml:"totalisation_unit"`
	NumberOfPeriods  int              `json:"number_of_periods" yaml:"number_of_periods"`
	WeightingMethod  WeightingMethod  `json:"weighting_method" yaml:"weighting_method"`
	WeightAcross     WeightAcross     `json:"weight_across" yaml:"weight_across"`
	MakeUpTo         MakeUpTo         `json:"make_up_to" yaml:"make_up_to"`
	IsDefault        bool             `json:"is_default" yaml:"is_default"`
	IsHidden         bool             `json:"is_hidden" yaml:"is_hidden"`
	Disabled         bool             `json:"disabled" yaml:"disabled"`
}

// Is reports whether id names this descriptor. Ids are case-insensitive.
func (d AverageDescriptor) Is(id string) bool {
	return strings.EqualFold(d.ID, id)
}

// Validate rejects descriptors that cannot be resolved to a window
func (d AverageDescriptor) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidAverage)
	}
	if d.TotalisationUnit != UnitAll && d.NumberOfPeriods < 1 {
		return fmt.Errorf("%w: %s needs at least one period, got %d", ErrInvalidAverage, d.ID, d.NumberOfPeriods)
	}
	if _, err := d.TotalisationUnit.MarshalText(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidAverage, d.ID, err)
	}
	if _, err := d.WeightingMethod.MarshalText(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidAverage, d.ID, err)
	}
	if _, err := d.WeightAcross.MarshalText(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidAverage, d.ID, err)
	}
	if _, err := d.MakeUpTo.MarshalText(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidAverage, d.ID, err)
	}
	return nil
}
