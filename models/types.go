// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Reason strings attached to exported weights
const (
	ReasonUnweighted = "Unweighted"
	ReasonWeighted   = "Weighted"
	ReasonNoLookup   = "!No lookup found."
)

var (
	ErrInvalidFilter  = errors.New("invalid weighting filter")
	ErrSubsetNotFound = errors.New("subset not found")
)

// Domain types

type Subset struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Earliest    time.Time `json:"earliest"`
	Latest      time.Time `json:"latest"`
	Disabled    bool      `json:"disabled"`
}

type KeyPart struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// QuotaCell is one combination of dimension values a response can fall into
type QuotaCell struct {
	ID               int       `json:"id"`
	Parts            []KeyPart `json:"parts"`
	Unweighted       bool      `json:"unweighted"`
	WeightingGroupID *int      `json:"weighting_group_id,omitempty"`
}

// Part returns the value stored for key, if the cell has that dimension
func (c QuotaCell) Part(key string) (string, bool) {
	for _, p := range c.Parts {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// PartsMap indexes the cell's parts by key
func (c QuotaCell) PartsMap() map[string]string {
	m := make(map[string]string, len(c.Parts))
	for _, p := range c.Parts {
		m[p.Key] = p.Value
	}
	return m
}

type Response struct {
	ID        int       `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

type PopulatedCell struct {
	Cell      QuotaCell
	Responses []Response
}

// IndependentGroup is a set of weighted cells balanced together and never
// against another group (one wave, for example)
type IndependentGroup struct {
	Key   string      `json:"key"`
	Cells []QuotaCell `json:"cells"`
}

// WeightingGroupID returns the group id shared by the group's cells
func (g IndependentGroup) WeightingGroupID() *int {
	for _, c := range g.Cells {
		if c.WeightingGroupID != nil {
			return c.WeightingGroupID
		}
	}
	return nil
}

type SubsetCells struct {
	Unweighted []QuotaCell         `json:"unweighted"`
	Weighted   []IndependentGroup `json:"weighted"`
}

// AllocationReason explains why a response could not be allocated to a
// weighted cell
type AllocationReason struct {
	Dimension   string `json:"dimension"`
	AnswerValue *int   `json:"answer_value,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// String renders the reason as "[dimension,value] reason"
func (r AllocationReason) String() string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(r.Dimension)
	if r.AnswerValue != nil {
		b.WriteString(",")
		b.WriteString(strconv.Itoa(*r.AnswerValue))
	}
	b.WriteString("]")
	if r.Reason != "" {
		b.WriteString(" ")
		b.WriteString(r.Reason)
	}
	return b.String()
}

// WeightingFilter restricts an export to cells whose Dimension part equals
// InstanceID
type WeightingFilter struct {
	Dimension  string `json:"dimension"`
	InstanceID int    `json:"instance_id"`
}

// ParseWeightingFilter parses "dimension:instance"
func ParseWeightingFilter(s string) (WeightingFilter, error) {
	dim, inst, ok := strings.Cut(s, ":")
	if !ok || strings.TrimSpace(dim) == "" {
		return WeightingFilter{}, fmt.Errorf("%w: %q", ErrInvalidFilter, s)
	}
	id, err := strconv.Atoi(strings.TrimSpace(inst))
	if err != nil {
		return WeightingFilter{}, fmt.Errorf("%w: %q: %v", ErrInvalidFilter, s, err)
	}
	return WeightingFilter{Dimension: strings.TrimSpace(dim), InstanceID: id}, nil
}

// RespondentWeight is one externally supplied per-respondent weight
type RespondentWeight struct {
	ResponseID int             `json:"response_id"`
	Weight     decimal.Decimal `json:"weight"`
}

// ResponseWeighting maps respondents onto synthetic cells, one cell per
// distinct supplied weight
type ResponseWeighting struct {
	FieldName     string                  `json:"field_name"`
	ResponseCells map[int]int             `json:"response_cells"`
	CellWeights   map[int]decimal.Decimal `json:"cell_weights"`
}

// CellIndexes returns the synthetic cell indexes in ascending order
func (w *ResponseWeighting) CellIndexes() []int {
	out := make([]int, 0, len(w.CellWeights))
	for idx := range w.CellWeights {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// WeightFor returns the multiplier supplied for a respondent
func (w *ResponseWeighting) WeightFor(responseID int) (decimal.Decimal, bool) {
	idx, ok := w.ResponseCells[responseID]
	if !ok {
		return decimal.Zero, false
	}
	weight, ok := w.CellWeights[idx]
	return weight, ok
}

// ExportedWeight is one output record per (subset, response)
type ExportedWeight struct {
	SubsetID         string    `json:"subset_id"`
	WeightingGroupID *int      `json:"weighting_group_id,omitempty"`
	WaveID           string    `json:"wave_id"`
	ResponseID       int       `json:"response_id"`
	Weight           *float64  `json:"weight"`
	ResponseDate     time.Time `json:"response_date"`
	Reasons          []string  `json:"reasons"`
}

// NewExportedWeight builds a record, copying reasons so the caller's slice
// can be reused
func NewExportedWeight(subsetID string, groupID *int, waveID string, responseID int, weight *float64, date time.Time, reasons []string) ExportedWeight {
	var gid *int
	if groupID != nil {
		v := *groupID
		gid = &v
	}
	return ExportedWeight{
		SubsetID:         subsetID,
		WeightingGroupID: gid,
		WaveID:           waveID,
		ResponseID:       responseID,
		Weight:           weight,
		ResponseDate:     date,
		Reasons:          append([]string(nil), reasons...),
	}
}

// Request types

// Nested form of a weighting scheme, as sent and returned over HTTP
type PlanDTO struct {
	VariableID           string      `json:"variable_identifier"`
	IsWeightingGroupRoot bool        `json:"is_weighting_group_root,omitempty"`
	ResponseLevel        bool        `json:"response_level,omitempty"`
	Targets              []TargetDTO `json:"targets"`
}

type TargetDTO struct {
	EntityInstanceID int                 `json:"entity_instance_id"`
	Target           decimal.NullDecimal `json:"target"`
	TargetPopulation decimal.NullDecimal `json:"target_population"`
	WeightingGroupID *int                `json:"weighting_group_id,omitempty"`
	Plans            []PlanDTO           `json:"plans,omitempty"`
}

type SavePlansRequest struct {
	Plans []PlanDTO `json:"plans"`
}

// Copies another subset's weighting scheme. A non-zero FlattenUnderTarget
// re-parents every distinct plan under that target instead of cloning.
type CopyPlansRequest struct {
	FromSubsetID       string `json:"from_subset_id"`
	FlattenUnderTarget int    `json:"flatten_under_target,omitempty"`
}

// Response types

type PlansResponse struct {
	SubsetID string    `json:"subset_id"`
	Type     string    `json:"type"`
	Styles   []string  `json:"styles"`
	Plans    []PlanDTO `json:"plans"`
}

type SavePlansResponse struct {
	SubsetID    string `json:"subset_id"`
	PlanCount   int    `json:"plan_count"`
	TargetCount int    `json:"target_count"`
}

type WindowResponse struct {
	SubsetID string    `json:"subset_id"`
	Average  string    `json:"average"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

type ExportResponse struct {
	RunID   string           `json:"run_id"`
	Average string           `json:"average,omitempty"`
	Count   int              `json:"count"`
	Weights []ExportedWeight `json:"weights"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
