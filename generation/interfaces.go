// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package generation

import (
	"context"
	"time"

	"github.com/danielhkuo/quickly-weigh/models"
	"github.com/danielhkuo/quickly-weigh/quotacells"
	"github.com/danielhkuo/quickly-weigh/weighting"
)

// SubsetRepository returns models.ErrSubsetNotFound (possibly wrapped) for
// unknown ids.
type SubsetRepository interface {
	Subset(ctx context.Context, id string) (models.Subset, error)
	Subsets(ctx context.Context) ([]models.Subset, error)
}

// PlanRepository returns an empty Config for subsets without a scheme.
type PlanRepository interface {
	WeightingPlans(ctx context.Context, subsetID string) (weighting.Config, error)
}

type QuotaCellSource interface {
	QuotaCells(ctx context.Context, subset models.Subset) (models.SubsetCells, error)
}

// ResponseAccessor returns the responses that fall into each of cells.
// Cells without responses may be omitted.
type ResponseAccessor interface {
	Responses(ctx context.Context, subset models.Subset, cells []models.QuotaCell) ([]models.PopulatedCell, error)
}

// AllocationExplainer says why a response did not land in a weighted cell.
type AllocationExplainer interface {
	AllocationReasons(ctx context.Context, subset models.Subset, response models.Response) ([]models.AllocationReason, error)
}

// Reference is the weighting scheme a generator balances against.
type Reference struct {
	SubsetID       string
	Plans          []weighting.Plan
	Classification weighting.Classification
}

// CellWeightGenerator computes a weight per quota cell id. Cells it cannot
// weight are left out of the map.
type CellWeightGenerator interface {
	GenerateForWindow(ctx context.Context, subset models.Subset, responses ResponseAccessor, ref Reference, cells []models.QuotaCell, start, end time.Time) (map[int]float64, error)
	GenerateForPeriodEnding(ctx context.Context, subset models.Subset, responses ResponseAccessor, ref Reference, desc models.AverageDescriptor, cells []models.QuotaCell, periodEnd time.Time) (map[int]float64, error)
}

// Dependencies bundles the Service's collaborators. ResponseWeights and
// Variables are optional.
type Dependencies struct {
	Subsets         SubsetRepository
	Plans           PlanRepository
	Cells           QuotaCellSource
	Responses       ResponseAccessor
	Explainer       AllocationExplainer
	Generator       CellWeightGenerator
	ResponseWeights quotacells.WeightSource
	Variables       weighting.VariableRepository
}

func (d Dependencies) missing() []string {
	var out []string
	if d.Subsets == nil {
		out = append(out, "Subsets")
	}
	if d.Plans == nil {
		out = append(out, "Plans")
	}
	if d.Cells == nil {
		out = append(out, "Cells")
	}
	if d.Responses == nil {
		out = append(out, "Responses")
	}
	if d.Explainer == nil {
		out = append(out, "Explainer")
	}
	if d.Generator == nil {
		out = append(out, "Generator")
	}
	return out
}
