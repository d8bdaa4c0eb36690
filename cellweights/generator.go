// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cellweights

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/danielhkuo/quickly-weigh/generation"
	"github.com/danielhkuo/quickly-weigh/models"
	"github.com/danielhkuo/quickly-weigh/periods"
)

const (
	DefaultMaxIterations = 50
	DefaultTolerance     = 1e-6
)

type Generator struct {
	logger        *slog.Logger
	maxIterations int
	tolerance     float64
}

var _ generation.CellWeightGenerator = (*Generator)(nil)

type Option func(*Generator)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithRaking overrides the raking iteration cap and convergence tolerance
func WithRaking(maxIterations int, tolerance float64) Option {
	return func(g *Generator) {
		if maxIterations > 0 {
			g.maxIterations = maxIterations
		}
		if tolerance > 0 {
			g.tolerance = tolerance
		}
	}
}

func New(opts ...Option) *Generator {
	g := &Generator{
		logger:        slog.Default(),
		maxIterations: DefaultMaxIterations,
		tolerance:     DefaultTolerance,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GenerateForWindow weighs cells on the responses dated within start..end
// inclusive
func (g *Generator) GenerateForWindow(ctx context.Context, subset models.Subset, responses generation.ResponseAccessor, ref generation.Reference, cells []models.QuotaCell, start, end time.Time) (map[int]float64, error) {
	stats, err := g.sample(ctx, subset, responses, cells, start, end)
	if err != nil {
		return nil, err
	}
	return g.weigh(ctx, ref, stats)
}

// GenerateForPeriodEnding weighs cells over the window the average
// assigns to the bucket ending at periodEnd. Unweighted averages give
// every sampled cell a weight of 1.
func (g *Generator) GenerateForPeriodEnding(ctx context.Context, subset models.Subset, responses generation.ResponseAccessor, ref generation.Reference, desc models.AverageDescriptor, cells []models.QuotaCell, periodEnd time.Time) (map[int]float64, error) {
	start, end := periods.WindowEnding(desc, periodEnd, subset.Earliest)
	stats, err := g.sample(ctx, subset, responses, cells, start, end)
	if err != nil {
		return nil, err
	}
	if desc.WeightingMethod == models.MethodNone {
		return unit(stats), nil
	}
	return g.weigh(ctx, ref, stats)
}

func (g *Generator) sample(ctx context.Context, subset models.Subset, responses generation.ResponseAccessor, cells []models.QuotaCell, start, end time.Time) ([]*cellStat, error) {
	populated, err := responses.Responses(ctx, subset, cells)
	if err != nil {
		return nil, fmt.Errorf("load responses: %w", err)
	}
	start, end = periods.Date(start), periods.Date(end)

	var stats []*cellStat
	for _, pc := range populated {
		st := &cellStat{cell: pc.Cell}
		for _, r := range pc.Responses {
			d := periods.Date(r.Timestamp)
			if d.Before(start) || d.After(end) {
				continue
			}
			st.responseIDs = append(st.responseIDs, r.ID)
		}
		if st.count() > 0 {
			stats = append(stats, st)
		}
	}
	return stats, nil
}

func (g *Generator) weigh(ctx context.Context, ref generation.Reference, stats []*cellStat) (map[int]float64, error) {
	if len(stats) == 0 {
		return map[int]float64{}, nil
	}
	if len(ref.Plans) == 0 {
		return unit(stats), nil
	}

	a := &allocator{ctx: ctx, g: g, shares: make(map[int]float64, len(stats))}
	if err := a.allocate(ref.Plans, stats, 1); err != nil {
		return nil, err
	}

	var sampleSize float64
	for _, st := range stats {
		sampleSize += float64(st.count())
	}
	scale := sampleSize
	if pop, ok := totalPopulation(ref.Plans); ok {
		scale = pop
	}

	out := make(map[int]float64, len(stats))
	for _, st := range stats {
		share, ok := a.shares[st.cell.ID]
		if !ok || share <= 0 {
			continue
		}
		out[st.cell.ID] = share * scale / float64(st.count())
	}
	return out, nil
}

func unit(stats []*cellStat) map[int]float64 {
	out := make(map[int]float64, len(stats))
	for _, st := range stats {
		out[st.cell.ID] = 1
	}
	return out
}
