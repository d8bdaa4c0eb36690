// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cellweights

import (
	"context"
	"math"
	"strconv"

	"github.com/danielhkuo/quickly-weigh/models"
	"github.com/danielhkuo/quickly-weigh/weighting"
)

type cellStat struct {
	cell        models.QuotaCell
	responseIDs []int
}

func (s *cellStat) count() int { return len(s.responseIDs) }

// matches reports whether the cell holds target's instance of the plan's
// dimension
func (s *cellStat) matches(variableID string, t weighting.Target) bool {
	v, ok := s.cell.Part(variableID)
	return ok && v == strconv.Itoa(t.EntityInstanceID)
}

type allocator struct {
	ctx    context.Context
	g      *Generator
	shares map[int]float64
}

func (a *allocator) allocate(plans []weighting.Plan, cells []*cellStat, mass float64) error {
	if err := a.ctx.Err(); err != nil {
		return err
	}
	if mass <= 0 || len(cells) == 0 {
		return nil
	}

	switch {
	case len(plans) == 0:
		a.bySample(cells, mass)
		return nil
	case len(plans) > 1:
		return a.rake(plans, cells, mass)
	case plans[0].IsResponseLevel():
		a.byMultiplier(plans[0].Weighting, cells, mass)
		return nil
	}

	p := plans[0]
	matched := make([][]*cellStat, len(p.Targets))
	for i, t := range p.Targets {
		for _, c := range cells {
			if c.matches(p.VariableID, t) {
				matched[i] = append(matched[i], c)
			}
		}
	}

	props := proportions(p, matched)
	for i, t := range p.Targets {
		if props[i] == 0 {
			continue
		}
		if err := a.allocate(t.Children(), matched[i], mass*props[i]); err != nil {
			return err
		}
	}
	return nil
}

// bySample splits mass in proportion to response counts
func (a *allocator) bySample(cells []*cellStat, mass float64) {
	total := sampleSize(cells)
	for _, c := range cells {
		a.shares[c.cell.ID] += mass * float64(c.count()) / total
	}
}

// byMultiplier splits mass in proportion to the sum of the respondents'
// supplied weights. Respondents without one contribute nothing.
func (a *allocator) byMultiplier(rw *models.ResponseWeighting, cells []*cellStat, mass float64) {
	sums := make([]float64, len(cells))
	var total float64
	for i, c := range cells {
		for _, id := range c.responseIDs {
			if w, ok := rw.WeightFor(id); ok {
				sums[i] += w.InexactFloat64()
			}
		}
		total += sums[i]
	}
	if total <= 0 {
		return
	}
	for i, c := range cells {
		if sums[i] > 0 {
			a.shares[c.cell.ID] += mass * sums[i] / total
		}
	}
}

// rake fits sibling plans' margins together. Only cells covered by every
// plan take part; nested structure under raked targets is not expanded.
func (a *allocator) rake(plans []weighting.Plan, cells []*cellStat, mass float64) error {
	type margin struct {
		cells  []*cellStat
		target float64
	}

	var covered []*cellStat
	for _, c := range cells {
		if coveredByAll(plans, c) {
			covered = append(covered, c)
		}
	}
	if len(covered) == 0 {
		return nil
	}

	var margins []margin
	for _, p := range plans {
		matched := make([][]*cellStat, len(p.Targets))
		for i, t := range p.Targets {
			for _, c := range covered {
				if c.matches(p.VariableID, t) {
					matched[i] = append(matched[i], c)
				}
			}
		}
		for i, prop := range proportions(p, matched) {
			if prop > 0 {
				margins = append(margins, margin{cells: matched[i], target: mass * prop})
			}
		}
	}

	total := sampleSize(covered)
	w := make(map[int]float64, len(covered))
	for _, c := range covered {
		w[c.cell.ID] = mass * float64(c.count()) / total
	}

	converged := false
	for iter := 0; iter < a.g.maxIterations && !converged; iter++ {
		if err := a.ctx.Err(); err != nil {
			return err
		}
		converged = true
		for _, m := range margins {
			var sum float64
			for _, c := range m.cells {
				sum += w[c.cell.ID]
			}
			if sum == 0 {
				continue
			}
			factor := m.target / sum
			if math.Abs(factor-1) > a.g.tolerance {
				converged = false
			}
			for _, c := range m.cells {
				w[c.cell.ID] *= factor
			}
		}
	}
	if !converged {
		a.g.logger.Warn("raking did not converge",
			"plans", len(plans),
			"cells", len(covered),
			"iterations", a.g.maxIterations,
		)
	}

	for id, v := range w {
		a.shares[id] += v
	}
	return nil
}

func coveredByAll(plans []weighting.Plan, c *cellStat) bool {
	for _, p := range plans {
		hit := false
		for _, t := range p.Targets {
			if c.matches(p.VariableID, t) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

// proportions returns each target's share of its plan, renormalized over
// targets with respondents. Explicit proportions win; otherwise population
// shares when every target has one; otherwise sample shares.
func proportions(p weighting.Plan, matched [][]*cellStat) []float64 {
	out := make([]float64, len(p.Targets))
	allPopulated := true
	for _, t := range p.Targets {
		if !t.Population.Valid {
			allPopulated = false
			break
		}
	}

	var sum float64
	for i, t := range p.Targets {
		if len(matched[i]) == 0 {
			continue
		}
		switch {
		case t.Proportion.Valid:
			out[i] = t.Proportion.Decimal.InexactFloat64()
		case allPopulated:
			out[i] = t.Population.Decimal.InexactFloat64()
		default:
			out[i] = float64(sampleSize(matched[i]))
		}
		if out[i] < 0 {
			out[i] = 0
		}
		sum += out[i]
	}
	if sum == 0 {
		return out
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// totalPopulation sums a lone root plan's target populations, when every
// target has one
func totalPopulation(plans []weighting.Plan) (float64, bool) {
	if len(plans) != 1 || len(plans[0].Targets) == 0 {
		return 0, false
	}
	var total float64
	for _, t := range plans[0].Targets {
		if !t.Population.Valid {
			return 0, false
		}
		total += t.Population.Decimal.InexactFloat64()
	}
	return total, total > 0
}

func sampleSize(cells []*cellStat) float64 {
	var n float64
	for _, c := range cells {
		n += float64(c.count())
	}
	return n
}
