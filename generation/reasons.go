// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package generation

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/danielhkuo/quickly-weigh/models"
)

func weightedRecord(subsetID string, groupID *int, cell models.QuotaCell, r models.Response, weight float64, found bool) models.ExportedWeight {
	reasons := cellReasons(cell)
	if !found {
		weight = 0
		reasons = append(reasons, models.ReasonNoLookup)
	}
	return models.NewExportedWeight(subsetID, groupID, waveID(groupID, cell), r.ID, &weight, r.Timestamp, reasons)
}

// cellReasons lists "Weighted" then each part as "[key, value]", in stored
// order
func cellReasons(cell models.QuotaCell) []string {
	reasons := make([]string, 0, len(cell.Parts)+2)
	reasons = append(reasons, models.ReasonWeighted)
	for _, p := range cell.Parts {
		reasons = append(reasons, "["+p.Key+", "+p.Value+"]")
	}
	return reasons
}

// waveID is the value of the cell's first part when the cell belongs to a
// weighting group
func waveID(groupID *int, cell models.QuotaCell) string {
	if groupID == nil || len(cell.Parts) == 0 {
		return ""
	}
	return cell.Parts[0].Value
}

func (s *Service) unweightedReasons(ctx context.Context, subset models.Subset, r models.Response) ([]string, error) {
	explained, err := s.deps.Explainer.AllocationReasons(ctx, subset, r)
	if err != nil {
		return nil, err
	}
	reasons := make([]string, 0, len(explained)+1)
	reasons = append(reasons, models.ReasonUnweighted)
	for _, reason := range explained {
		reasons = append(reasons, reason.String())
	}
	return reasons, nil
}

// filterCells drops cells whose value for a filtered dimension differs
// from the requested instance. A dimension the cell lacks is ignored.
func (s *Service) filterCells(log *slog.Logger, populated []models.PopulatedCell, filters []models.WeightingFilter) []models.PopulatedCell {
	if len(filters) == 0 {
		return populated
	}
	out := populated[:0:0]
	for _, pc := range populated {
		if included(log, pc.Cell, filters) {
			out = append(out, pc)
		}
	}
	return out
}

func included(log *slog.Logger, cell models.QuotaCell, filters []models.WeightingFilter) bool {
	for _, f := range filters {
		value, ok := cell.Part(f.Dimension)
		if !ok {
			log.Warn("filter dimension not in quota cell, ignoring",
				"dimension", f.Dimension,
				"cell_id", cell.ID,
			)
			continue
		}
		if value != strconv.Itoa(f.InstanceID) {
			return false
		}
	}
	return true
}
