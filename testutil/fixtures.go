// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/danielhkuo/quickly-weigh/auth"
	"github.com/danielhkuo/quickly-weigh/db"
	"github.com/danielhkuo/quickly-weigh/models"
	"github.com/danielhkuo/quickly-weigh/weighting"
)

// ErrUnevenSpread means a response count does not divide evenly across
// the requested dates
var ErrUnevenSpread = errors.New("responses do not divide evenly across dates")

// SpreadResponses returns n responses numbered from firstID, spread evenly
// over dates in order. n must be a multiple of len(dates).
func SpreadResponses(firstID, n int, dates ...time.Time) ([]models.Response, error) {
	if len(dates) == 0 {
		return nil, fmt.Errorf("%w: no dates", ErrUnevenSpread)
	}
	if n < 0 || n%len(dates) != 0 {
		return nil, fmt.Errorf("%w: %d responses over %d dates", ErrUnevenSpread, n, len(dates))
	}

	per := n / len(dates)
	out := make([]models.Response, 0, n)
	for _, d := range dates {
		for i := 0; i < per; i++ {
			out = append(out, models.Response{ID: firstID + len(out), Timestamp: d})
		}
	}
	return out, nil
}

// Day returns midnight UTC
func Day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CreateTestSubset stores a subset and returns it with its admin key
func CreateTestSubset(t *testing.T, store *db.Store, salt, id string, earliest, latest time.Time) (models.Subset, string) {
	t.Helper()

	sub := models.Subset{ID: id, DisplayName: id, Earliest: earliest, Latest: latest}
	if err := store.SaveSubset(context.Background(), sub, 0); err != nil {
		t.Fatalf("Failed to create test subset: %v", err)
	}
	return sub, auth.GenerateAdminKey(id, salt)
}

// AddTestCell stores a quota cell with responses spread evenly over dates
func AddTestCell(t *testing.T, store *db.Store, subsetID, groupKey string, cell models.QuotaCell, firstResponseID, responses int, dates ...time.Time) []models.Response {
	t.Helper()

	ctx := context.Background()
	if err := store.SaveQuotaCell(ctx, subsetID, groupKey, cell); err != nil {
		t.Fatalf("Failed to create test cell: %v", err)
	}
	rs, err := SpreadResponses(firstResponseID, responses, dates...)
	if err != nil {
		t.Fatalf("Bad test fixture: %v", err)
	}
	if err := store.SaveResponses(ctx, subsetID, cell.ID, rs...); err != nil {
		t.Fatalf("Failed to create test responses: %v", err)
	}
	return rs
}

// Cell builds a quota cell from alternating key/value parts
func Cell(id int, groupID *int, parts ...string) models.QuotaCell {
	c := models.QuotaCell{ID: id, WeightingGroupID: groupID}
	for i := 0; i+1 < len(parts); i += 2 {
		c.Parts = append(c.Parts, models.KeyPart{Key: parts[i], Value: parts[i+1]})
	}
	return c
}

// Tracker is a two-wave tracker subset: a Wave group root with Region
// nested under each wave, plus one unweighted cell
type Tracker struct {
	Subset   models.Subset
	AdminKey string
	Plans    weighting.Config
}

// SeedTracker stores the Tracker fixture for subsetID.
//
// Wave 1 runs in January 2024 and wave 2 in February. Each wave has two
// regions with target proportions 0.5/0.5 and responses 3:1 (wave 1) and
// 1:1 (wave 2). Cell ids are 11, 12 (wave 1), 21, 22 (wave 2) and 99
// (unweighted).
func SeedTracker(t *testing.T, store *db.Store, salt, subsetID string) Tracker {
	t.Helper()
	ctx := context.Background()

	sub, key := CreateTestSubset(t, store, salt, subsetID, Day(2024, time.January, 1), Day(2024, time.February, 29))

	half := decimal.NewNullDecimal(decimal.RequireFromString("0.5"))
	cfg := weighting.Config{
		Plans: []weighting.PlanRow{
			{ID: 1, SubsetID: subsetID, VariableID: "Wave", IsGroupRoot: true},
			{ID: 2, SubsetID: subsetID, VariableID: "Region", ParentTargetID: 1},
			{ID: 3, SubsetID: subsetID, VariableID: "Region", ParentTargetID: 2},
		},
		Targets: []weighting.TargetRow{
			{ID: 1, PlanID: 1, EntityInstanceID: 1},
			{ID: 2, PlanID: 1, EntityInstanceID: 2},
			{ID: 3, PlanID: 2, EntityInstanceID: 1, Proportion: half},
			{ID: 4, PlanID: 2, EntityInstanceID: 2, Proportion: half},
			{ID: 5, PlanID: 3, EntityInstanceID: 1, Proportion: half},
			{ID: 6, PlanID: 3, EntityInstanceID: 2, Proportion: half},
		},
	}
	stored, err := store.ReplacePlans(ctx, subsetID, cfg)
	if err != nil {
		t.Fatalf("Failed to store test plans: %v", err)
	}

	one, two := 1, 2
	jan := []time.Time{Day(2024, time.January, 10), Day(2024, time.January, 20)}
	feb := []time.Time{Day(2024, time.February, 10), Day(2024, time.February, 20)}
	AddTestCell(t, store, subsetID, "wave-1", Cell(11, &one, "Wave", "1", "Region", "1"), 100, 6, jan...)
	AddTestCell(t, store, subsetID, "wave-1", Cell(12, &one, "Wave", "1", "Region", "2"), 200, 2, jan...)
	AddTestCell(t, store, subsetID, "wave-2", Cell(21, &two, "Wave", "2", "Region", "1"), 300, 2, feb...)
	AddTestCell(t, store, subsetID, "wave-2", Cell(22, &two, "Wave", "2", "Region", "2"), 400, 2, feb...)

	unweighted := models.QuotaCell{ID: 99, Unweighted: true}
	rs := AddTestCell(t, store, subsetID, "", unweighted, 900, 1, jan[0])
	seven := 7
	if err := store.SaveAllocationReasons(ctx, subsetID, rs[0].ID, []models.AllocationReason{
		{Dimension: "Region", AnswerValue: &seven, Reason: "no quota cell for answer"},
	}); err != nil {
		t.Fatalf("Failed to store allocation reasons: %v", err)
	}

	return Tracker{Subset: sub, AdminKey: key, Plans: stored}
}
