// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package weighting

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/quickly-weigh/models"
)

func dec(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

// waveConfig is a wave plan with a region plan nested under each wave, laid
// out in the order FromTree produces
func waveConfig() Config {
	return Config{
		Plans: []PlanRow{
			{ID: 1, SubsetID: "uk", VariableID: "Wave", IsGroupRoot: true},
			{ID: 2, SubsetID: "uk", VariableID: "Region", ParentTargetID: 1},
			{ID: 3, SubsetID: "uk", VariableID: "Region", ParentTargetID: 4},
		},
		Targets: []TargetRow{
			{ID: 1, PlanID: 1, EntityInstanceID: 1},
			{ID: 2, PlanID: 2, EntityInstanceID: 1, Proportion: dec("0.4")},
			{ID: 3, PlanID: 2, EntityInstanceID: 2, Proportion: dec("0.6")},
			{ID: 4, PlanID: 1, EntityInstanceID: 2},
			{ID: 5, PlanID: 3, EntityInstanceID: 1, Proportion: dec("0.5")},
			{ID: 6, PlanID: 3, EntityInstanceID: 2, Proportion: dec("0.5"), Population: dec("1000")},
		},
	}
}

// rimConfig has two root dimensions raked together
func rimConfig() Config {
	return Config{
		Plans: []PlanRow{
			{ID: 1, VariableID: "Age"},
			{ID: 2, VariableID: "Region"},
		},
		Targets: []TargetRow{
			{ID: 1, PlanID: 1, EntityInstanceID: 1, Proportion: dec("0.3")},
			{ID: 2, PlanID: 1, EntityInstanceID: 2, Proportion: dec("0.7")},
			{ID: 3, PlanID: 2, EntityInstanceID: 1, Proportion: dec("0.5")},
			{ID: 4, PlanID: 2, EntityInstanceID: 2, Proportion: dec("0.5")},
		},
	}
}

type fakeSource struct {
	root    *models.ResponseWeighting
	targets map[int]*models.ResponseWeighting
	err     error
	asked   []int
}

func (f *fakeSource) ForRoot(context.Context) (*models.ResponseWeighting, error) {
	return f.root, nil
}

func (f *fakeSource) ForTargetRow(_ context.Context, row TargetRow) (*models.ResponseWeighting, error) {
	f.asked = append(f.asked, row.ID)
	if f.err != nil {
		return nil, f.err
	}
	return f.targets[row.ID], nil
}

func breakdown(name string, weights ...string) *models.ResponseWeighting {
	rw := &models.ResponseWeighting{
		FieldName:     name,
		ResponseCells: map[int]int{},
		CellWeights:   map[int]decimal.Decimal{},
	}
	for i, w := range weights {
		rw.CellWeights[i+1] = decimal.RequireFromString(w)
		rw.ResponseCells[100+i] = i + 1
	}
	return rw
}

func leafGroups(plans []Plan) []int {
	var groups []int
	Walk(plans, func(p Plan, _ int) {
		for _, t := range p.Targets {
			if gid, ok := t.GroupID(); ok {
				groups = append(groups, gid)
			}
		}
	})
	return groups
}

func TestToTreeEmptyConfig(t *testing.T) {
	plans, err := ToTree(context.Background(), Config{}, nil)
	require.NoError(t, err)
	assert.Empty(t, plans)

	plans, err = ToTree(context.Background(), Config{}, &fakeSource{})
	require.NoError(t, err)
	assert.Empty(t, plans)
}

func TestToTreeWaveGroups(t *testing.T) {
	plans, err := ToTree(context.Background(), waveConfig(), nil)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	require.NoError(t, Validate(plans))

	wave := plans[0]
	assert.True(t, wave.IsGroupRoot)
	for _, target := range wave.Targets {
		_, isLeaf := target.GroupID()
		assert.False(t, isLeaf, "intermediate targets carry no group")
	}
	assert.Equal(t, []int{1, 1, 2, 2}, leafGroups(plans))
}

func TestToTreeSiblingPlansShareGroup(t *testing.T) {
	plans, err := ToTree(context.Background(), rimConfig(), nil)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, []int{1, 1, 1, 1}, leafGroups(plans))
}

func TestToTreeLonePlanGetsImplicitGroup(t *testing.T) {
	cfg := Config{
		Plans:   []PlanRow{{ID: 7, VariableID: "Gender"}},
		Targets: []TargetRow{{ID: 8, PlanID: 7, EntityInstanceID: 1}, {ID: 9, PlanID: 7, EntityInstanceID: 2}},
	}
	plans, err := ToTree(context.Background(), cfg, nil)
	require.NoError(t, err)
	require.NoError(t, Validate(plans))
	assert.Equal(t, []int{1, 1}, leafGroups(plans))
}

func TestToTreeSplicesResponseLevelTarget(t *testing.T) {
	src := &fakeSource{targets: map[int]*models.ResponseWeighting{
		5: breakdown("uploaded", "0.5", "1.5"),
	}}

	plans, err := ToTree(context.Background(), waveConfig(), src)
	require.NoError(t, err)
	require.NoError(t, Validate(plans))

	wave2Region := plans[0].Targets[1].Shape.(Nested).Plans[0]
	rl, ok := wave2Region.Targets[0].Shape.(ResponseLevel)
	require.True(t, ok)
	assert.Equal(t, "uploaded", rl.Plan.VariableID)
	require.Len(t, rl.Plan.Targets, 2)
	assert.Equal(t, 1, rl.Plan.Targets[0].EntityInstanceID)
	assert.True(t, rl.Plan.Targets[0].Proportion.Decimal.Equal(decimal.RequireFromString("0.5")))
	assert.True(t, rl.Plan.Targets[1].Proportion.Decimal.Equal(decimal.RequireFromString("1.5")))

	gid, _ := rl.Plan.Targets[0].GroupID()
	assert.Equal(t, NoGroup, gid)

	// targets with persisted children are never looked up
	assert.ElementsMatch(t, []int{2, 3, 5, 6}, src.asked)
}

func TestToTreeRootBreakdownReplacesScheme(t *testing.T) {
	src := &fakeSource{root: breakdown("subset-weights", "2")}
	plans, err := ToTree(context.Background(), waveConfig(), src)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.True(t, plans[0].IsResponseLevel())
	assert.Equal(t, "subset-weights", plans[0].VariableID)
}

func TestToTreeSourceErrorAborts(t *testing.T) {
	boom := errors.New("store unavailable")
	_, err := ToTree(context.Background(), rimConfig(), &fakeSource{err: boom})
	assert.ErrorIs(t, err, boom)
}

func TestToTreeRejectsBrokenConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing plan", Config{Targets: []TargetRow{{ID: 1, PlanID: 3}}}},
		{"duplicate plan", Config{Plans: []PlanRow{{ID: 1, VariableID: "a"}, {ID: 1, VariableID: "b"}}}},
		{"missing parent target", Config{Plans: []PlanRow{{ID: 1, VariableID: "a", ParentTargetID: 9}}}},
		{"zero id", Config{Plans: []PlanRow{{VariableID: "a"}}}},
		{"cycle", Config{
			Plans:   []PlanRow{{ID: 1, VariableID: "a", ParentTargetID: 1}},
			Targets: []TargetRow{{ID: 1, PlanID: 1}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ToTree(context.Background(), tt.cfg, nil)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestRoundTripFlatTreeFlat(t *testing.T) {
	for name, cfg := range map[string]Config{"wave": waveConfig(), "rim": rimConfig()} {
		t.Run(name, func(t *testing.T) {
			plans, err := ToTree(context.Background(), cfg, nil)
			require.NoError(t, err)
			assert.Equal(t, cfg, FromTree(plans, cfg.Plans[0].SubsetID))
		})
	}
}

func TestFromTreeSkipsResponseLevel(t *testing.T) {
	src := &fakeSource{targets: map[int]*models.ResponseWeighting{2: breakdown("uploaded", "1")}}
	plans, err := ToTree(context.Background(), waveConfig(), src)
	require.NoError(t, err)

	cfg := FromTree(plans, "uk")
	assert.Len(t, cfg.Plans, 3)
	assert.Len(t, cfg.Targets, 6)
	for _, p := range cfg.Plans {
		assert.NotEqual(t, "uploaded", p.VariableID)
	}
}

func TestParentPlanOfTarget(t *testing.T) {
	idx, err := NewIndex(waveConfig())
	require.NoError(t, err)

	p, ok := idx.ParentPlanOfTarget(5)
	require.True(t, ok)
	assert.Equal(t, 3, p.ID)
	_, ok = idx.ParentPlanOfTarget(42)
	assert.False(t, ok)

	assert.Equal(t, 0, idx.AncestorLevels(1, 2))
	assert.Equal(t, 1, idx.AncestorLevels(5, 2))
}

func TestValidateCatchesMissingGroup(t *testing.T) {
	plans := []Plan{{VariableID: "Gender", Targets: []Target{{EntityInstanceID: 1, Shape: Leaf{}}}}}
	assert.ErrorIs(t, Validate(plans), ErrInvalidPlan)

	plans[0].Targets[0].Shape = nil
	assert.ErrorIs(t, Validate(plans), ErrInvalidPlan)
}
