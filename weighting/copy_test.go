// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package weighting

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storedConfig uses the sparse ids a database hands out
func storedConfig() Config {
	return Config{
		Plans: []PlanRow{
			{ID: 40, SubsetID: "uk", VariableID: "Wave", IsGroupRoot: true},
			{ID: 41, SubsetID: "uk", VariableID: "Region", ParentTargetID: 100},
			{ID: 42, SubsetID: "uk", VariableID: "Region", ParentTargetID: 101},
			{ID: 43, SubsetID: "uk", VariableID: "Age", ParentTargetID: 101},
		},
		Targets: []TargetRow{
			{ID: 100, PlanID: 40, EntityInstanceID: 1},
			{ID: 101, PlanID: 40, EntityInstanceID: 2},
			{ID: 110, PlanID: 41, EntityInstanceID: 1, Proportion: dec("0.2"), Population: dec("200")},
			{ID: 111, PlanID: 41, EntityInstanceID: 2, Proportion: dec("0.8"), Population: dec("800")},
			{ID: 120, PlanID: 42, EntityInstanceID: 1, Proportion: dec("0.25")},
			{ID: 121, PlanID: 42, EntityInstanceID: 2, Proportion: dec("0.75")},
			{ID: 130, PlanID: 43, EntityInstanceID: 5, Proportion: dec("0.6")},
			{ID: 131, PlanID: 43, EntityInstanceID: 6, Proportion: dec("0.4")},
		},
	}
}

func TestCloneIsStructurallyIdentical(t *testing.T) {
	orig := storedConfig()
	clone, err := Clone(orig, "us")
	require.NoError(t, err)

	require.Len(t, clone.Plans, len(orig.Plans))
	require.Len(t, clone.Targets, len(orig.Targets))
	for _, p := range clone.Plans {
		assert.Equal(t, "us", p.SubsetID)
		assert.Less(t, p.ID, 40, "ids are provisional")
	}

	origTree, err := ToTree(context.Background(), orig, nil)
	require.NoError(t, err)
	cloneTree, err := ToTree(context.Background(), clone, nil)
	require.NoError(t, err)
	assert.Equal(t, ToDTO(origTree), ToDTO(cloneTree))
}

func TestFlattenReparentsDistinctVariables(t *testing.T) {
	flat, err := Flatten(storedConfig(), 999)
	require.NoError(t, err)

	var vars []string
	for _, p := range flat.Plans {
		vars = append(vars, p.VariableID)
		assert.Equal(t, 999, p.ParentTargetID)
	}
	assert.Equal(t, []string{"Wave", "Region", "Age"}, vars)

	byPlan := map[int][]TargetRow{}
	for _, tr := range flat.Targets {
		byPlan[tr.PlanID] = append(byPlan[tr.PlanID], tr)
		assert.False(t, tr.Population.Valid, "populations are dropped")
	}

	wave := byPlan[flat.Plans[0].ID]
	require.Len(t, wave, 2)
	assert.True(t, wave[0].Proportion.Decimal.Equal(dec("1").Decimal))
	assert.False(t, wave[1].Proportion.Valid)

	region := byPlan[flat.Plans[1].ID]
	require.Len(t, region, 2)
	require.True(t, region[0].Proportion.Valid)
	assert.True(t, region[0].Proportion.Decimal.Equal(dec("1").Decimal), "stored 0.2 is replaced by 1")
	assert.False(t, region[1].Proportion.Valid)

	age := byPlan[flat.Plans[2].ID]
	require.Len(t, age, 2)
	assert.Equal(t, 5, age[0].EntityInstanceID)
	assert.True(t, age[0].Proportion.Decimal.Equal(dec("1").Decimal))
	assert.False(t, age[1].Proportion.Valid)
}

func TestFlattenEmpty(t *testing.T) {
	flat, err := Flatten(Config{}, 3)
	require.NoError(t, err)
	assert.True(t, flat.Empty())
}
