// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package generation

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/danielhkuo/quickly-weigh/averages"
	"github.com/danielhkuo/quickly-weigh/models"
	"github.com/danielhkuo/quickly-weigh/weighting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(m time.Month, d int) time.Time {
	return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC)
}

func intPtr(v int) *int { return &v }

type fakeStore struct {
	subsets   []models.Subset
	cells     models.SubsetCells
	responses map[int][]models.Response
	reasons   []models.AllocationReason
	cellsErr  error
}

func (f *fakeStore) Subset(_ context.Context, id string) (models.Subset, error) {
	for _, s := range f.subsets {
		if s.ID == id {
			return s, nil
		}
	}
	return models.Subset{}, models.ErrSubsetNotFound
}

func (f *fakeStore) Subsets(context.Context) ([]models.Subset, error) {
	return f.subsets, nil
}

func (f *fakeStore) WeightingPlans(context.Context, string) (weighting.Config, error) {
	return weighting.Config{}, nil
}

func (f *fakeStore) QuotaCells(context.Context, models.Subset) (models.SubsetCells, error) {
	return f.cells, f.cellsErr
}

func (f *fakeStore) Responses(_ context.Context, _ models.Subset, cells []models.QuotaCell) ([]models.PopulatedCell, error) {
	var out []models.PopulatedCell
	for _, c := range cells {
		if rs := f.responses[c.ID]; len(rs) > 0 {
			out = append(out, models.PopulatedCell{Cell: c, Responses: rs})
		}
	}
	return out, nil
}

func (f *fakeStore) AllocationReasons(context.Context, models.Subset, models.Response) ([]models.AllocationReason, error) {
	return f.reasons, nil
}

// fakeGenerator returns weights[cellID] for the cells it is given, keyed
// optionally by period end
type fakeGenerator struct {
	mu       sync.Mutex
	weights  map[int]float64
	byPeriod map[time.Time]map[int]float64
	err      error
	windows  int
	ends     []time.Time
	groups   [][]int
}

func (g *fakeGenerator) record(cells []models.QuotaCell) {
	ids := make([]int, len(cells))
	for i, c := range cells {
		ids[i] = c.ID
	}
	g.groups = append(g.groups, ids)
}

func (g *fakeGenerator) GenerateForWindow(_ context.Context, _ models.Subset, _ ResponseAccessor, _ Reference, cells []models.QuotaCell, _, _ time.Time) (map[int]float64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.windows++
	g.record(cells)
	if g.err != nil {
		return nil, g.err
	}
	out := make(map[int]float64)
	for _, c := range cells {
		if w, ok := g.weights[c.ID]; ok {
			out[c.ID] = w
		}
	}
	return out, nil
}

func (g *fakeGenerator) GenerateForPeriodEnding(_ context.Context, _ models.Subset, _ ResponseAccessor, _ Reference, _ models.AverageDescriptor, cells []models.QuotaCell, end time.Time) (map[int]float64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ends = append(g.ends, end)
	g.record(cells)
	if g.err != nil {
		return nil, g.err
	}
	return g.byPeriod[end], nil
}

func waveCell(id, wave, region int) models.QuotaCell {
	return models.QuotaCell{
		ID:               id,
		WeightingGroupID: intPtr(wave),
		Parts: []models.KeyPart{
			{Key: "Wave", Value: strconv.Itoa(wave)},
			{Key: "Region", Value: strconv.Itoa(region)},
		},
	}
}

func twoWaves() *fakeStore {
	return &fakeStore{
		subsets: []models.Subset{
			{ID: "UK", Earliest: day(time.January, 1), Latest: day(time.March, 31)},
			{ID: "US", Earliest: day(time.January, 1), Latest: day(time.March, 31)},
		},
		cells: models.SubsetCells{
			Unweighted: []models.QuotaCell{{ID: 99, Unweighted: true}},
			Weighted: []models.IndependentGroup{
				{Key: "wave-1", Cells: []models.QuotaCell{waveCell(1, 1, 1), waveCell(2, 1, 2)}},
				{Key: "wave-2", Cells: []models.QuotaCell{waveCell(3, 2, 1), waveCell(4, 2, 2)}},
			},
		},
		responses: map[int][]models.Response{
			1:  {{ID: 10, Timestamp: day(time.January, 5)}, {ID: 11, Timestamp: day(time.February, 5)}},
			2:  {{ID: 20, Timestamp: day(time.January, 6)}},
			3:  {{ID: 30, Timestamp: day(time.March, 2)}},
			4:  {{ID: 40, Timestamp: day(time.March, 3)}},
			99: {{ID: 990, Timestamp: day(time.January, 7)}},
		},
		reasons: []models.AllocationReason{{Dimension: "Region", AnswerValue: intPtr(7), Reason: "not in quota"}},
	}
}

func newService(t *testing.T, store *fakeStore, gen CellWeightGenerator, opts ...Option) *Service {
	t.Helper()
	svc, err := NewService(Dependencies{
		Subsets:   store,
		Plans:     store,
		Cells:     store,
		Responses: store,
		Explainer: store,
		Generator: gen,
	}, opts...)
	require.NoError(t, err)
	return svc
}

func byResponse(weights []models.ExportedWeight) map[int]models.ExportedWeight {
	out := make(map[int]models.ExportedWeight, len(weights))
	for _, w := range weights {
		out[w.ResponseID] = w
	}
	return out
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(Dependencies{})
	require.ErrorIs(t, err, ErrMissingDependency)
	assert.Contains(t, err.Error(), "Generator")
}

func TestExportUnboundedWeighsEachGroupOnce(t *testing.T) {
	store := twoWaves()
	gen := &fakeGenerator{weights: map[int]float64{1: 0.5, 2: 2, 3: 1.25, 4: 0.8}}
	svc := newService(t, store, gen)

	weights, err := svc.Export(context.Background(), "UK", nil, nil)
	require.NoError(t, err)
	require.Len(t, weights, 6)
	assert.Equal(t, 2, gen.windows)

	// No group ever sees another group's cells
	for _, ids := range gen.groups {
		if ids[0] == 1 {
			assert.Equal(t, []int{1, 2}, ids)
		} else {
			assert.Equal(t, []int{3, 4}, ids)
		}
	}

	got := byResponse(weights)
	assert.Equal(t, 0.5, *got[10].Weight)
	assert.Equal(t, 0.5, *got[11].Weight)
	assert.Equal(t, 2.0, *got[20].Weight)
	assert.Equal(t, 1.25, *got[30].Weight)
	assert.Equal(t, []string{"Weighted", "[Wave, 1]", "[Region, 1]"}, got[10].Reasons)
	assert.Equal(t, "1", got[10].WaveID)
	assert.Equal(t, 2, *got[40].WeightingGroupID)
}

func TestExportUnweightedResponses(t *testing.T) {
	store := twoWaves()
	svc := newService(t, store, &fakeGenerator{weights: map[int]float64{}})

	weights, err := svc.Export(context.Background(), "UK", nil, nil)
	require.NoError(t, err)

	// Unweighted records come first
	first := weights[0]
	assert.Equal(t, 990, first.ResponseID)
	assert.Equal(t, 0.0, *first.Weight)
	assert.Nil(t, first.WeightingGroupID)
	assert.Equal(t, []string{"Unweighted", "[Region,7] not in quota"}, first.Reasons)
}

func TestExportMissingCellWeightIsZeroWithWarning(t *testing.T) {
	store := twoWaves()
	gen := &fakeGenerator{weights: map[int]float64{1: 0.5, 3: 1, 4: 1}}
	svc := newService(t, store, gen)

	weights, err := svc.Export(context.Background(), "UK", nil, nil)
	require.NoError(t, err)

	got := byResponse(weights)[20]
	assert.Equal(t, 0.0, *got.Weight)
	assert.Equal(t, []string{"Weighted", "[Wave, 1]", "[Region, 2]", models.ReasonNoLookup}, got.Reasons)
}

func TestExportBoundedMemoizesPerPeriodEnd(t *testing.T) {
	store := twoWaves()
	monthly, ok := averages.Default().Get("Monthly")
	require.True(t, ok)

	gen := &fakeGenerator{byPeriod: map[time.Time]map[int]float64{
		day(time.January, 31):  {1: 0.9, 2: 1.1},
		day(time.February, 29): {1: 1.0},
		day(time.March, 31):    {3: 1.5},
	}}
	svc := newService(t, store, gen, WithParallelism(1))

	weights, err := svc.Export(context.Background(), "UK", &monthly, nil)
	require.NoError(t, err)

	// wave-1 covers January and February, wave-2 only March
	assert.ElementsMatch(t, []time.Time{day(time.January, 31), day(time.February, 29), day(time.March, 31)}, gen.ends)

	got := byResponse(weights)
	assert.Equal(t, 0.9, *got[10].Weight)
	assert.Equal(t, 1.0, *got[11].Weight)
	assert.Equal(t, 1.1, *got[20].Weight)
	assert.Equal(t, 1.5, *got[30].Weight)
	assert.Equal(t, 0.0, *got[40].Weight)
	assert.Contains(t, got[40].Reasons, models.ReasonNoLookup)
}

func TestExportFilterExcludesMismatchedCells(t *testing.T) {
	store := twoWaves()
	gen := &fakeGenerator{weights: map[int]float64{1: 1, 2: 1, 3: 1, 4: 1}}
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	svc := newService(t, store, gen, WithLogger(logger))

	filters := []models.WeightingFilter{
		{Dimension: "Region", InstanceID: 2},
		{Dimension: "Gender", InstanceID: 1},
	}
	weights, err := svc.Export(context.Background(), "UK", nil, filters)
	require.NoError(t, err)

	got := byResponse(weights)
	assert.Contains(t, got, 20)
	assert.Contains(t, got, 40)
	assert.NotContains(t, got, 10)
	assert.NotContains(t, got, 30)
	assert.Contains(t, got, 990, "unweighted responses are not filtered")
	assert.Contains(t, buf.String(), "filter dimension not in quota cell")
}

func TestExportGeneratorFailureAbortsExport(t *testing.T) {
	store := twoWaves()
	boom := errors.New("generator exploded")
	var buf bytes.Buffer
	svc := newService(t, store, &fakeGenerator{err: boom}, WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	weights, err := svc.Export(context.Background(), "UK", nil, nil)
	require.ErrorIs(t, err, boom)
	assert.Nil(t, weights)
	assert.Contains(t, buf.String(), "subset_id=UK")
	assert.Contains(t, buf.String(), "group=wave-")
}

func TestExportUnknownSubset(t *testing.T) {
	svc := newService(t, twoWaves(), &fakeGenerator{})
	_, err := svc.Export(context.Background(), "FR", nil, nil)
	assert.ErrorIs(t, err, models.ErrSubsetNotFound)
}

func TestExportCellSourceFailure(t *testing.T) {
	store := twoWaves()
	store.cellsErr = errors.New("db down")
	svc := newService(t, store, &fakeGenerator{})
	_, err := svc.Export(context.Background(), "UK", nil, nil)
	assert.ErrorIs(t, err, store.cellsErr)
}

func TestExportSubsets(t *testing.T) {
	store := twoWaves()
	gen := &fakeGenerator{weights: map[int]float64{1: 1, 2: 1, 3: 1, 4: 1}}
	svc := newService(t, store, gen)

	all, err := svc.ExportSubsets(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Len(t, all, 12)

	one, err := svc.ExportSubsets(context.Background(), []string{"us", "nowhere"}, nil)
	require.NoError(t, err)
	require.Len(t, one, 6)
	for _, w := range one {
		assert.Equal(t, "US", w.SubsetID)
	}
}

func TestRunID(t *testing.T) {
	ctx := WithRunID(context.Background(), "run-1")
	assert.Equal(t, "run-1", RunIDFrom(ctx))
	assert.Empty(t, RunIDFrom(context.Background()))

	_, id := ensureRunID(context.Background())
	assert.NotEmpty(t, id)
}

func TestExportCancelledContext(t *testing.T) {
	store := twoWaves()
	svc := newService(t, store, &fakeGenerator{weights: map[int]float64{}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Export(ctx, "UK", nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, svc.locks.Held())
}

// gatedGenerator holds every window until release is closed and reports
// which subset/group entered it
type gatedGenerator struct {
	fakeGenerator
	entered chan string
	release chan struct{}

	gate    sync.Mutex
	active  map[string]int
	overlap bool
}

func newGatedGenerator(weights map[int]float64) *gatedGenerator {
	return &gatedGenerator{
		fakeGenerator: fakeGenerator{weights: weights},
		entered:       make(chan string, 16),
		release:       make(chan struct{}),
		active:        map[string]int{},
	}
}

func (g *gatedGenerator) GenerateForWindow(ctx context.Context, subset models.Subset, acc ResponseAccessor, ref Reference, cells []models.QuotaCell, from, to time.Time) (map[int]float64, error) {
	key := subset.ID + "/" + strconv.Itoa(*cells[0].WeightingGroupID)

	g.gate.Lock()
	g.active[key]++
	if g.active[key] > 1 {
		g.overlap = true
	}
	g.gate.Unlock()

	g.entered <- key
	<-g.release

	g.gate.Lock()
	g.active[key]--
	g.gate.Unlock()
	return g.fakeGenerator.GenerateForWindow(ctx, subset, acc, ref, cells, from, to)
}

func nextEntered(t *testing.T, g *gatedGenerator) string {
	t.Helper()
	select {
	case key := <-g.entered:
		return key
	case <-time.After(time.Second):
		t.Fatal("no group reached the generator")
		return ""
	}
}

func TestExportSerializesSameGroup(t *testing.T) {
	gen := newGatedGenerator(map[int]float64{1: 0.5, 2: 2, 3: 1.25, 4: 0.8})
	svc := newService(t, twoWaves(), gen)
	ctx := context.Background()

	errs := make(chan error, 2)
	export := func() {
		_, err := svc.Export(ctx, "UK", nil, nil)
		errs <- err
	}

	go export()
	assert.ElementsMatch(t, []string{"UK/1", "UK/2"}, []string{nextEntered(t, gen), nextEntered(t, gen)})

	go export()
	select {
	case key := <-gen.entered:
		t.Fatalf("%s entered while the first export held it", key)
	case <-time.After(50 * time.Millisecond):
	}

	close(gen.release)
	require.NoError(t, <-errs)
	require.NoError(t, <-errs)
	assert.False(t, gen.overlap)
	assert.Len(t, gen.groups, 4)
	assert.Zero(t, svc.locks.Held())
}

func TestExportLocksGroupsPerSubset(t *testing.T) {
	gen := newGatedGenerator(map[int]float64{1: 0.5, 2: 2, 3: 1.25, 4: 0.8})
	svc := newService(t, twoWaves(), gen, WithParallelism(1))
	ctx := context.Background()

	errs := make(chan error, 2)
	go func() {
		_, err := svc.Export(ctx, "UK", nil, nil)
		errs <- err
	}()
	require.Equal(t, "UK/1", nextEntered(t, gen))

	// US has its own group 1; UK holding group 1 must not block it
	go func() {
		_, err := svc.Export(ctx, "US", nil, nil)
		errs <- err
	}()
	require.Equal(t, "US/1", nextEntered(t, gen))

	close(gen.release)
	require.NoError(t, <-errs)
	require.NoError(t, <-errs)
	assert.False(t, gen.overlap)
}
