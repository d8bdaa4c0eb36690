// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/danielhkuo/quickly-weigh/lockqueue"
	"github.com/danielhkuo/quickly-weigh/metrics"
	"github.com/danielhkuo/quickly-weigh/models"
	"github.com/danielhkuo/quickly-weigh/periods"
	"github.com/danielhkuo/quickly-weigh/quotacells"
	"github.com/danielhkuo/quickly-weigh/weighting"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DefaultParallelism is the number of independent groups weighted at once
const DefaultParallelism = 4

var ErrMissingDependency = errors.New("missing dependency")

type Service struct {
	deps        Dependencies
	logger      *slog.Logger
	locks       *lockqueue.Queue[string]
	parallelism int
	maxDepth    int
	metrics     *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLockQueue shares a lock queue between services. Without it each
// Service gets its own. Keys are "<subset>/<group id>".
func WithLockQueue(q *lockqueue.Queue[string]) Option {
	return func(s *Service) {
		if q != nil {
			s.locks = q
		}
	}
}

func WithParallelism(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.parallelism = n
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithResponseLevelMaxDepth bounds how deep response-level weights are
// looked up (see quotacells.WithMaxDepth)
func WithResponseLevelMaxDepth(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxDepth = n
		}
	}
}

func NewService(deps Dependencies, opts ...Option) (*Service, error) {
	if missing := deps.missing(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingDependency, strings.Join(missing, ", "))
	}
	s := &Service{
		deps:        deps,
		logger:      slog.Default(),
		parallelism: DefaultParallelism,
		maxDepth:    quotacells.DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.locks == nil {
		s.locks = lockqueue.New[string](lockqueue.WithWaitObserver(s.metrics.ObserveLockWait))
	}
	return s, nil
}

type runIDKey struct{}

// WithRunID tags every log line of an export started with ctx
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunIDFrom returns the run id stored by WithRunID, or ""
func RunIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

func ensureRunID(ctx context.Context) (context.Context, string) {
	if id := RunIDFrom(ctx); id != "" {
		return ctx, id
	}
	id := uuid.NewString()
	return WithRunID(ctx, id), id
}

// Export weights every response of one subset. avg nil weights each group
// over the subset's whole span.
func (s *Service) Export(ctx context.Context, subsetID string, avg *models.AverageDescriptor, filters []models.WeightingFilter) ([]models.ExportedWeight, error) {
	ctx, runID := ensureRunID(ctx)
	subset, err := s.deps.Subsets.Subset(ctx, subsetID)
	if err != nil {
		return nil, fmt.Errorf("load subset %s: %w", subsetID, err)
	}
	return s.exportSubset(ctx, runID, subset, avg, filters)
}

// ExportSubsets exports each requested subset in repository order. An
// empty list exports every subset. Unknown ids are skipped.
func (s *Service) ExportSubsets(ctx context.Context, subsetIDs []string, avg *models.AverageDescriptor) ([]models.ExportedWeight, error) {
	ctx, runID := ensureRunID(ctx)
	all, err := s.deps.Subsets.Subsets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subsets: %w", err)
	}

	want := make(map[string]bool, len(subsetIDs))
	for _, id := range subsetIDs {
		want[strings.ToLower(id)] = true
	}

	var out []models.ExportedWeight
	for _, subset := range all {
		if len(want) > 0 && !want[strings.ToLower(subset.ID)] {
			continue
		}
		weights, err := s.exportSubset(ctx, runID, subset, avg, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, weights...)
	}
	return out, nil
}

// Reference loads and classifies a subset's weighting scheme
func (s *Service) Reference(ctx context.Context, subset models.Subset) (Reference, error) {
	cfg, err := s.deps.Plans.WeightingPlans(ctx, subset.ID)
	if err != nil {
		return Reference{}, fmt.Errorf("load weighting plans for %s: %w", subset.ID, err)
	}
	idx, err := weighting.NewIndex(cfg)
	if err != nil {
		return Reference{}, fmt.Errorf("weighting plans for %s: %w", subset.ID, err)
	}

	var src weighting.ResponseLevelSource
	if s.deps.ResponseWeights != nil {
		src = quotacells.NewLoader(subset.ID, idx, s.deps.ResponseWeights,
			quotacells.WithMaxDepth(s.maxDepth),
			quotacells.WithLogger(s.logger))
	}
	plans, err := weighting.ToTreeFromIndex(ctx, idx, src)
	if err != nil {
		return Reference{}, fmt.Errorf("build weighting scheme for %s: %w", subset.ID, err)
	}

	ref := Reference{SubsetID: subset.ID, Plans: plans}
	class, err := weighting.Classify(ctx, plans, s.deps.Variables)
	if err != nil {
		// Classification is diagnostic only
		s.logger.Warn("failed to classify weighting scheme", "subset_id", subset.ID, "error", err)
		return ref, nil
	}
	ref.Classification = class
	s.logger.Debug("weighting scheme loaded",
		"subset_id", subset.ID,
		"type", class.Type.String(),
		"style", class.Style.String(),
		"plans", len(plans),
	)
	return ref, nil
}

func (s *Service) exportSubset(ctx context.Context, runID string, subset models.Subset, avg *models.AverageDescriptor, filters []models.WeightingFilter) (out []models.ExportedWeight, err error) {
	started := time.Now()
	log := s.logger.With("run_id", runID, "subset_id", subset.ID)
	defer func() { s.metrics.ObserveExport(time.Since(started), err) }()

	ref, err := s.Reference(ctx, subset)
	if err != nil {
		log.Error("failed to load weighting scheme", "error", err)
		return nil, err
	}

	cells, err := s.deps.Cells.QuotaCells(ctx, subset)
	if err != nil {
		log.Error("failed to load quota cells", "error", err)
		return nil, fmt.Errorf("quota cells for %s: %w", subset.ID, err)
	}

	unweighted, err := s.exportUnweighted(ctx, log, subset, cells.Unweighted)
	if err != nil {
		return nil, err
	}

	results := make([][]models.ExportedWeight, len(cells.Weighted))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for i, group := range cells.Weighted {
		g.Go(func() error {
			weights, err := s.exportGroup(gctx, log, subset, ref, group, avg, filters)
			results[i] = weights
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out = append(out, unweighted...)
	for _, weights := range results {
		out = append(out, weights...)
	}

	log.Info("weights exported",
		"records", humanize.Comma(int64(len(out))),
		"groups", len(cells.Weighted),
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return out, nil
}

func (s *Service) exportUnweighted(ctx context.Context, log *slog.Logger, subset models.Subset, cells []models.QuotaCell) ([]models.ExportedWeight, error) {
	if len(cells) == 0 {
		return nil, nil
	}
	populated, err := s.deps.Responses.Responses(ctx, subset, cells)
	if err != nil {
		log.Error("failed to load unweighted responses", "error", err)
		return nil, fmt.Errorf("unweighted responses for %s: %w", subset.ID, err)
	}

	var out []models.ExportedWeight
	for _, pc := range populated {
		for _, r := range pc.Responses {
			reasons, err := s.unweightedReasons(ctx, subset, r)
			if err != nil {
				log.Error("failed to explain allocation", "response_id", r.ID, "error", err)
				return nil, fmt.Errorf("explain response %d in %s: %w", r.ID, subset.ID, err)
			}
			zero := 0.0
			out = append(out, models.NewExportedWeight(subset.ID, nil, "", r.ID, &zero, r.Timestamp, reasons))
		}
	}
	s.metrics.AddWeights("unweighted", len(out))
	return out, nil
}

func (s *Service) exportGroup(ctx context.Context, log *slog.Logger, subset models.Subset, ref Reference, group models.IndependentGroup, avg *models.AverageDescriptor, filters []models.WeightingFilter) ([]models.ExportedWeight, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(group.Cells) == 0 {
		return nil, nil
	}
	log = log.With("group", group.Key)

	groupID := group.WeightingGroupID()
	if groupID != nil {
		log = log.With("weighting_group_id", *groupID)
		lock, err := s.locks.Acquire(ctx, groupLockKey(subset.ID, *groupID))
		if err != nil {
			return nil, err
		}
		defer lock.Release()
	}

	populated, err := s.deps.Responses.Responses(ctx, subset, group.Cells)
	if err != nil {
		log.Error("failed to load responses", "error", err)
		return nil, fmt.Errorf("responses for %s group %s: %w", subset.ID, group.Key, err)
	}
	populated = s.filterCells(log, populated, filters)

	var out []models.ExportedWeight
	if avg == nil {
		out, err = s.weighWindow(ctx, subset, ref, group, groupID, populated)
	} else {
		out, err = s.weighPeriods(ctx, subset, ref, group, groupID, populated, *avg)
	}
	if err != nil {
		log.Error("failed to generate weights", "error", err)
		return nil, fmt.Errorf("weights for %s group %s: %w", subset.ID, group.Key, err)
	}

	var missing int
	for _, w := range out {
		if len(w.Reasons) > 0 && w.Reasons[len(w.Reasons)-1] == models.ReasonNoLookup {
			missing++
		}
	}
	if missing > 0 {
		log.Warn("responses without a cell weight", "count", missing)
	}
	s.metrics.AddWeights("weighted", len(out)-missing)
	s.metrics.AddWeights("no_lookup", missing)
	return out, nil
}

// weighWindow makes one generator call over the subset's whole span
func (s *Service) weighWindow(ctx context.Context, subset models.Subset, ref Reference, group models.IndependentGroup, groupID *int, populated []models.PopulatedCell) ([]models.ExportedWeight, error) {
	start, end := periods.Date(subset.Earliest), periods.Date(subset.Latest)
	weights, err := s.generate("window", func() (map[int]float64, error) {
		return s.deps.Generator.GenerateForWindow(ctx, subset, s.deps.Responses, ref, group.Cells, start, end)
	})
	if err != nil {
		return nil, err
	}

	var out []models.ExportedWeight
	for _, pc := range populated {
		weight, found := weights[pc.Cell.ID]
		for _, r := range pc.Responses {
			out = append(out, weightedRecord(subset.ID, groupID, pc.Cell, r, weight, found))
		}
	}
	return out, nil
}

// weighPeriods buckets responses by period end and makes at most one
// generator call per bucket
func (s *Service) weighPeriods(ctx context.Context, subset models.Subset, ref Reference, group models.IndependentGroup, groupID *int, populated []models.PopulatedCell, avg models.AverageDescriptor) ([]models.ExportedWeight, error) {
	buckets := make(map[time.Time]map[int]float64)
	var out []models.ExportedWeight
	for _, pc := range populated {
		for _, r := range pc.Responses {
			end := periods.PeriodEnd(avg, r.Timestamp, subset.Latest)
			weights, ok := buckets[end]
			if !ok {
				var err error
				weights, err = s.generate("period", func() (map[int]float64, error) {
					return s.deps.Generator.GenerateForPeriodEnding(ctx, subset, s.deps.Responses, ref, avg, group.Cells, end)
				})
				if err != nil {
					return nil, fmt.Errorf("period ending %s: %w", end.Format(time.DateOnly), err)
				}
				buckets[end] = weights
			}
			weight, found := weights[pc.Cell.ID]
			out = append(out, weightedRecord(subset.ID, groupID, pc.Cell, r, weight, found))
		}
	}
	return out, nil
}

func (s *Service) generate(mode string, fn func() (map[int]float64, error)) (map[int]float64, error) {
	started := time.Now()
	weights, err := fn()
	s.metrics.ObserveGenerator(mode, time.Since(started), err)
	return weights, err
}

// groupLockKey names a weighting group's lock. Group ids are only unique
// within a subset.
func groupLockKey(subsetID string, groupID int) string {
	return subsetID + "/" + strconv.Itoa(groupID)
}
