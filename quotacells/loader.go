// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package quotacells

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/danielhkuo/quickly-weigh/models"
	"github.com/danielhkuo/quickly-weigh/weighting"
)

// DefaultMaxDepth is how many nested plan levels a target may sit under
// before response-level weighting is refused for it. Each level multiplies
// the number of synthetic cells a response fans out to.
const DefaultMaxDepth = 2

// RootTargetID keys the subset-wide breakdown
const RootTargetID = 0

// FieldNamePrefix starts the field name of every synthetic breakdown
const FieldNamePrefix = "ResponseLevelWeighting_"

// WeightSource returns the per-respondent weights uploaded for a target of
// a subset, or for the whole subset when targetID is RootTargetID.
// found is false when nothing is configured.
type WeightSource interface {
	ResponseWeights(ctx context.Context, subsetID string, targetID int) (weights []models.RespondentWeight, found bool, err error)
}

// Loader resolves and memoizes response-level breakdowns for one subset.
// Create one per export or request; a Loader is not safe for concurrent use.
type Loader struct {
	subsetID string
	index    *weighting.Index
	source   WeightSource
	maxDepth int
	logger   *slog.Logger
	cache    map[int]*models.ResponseWeighting
}

type Option func(*Loader)

// WithMaxDepth overrides DefaultMaxDepth. Zero turns response-level
// weighting off, root breakdown included. Negative values are ignored.
func WithMaxDepth(n int) Option {
	return func(l *Loader) {
		if n >= 0 {
			l.maxDepth = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoader creates a loader over the subset's stored scheme. index may be
// nil when the subset has no plans; only the root breakdown is then
// available.
func NewLoader(subsetID string, index *weighting.Index, source WeightSource, opts ...Option) *Loader {
	l := &Loader{
		subsetID: subsetID,
		index:    index,
		source:   source,
		maxDepth: DefaultMaxDepth,
		logger:   slog.Default(),
		cache:    make(map[int]*models.ResponseWeighting),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ForRoot returns the subset-wide breakdown, if one is configured
func (l *Loader) ForRoot(ctx context.Context) (*models.ResponseWeighting, error) {
	return l.load(ctx, RootTargetID)
}

// ForTargetRow returns the breakdown configured for a stored target
func (l *Loader) ForTargetRow(ctx context.Context, row weighting.TargetRow) (*models.ResponseWeighting, error) {
	if row.ID == 0 {
		return nil, nil
	}
	return l.load(ctx, row.ID)
}

// ForTarget returns the breakdown for a resolved target, keyed by its
// database id. Targets that were never stored have none.
func (l *Loader) ForTarget(ctx context.Context, t weighting.Target) (*models.ResponseWeighting, error) {
	if t.ID == 0 {
		return nil, nil
	}
	return l.load(ctx, t.ID)
}

func (l *Loader) load(ctx context.Context, targetID int) (*models.ResponseWeighting, error) {
	if rw, ok := l.cache[targetID]; ok {
		return rw, nil
	}

	if l.maxDepth == 0 || (targetID != RootTargetID && !l.withinDepth(targetID)) {
		l.cache[targetID] = nil
		return nil, nil
	}
	if l.source == nil {
		l.cache[targetID] = nil
		return nil, nil
	}

	weights, found, err := l.source.ResponseWeights(ctx, l.subsetID, targetID)
	if err != nil {
		l.logger.Error("failed to load response-level weights",
			"subset_id", l.subsetID,
			"target_id", targetID,
			"error", err,
		)
		return nil, fmt.Errorf("response-level weights for subset %s target %d: %w", l.subsetID, targetID, err)
	}
	if !found {
		l.cache[targetID] = nil
		return nil, nil
	}

	rw := Build(FieldName(targetID), weights)
	l.cache[targetID] = rw
	l.logger.Debug("response-level weights loaded",
		"subset_id", l.subsetID,
		"target_id", targetID,
		"respondents", len(rw.ResponseCells),
		"cells", len(rw.CellWeights),
	)
	return rw, nil
}

func (l *Loader) withinDepth(targetID int) bool {
	if l.index == nil {
		return false
	}
	if _, ok := l.index.Target(targetID); !ok {
		return false
	}
	return l.index.AncestorLevels(targetID, l.maxDepth) < l.maxDepth
}

// FieldName names the synthetic variable of a target's breakdown
func FieldName(targetID int) string {
	if targetID == RootTargetID {
		return FieldNamePrefix + "Root"
	}
	return FieldNamePrefix + strconv.Itoa(targetID)
}

// Build groups respondents by weight. Each distinct weight, in ascending
// order, becomes a synthetic cell numbered from 1.
func Build(fieldName string, weights []models.RespondentWeight) *models.ResponseWeighting {
	// String drops trailing zeros, so 1.5 and 1.50 share a key
	byValue := make(map[string]decimal.Decimal)
	for _, w := range weights {
		byValue[w.Weight.String()] = w.Weight
	}
	distinct := make([]decimal.Decimal, 0, len(byValue))
	for _, d := range byValue {
		distinct = append(distinct, d)
	}
	sort.Slice(distinct, func(i, j int) bool { return distinct[i].LessThan(distinct[j]) })

	rw := &models.ResponseWeighting{
		FieldName:     fieldName,
		ResponseCells: make(map[int]int, len(weights)),
		CellWeights:   make(map[int]decimal.Decimal, len(distinct)),
	}
	cellOf := make(map[string]int, len(distinct))
	for i, d := range distinct {
		rw.CellWeights[i+1] = d
		cellOf[d.String()] = i + 1
	}
	for _, w := range weights {
		rw.ResponseCells[w.ResponseID] = cellOf[w.Weight.String()]
	}
	return rw
}
