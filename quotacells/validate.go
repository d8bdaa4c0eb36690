// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package quotacells

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/danielhkuo/quickly-weigh/models"
)

// Recommended bounds for an uploaded weight, inclusive
var (
	MinRecommendedWeight = decimal.RequireFromString("0.2")
	MaxRecommendedWeight = decimal.RequireFromString("5.0")
	// Largest relative gap allowed between the weight total and the count
	TotalTolerance = decimal.RequireFromString("0.01")
)

var ErrInvalidWeights = errors.New("invalid response weights")

// WeightReport summarizes a set of uploaded weights before they are stored
type WeightReport struct {
	Valid       []models.RespondentWeight
	Invalid     []models.RespondentWeight
	OutOfRange  []models.RespondentWeight
	Total       decimal.Decimal
	Min         decimal.NullDecimal
	Max         decimal.NullDecimal
	TotalTooFar bool
	Messages    []string
}

// OK reports whether the weights can be stored. Out-of-range weights are
// only flagged.
func (r WeightReport) OK() bool {
	return len(r.Invalid) == 0 && !r.TotalTooFar && len(r.Valid) > 0
}

// Err wraps ErrInvalidWeights with the report's messages when the weights
// cannot be stored
func (r WeightReport) Err() error {
	if r.OK() {
		return nil
	}
	if len(r.Messages) == 0 {
		return fmt.Errorf("%w: no weights supplied", ErrInvalidWeights)
	}
	return fmt.Errorf("%w: %s", ErrInvalidWeights, strings.Join(r.Messages, "; "))
}

// ValidateWeights checks uploaded weights. Negative weights are invalid;
// weights outside MinRecommendedWeight..MaxRecommendedWeight are flagged;
// the valid weights should total their count within TotalTolerance.
func ValidateWeights(weights []models.RespondentWeight) WeightReport {
	var r WeightReport
	seen := make(map[int]bool, len(weights))

	for _, w := range weights {
		if seen[w.ResponseID] {
			r.Invalid = append(r.Invalid, w)
			r.Messages = append(r.Messages, fmt.Sprintf("ResponseId %d appears more than once", w.ResponseID))
			continue
		}
		seen[w.ResponseID] = true

		if w.Weight.IsNegative() {
			r.Invalid = append(r.Invalid, w)
			r.Messages = append(r.Messages, fmt.Sprintf("Weight %s is invalid as it is less than zero", w.Weight))
			continue
		}
		if w.Weight.LessThan(MinRecommendedWeight) || w.Weight.GreaterThan(MaxRecommendedWeight) {
			r.OutOfRange = append(r.OutOfRange, w)
		}

		r.Valid = append(r.Valid, w)
		r.Total = r.Total.Add(w.Weight)
		if !r.Min.Valid || w.Weight.LessThan(r.Min.Decimal) {
			r.Min = decimal.NewNullDecimal(w.Weight)
		}
		if !r.Max.Valid || w.Weight.GreaterThan(r.Max.Decimal) {
			r.Max = decimal.NewNullDecimal(w.Weight)
		}
	}

	if len(r.OutOfRange) > 0 {
		r.Messages = append(r.Messages, fmt.Sprintf("%d weights are outside the recommended range %s to %s",
			len(r.OutOfRange), MinRecommendedWeight, MaxRecommendedWeight))
	}

	if n := len(r.Valid); n > 0 {
		count := decimal.NewFromInt(int64(n))
		gap := r.Total.Sub(count).Abs().Div(count)
		if gap.GreaterThan(TotalTolerance) {
			r.TotalTooFar = true
			r.Messages = append(r.Messages, fmt.Sprintf("Weights total %s for %d responses, a difference of more than %s%%",
				r.Total.StringFixed(2), n, TotalTolerance.Shift(2)))
		}
	}

	return r
}
