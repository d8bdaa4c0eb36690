// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package periods

import (
	"time"

	"github.com/danielhkuo/quickly-weigh/models"
)

// ResolveWindow turns an average and optional requested dates into the
// calendar window to report on. Both bounds come back as UTC midnight dates.
//
// An All-unit average always spans the whole subset. Otherwise the end
// defaults to latest and the start to the end; a non-Day boundary rule
// snaps the end forward to its period end and pulls the start back to the
// first day of the period containing the requested start (or the end).
func ResolveWindow(desc models.AverageDescriptor, reqStart, reqEnd *time.Time, earliest, latest time.Time) (start, end time.Time) {
	if desc.TotalisationUnit == models.UnitAll {
		return Date(earliest), Date(latest)
	}

	end = latest
	if reqEnd != nil {
		end = *reqEnd
	}
	start = end
	if reqStart != nil {
		start = *reqStart
	}

	if desc.MakeUpTo != models.MakeUpToDay {
		end = BoundaryOnOrAfter(desc.MakeUpTo, end)
		anchor := end
		if reqStart != nil {
			anchor = *reqStart
		}
		start = PeriodStart(desc.MakeUpTo, anchor)
	}

	return Date(start), Date(end)
}

// PeriodEnd returns the end date of the bucket a response at t belongs to.
// All-unit averages have a single bucket ending at latest.
func PeriodEnd(desc models.AverageDescriptor, t, latest time.Time) time.Time {
	switch {
	case desc.TotalisationUnit == models.UnitAll:
		return Date(latest)
	case desc.MakeUpTo != models.MakeUpToDay:
		return BoundaryOnOrAfter(desc.MakeUpTo, t)
	case desc.TotalisationUnit == models.UnitMonth:
		return EndOfMonth(t)
	default:
		return Date(t)
	}
}

// WindowEnding returns the span weights are computed over for a bucket
// ending at end. SinglePeriod averages weight within the boundary period
// alone; otherwise the window reaches back NumberOfPeriods units.
// The start never precedes earliest.
func WindowEnding(desc models.AverageDescriptor, end, earliest time.Time) (time.Time, time.Time) {
	end = Date(end)
	earliest = Date(earliest)

	var start time.Time
	switch {
	case desc.TotalisationUnit == models.UnitAll:
		start = earliest
	case desc.WeightAcross == models.SinglePeriod && desc.MakeUpTo != models.MakeUpToDay:
		start = PeriodStart(desc.MakeUpTo, end)
	case desc.TotalisationUnit == models.UnitMonth:
		start = StartOfMonth(end).AddDate(0, -(max(desc.NumberOfPeriods, 1) - 1), 0)
	default:
		start = end.AddDate(0, 0, -(max(desc.NumberOfPeriods, 1) - 1))
	}

	if start.Before(earliest) {
		start = earliest
	}
	return start, end
}
