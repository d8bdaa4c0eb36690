// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package periods

import (
	"time"

	"github.com/danielhkuo/quickly-weigh/models"
)

// Date strips time-of-day and offset, keeping the calendar date as seen in
// t's own location.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// EndOfWeek returns the Sunday on or after t
func EndOfWeek(t time.Time) time.Time {
	d := Date(t)
	return d.AddDate(0, 0, (7-int(d.Weekday()))%7)
}

// StartOfWeek returns the Monday on or before t
func StartOfWeek(t time.Time) time.Time {
	return EndOfWeek(t).AddDate(0, 0, -6)
}

func StartOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// EndOfMonth returns the last day of t's month
func EndOfMonth(t time.Time) time.Time {
	return StartOfMonth(t).AddDate(0, 1, -1)
}

func StartOfQuarter(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, ((m-1)/3)*3+1, 1, 0, 0, 0, 0, time.UTC)
}

func EndOfQuarter(t time.Time) time.Time {
	return StartOfQuarter(t).AddDate(0, 3, -1)
}

func StartOfHalfYear(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, ((m-1)/6)*6+1, 1, 0, 0, 0, 0, time.UTC)
}

func EndOfHalfYear(t time.Time) time.Time {
	return StartOfHalfYear(t).AddDate(0, 6, -1)
}

func StartOfYear(t time.Time) time.Time {
	return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
}

func EndOfYear(t time.Time) time.Time {
	return time.Date(t.Year(), time.December, 31, 0, 0, 0, 0, time.UTC)
}

// BoundaryOnOrAfter snaps t forward to the end of the period rule names.
// MakeUpToDay leaves the date unchanged.
func BoundaryOnOrAfter(rule models.MakeUpTo, t time.Time) time.Time {
	switch rule {
	case models.MakeUpToWeekEnd:
		return EndOfWeek(t)
	case models.MakeUpToMonthEnd:
		return EndOfMonth(t)
	case models.MakeUpToQuarterEnd:
		return EndOfQuarter(t)
	case models.MakeUpToHalfYearEnd:
		return EndOfHalfYear(t)
	case models.MakeUpToCalendarYearEnd:
		return EndOfYear(t)
	default:
		return Date(t)
	}
}

// PeriodStart returns the first day of the rule's period containing t
func PeriodStart(rule models.MakeUpTo, t time.Time) time.Time {
	switch rule {
	case models.MakeUpToWeekEnd:
		return StartOfWeek(t)
	case models.MakeUpToMonthEnd:
		return StartOfMonth(t)
	case models.MakeUpToQuarterEnd:
		return StartOfQuarter(t)
	case models.MakeUpToHalfYearEnd:
		return StartOfHalfYear(t)
	case models.MakeUpToCalendarYearEnd:
		return StartOfYear(t)
	default:
		return Date(t)
	}
}
