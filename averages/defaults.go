// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package averages

import "github.com/danielhkuo/quickly-weigh/models"

// Defaults returns the built-in averages, including the hidden custom-period
// pair. A fresh slice is returned on every call.
func Defaults() []models.AverageDescriptor {
	days := func(id, name string, order, n int, across models.WeightAcross, upTo models.MakeUpTo, disabled bool) models.AverageDescriptor {
		return models.AverageDescriptor{
			ID:               id,
			DisplayName:      name,
			Order:            order,
			TotalisationUnit: models.UnitDay,
			NumberOfPeriods:  n,
			WeightingMethod:  models.MethodQuotaCell,
			WeightAcross:     across,
			MakeUpTo:         upTo,
			Disabled:         disabled,
		}
	}
	months := func(id, name string, order, n int, upTo models.MakeUpTo, disabled bool) models.AverageDescriptor {
		return models.AverageDescriptor{
			ID:               id,
			DisplayName:      name,
			Order:            order,
			TotalisationUnit: models.UnitMonth,
			NumberOfPeriods:  n,
			WeightingMethod:  models.MethodQuotaCell,
			WeightAcross:     models.SinglePeriod,
			MakeUpTo:         upTo,
			Disabled:         disabled,
		}
	}

	monthly := months("Monthly", "Monthly", 200, 1, models.MakeUpToMonthEnd, false)
	monthly.IsDefault = true

	out := []models.AverageDescriptor{
		days("14Days", "14 days", 100, 14, models.AllPeriods, models.MakeUpToDay, false),
		days("28Days", "28 days", 100, 28, models.AllPeriods, models.MakeUpToDay, false),
		days("12Weeks", "12 weeks", 125, 84, models.AllPeriods, models.MakeUpToDay, true),
		days("Weekly", "Weekly", 150, 7, models.SinglePeriod, models.MakeUpToWeekEnd, false),
		days("Fortnightly", "Fortnightly", 175, 14, models.SinglePeriod, models.MakeUpToWeekEnd, true),
		monthly,
		months("MonthlyOver3Months", "Monthly (over 3 months)", 250, 3, models.MakeUpToMonthEnd, false),
		months("MonthlyOver6Months", "Monthly (over 6 months)", 255, 6, models.MakeUpToMonthEnd, true),
		months("MonthlyOver12Months", "Monthly (over 12 months)", 260, 12, models.MakeUpToMonthEnd, true),
		months("Quarterly", "Quarterly", 300, 3, models.MakeUpToQuarterEnd, false),
		months("HalfYearly", "Half yearly", 400, 6, models.MakeUpToHalfYearEnd, false),
		months("Annual", "Annual", 500, 12, models.MakeUpToCalendarYearEnd, true),
	}
	return append(out, customPeriodAverages()...)
}

// Hidden averages covering the whole subset span, weighted and unweighted
func customPeriodAverages() []models.AverageDescriptor {
	return []models.AverageDescriptor{
		{
			ID:               CustomPeriod,
			DisplayName:      "Custom Period",
			Order:            1,
			TotalisationUnit: models.UnitAll,
			NumberOfPeriods:  1,
			WeightingMethod:  models.MethodQuotaCell,
			WeightAcross:     models.AllPeriods,
			MakeUpTo:         models.MakeUpToDay,
			IsHidden:         true,
		},
		{
			ID:               CustomPeriodNotWeighted,
			DisplayName:      "Custom Period Not Weighted",
			Order:            2,
			TotalisationUnit: models.UnitAll,
			NumberOfPeriods:  1,
			WeightingMethod:  models.MethodNone,
			WeightAcross:     models.AllPeriods,
			MakeUpTo:         models.MakeUpToDay,
			IsHidden:         true,
		},
	}
}
