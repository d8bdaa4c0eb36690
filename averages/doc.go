// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package averages provides the set of average descriptors a server knows.

Descriptors come from the built-in defaults or from a YAML file passed with
-averages. Lookups ignore case, so "monthly" and "Monthly" name the same
average.

# Built-in Averages

  - 14Days, 28Days: rolling day windows, weighted across all periods
  - Weekly: 7 days made up to the week end (Sunday)
  - Monthly, MonthlyOver3Months: month windows made up to the month end
  - Quarterly, HalfYearly: made up to the quarter and half-year end
  - 12Weeks, Fortnightly, MonthlyOver6Months, MonthlyOver12Months, Annual:
    present but disabled
  - CustomPeriod, CustomPeriodNotWeighted: hidden, whole subset span
*/
package averages
