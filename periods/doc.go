// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package periods resolves average descriptors into calendar windows.

Everything here is a pure function of its inputs. Dates are normalized to
UTC midnight so windows compare equal regardless of the offset a request
arrived with.

# Windows

ResolveWindow answers "which dates does this report cover":

	start, end := periods.ResolveWindow(monthly, nil, &june15, earliest, latest)
	// 2019-06-01, 2019-06-30

PeriodEnd maps a response timestamp to the end date of its bucket, and
WindowEnding gives the span weights are computed over for that bucket.

# Boundaries

Weeks end on Sunday. Quarters, half-years and years follow the calendar.
*/
package periods
