// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types shared by the
weighting engine and the API.

# Average Descriptors

AverageDescriptor names a rule for bucketing responses over calendar
time. Its enums marshal to their names in JSON and YAML:

  - TotalisationUnit: Day, Month, All
  - WeightingMethod: None, QuotaCell
  - WeightAcross: SinglePeriod, AllPeriods
  - MakeUpTo: Day, WeekEnd, MonthEnd, QuarterEnd, HalfYearEnd, CalendarYearEnd

# Domain Types

  - Subset: a slice of survey responses with its date span
  - QuotaCell: ordered dimension key/value parts plus group membership
  - SubsetCells: unweighted cells and independently weighted groups
  - Response, PopulatedCell: responses allocated to a cell
  - ResponseWeighting: externally supplied per-respondent weights
  - AllocationReason: why a response landed in no weighted cell
  - ExportedWeight: one output record per (subset, response)

# Request and Response Types

  - PlanDTO, TargetDTO: nested weighting scheme
  - SavePlansRequest, CopyPlansRequest
  - PlansResponse, SavePlansResponse, WindowResponse, ExportResponse
  - ErrorResponse: error, message

# Constants

Reason strings:

	ReasonUnweighted = "Unweighted"
	ReasonWeighted   = "Weighted"
	ReasonNoLookup   = "!No lookup found."
*/
package models
