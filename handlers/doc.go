// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the Quickly Weigh API.

# Handler Types

  - WeightsHandler: Weight exports for one subset or many
  - PlanHandler: Reading, replacing and copying weighting schemes
  - AveragesHandler: Average listing and window resolution

Handlers are created via constructor functions:

	weightsHandler := handlers.NewWeightsHandler(svc, avgs)
	planHandler := handlers.NewPlanHandler(store, svc)

# Weight Export

	GET /subsets/{id}/weights?average=Monthly&filter=Region:1 → ExportSubset
	GET /weights?subsets=UK,US&average=Quarterly           → ExportAll

Omitting average weights every group over the subset's whole span. Each
export gets a run id, returned in the body and the X-Run-ID header and
attached to every log line the export writes.

# Weighting Schemes

	GET  /subsets/{id}/weighting-plans      → GetPlans
	PUT  /subsets/{id}/weighting-plans      → SavePlans
	POST /subsets/{id}/weighting-plans/copy → CopyPlans

GetPlans returns the scheme as the generator sees it, with weighting
group ids and response-level breakdowns filled in. The router mounts the writes behind
middleware.RequireAdminKey for the target subset.

# Averages

	GET /averages                                      → ListAverages
	GET /subsets/{id}/window?average=&start=&end=      → GetWindow
*/
package handlers
