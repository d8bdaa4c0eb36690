// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the Quickly Weigh API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(router.Services{
		Store:    store,
		Weights:  svc,
		Averages: avgs,
		Gatherer: reg,
	}, cfg)

# Endpoints

Health and metrics:

	GET /health
	GET /metrics - Prometheus exposition of Gatherer

Weight export (public):

	GET /weights                - Export many subsets
	GET /subsets/{id}/weights   - Export one subset

Weighting schemes (writes require X-Admin-Key):

	GET  /subsets/{id}/weighting-plans      - Scheme as the generator sees it
	PUT  /subsets/{id}/weighting-plans      - Replace the scheme
	POST /subsets/{id}/weighting-plans/copy - Copy another subset's scheme

Averages:

	GET /averages              - Visible averages
	GET /subsets/{id}/window   - Resolve an average to a date window
*/
package router
