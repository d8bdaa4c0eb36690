// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danielhkuo/quickly-weigh/averages"
	"github.com/danielhkuo/quickly-weigh/cliparse"
	"github.com/danielhkuo/quickly-weigh/db"
	"github.com/danielhkuo/quickly-weigh/generation"
	"github.com/danielhkuo/quickly-weigh/handlers"
	"github.com/danielhkuo/quickly-weigh/middleware"
)

// Services are the long-lived components handlers are built from.
// Gatherer defaults to prometheus.DefaultGatherer.
type Services struct {
	Store    *db.Store
	Weights  *generation.Service
	Averages *averages.Repository
	Gatherer prometheus.Gatherer
}

func NewRouter(svc Services, cfg cliparse.Config) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	weightsHandler := handlers.NewWeightsHandler(svc.Weights, svc.Averages)
	planHandler := handlers.NewPlanHandler(svc.Store, svc.Weights)
	averagesHandler := handlers.NewAveragesHandler(svc.Store, svc.Averages)

	gatherer := svc.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// Weight export
	mux.HandleFunc("GET /weights", middleware.WithLogging(weightsHandler.ExportAll))
	mux.HandleFunc("GET /subsets/{id}/weights", middleware.WithLogging(weightsHandler.ExportSubset))

	// Weighting schemes (writes require X-Admin-Key)
	mux.HandleFunc("GET /subsets/{id}/weighting-plans", middleware.WithLogging(planHandler.GetPlans))
	mux.HandleFunc("PUT /subsets/{id}/weighting-plans", middleware.WithLogging(middleware.RequireAdminKey(cfg.AdminKeySalt, planHandler.SavePlans)))
	mux.HandleFunc("POST /subsets/{id}/weighting-plans/copy", middleware.WithLogging(middleware.RequireAdminKey(cfg.AdminKeySalt, planHandler.CopyPlans)))

	// Averages
	mux.HandleFunc("GET /averages", middleware.WithLogging(averagesHandler.ListAverages))
	mux.HandleFunc("GET /subsets/{id}/window", middleware.WithLogging(averagesHandler.GetWindow))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("quickly-weigh API v1"))
	})

	return mux
}
