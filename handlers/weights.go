// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/danielhkuo/quickly-weigh/averages"
	"github.com/danielhkuo/quickly-weigh/generation"
	"github.com/danielhkuo/quickly-weigh/middleware"
	"github.com/danielhkuo/quickly-weigh/models"
)

type WeightsHandler struct {
	svc      *generation.Service
	averages *averages.Repository
}

func NewWeightsHandler(svc *generation.Service, avgs *averages.Repository) *WeightsHandler {
	return &WeightsHandler{svc: svc, averages: avgs}
}

// ExportSubset handles GET /subsets/{id}/weights
//
// Query parameters: average (optional; omitted weights over the whole
// subset span) and filter=dimension:instance (repeatable).
func (h *WeightsHandler) ExportSubset(w http.ResponseWriter, r *http.Request) {
	subsetID := r.PathValue("id")
	if subsetID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "subset_id is required")
		return
	}

	avg, ok := h.average(w, r)
	if !ok {
		return
	}

	var filters []models.WeightingFilter
	for _, raw := range r.URL.Query()["filter"] {
		f, err := models.ParseWeightingFilter(raw)
		if err != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
			return
		}
		filters = append(filters, f)
	}

	runID := uuid.NewString()
	ctx := generation.WithRunID(r.Context(), runID)
	w.Header().Set(middleware.RunIDHeader, runID)

	weights, err := h.svc.Export(ctx, subsetID, avg, filters)
	if errors.Is(err, models.ErrSubsetNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Subset not found")
		return
	}
	if err != nil {
		slog.Error("failed to export weights", "subset_id", subsetID, "run_id", runID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to export weights")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, exportResponse(runID, avg, weights))
}

// ExportAll handles GET /weights
//
// subsets is an optional comma-separated list of subset ids; every enabled
// subset is exported when it is omitted.
func (h *WeightsHandler) ExportAll(w http.ResponseWriter, r *http.Request) {
	avg, ok := h.average(w, r)
	if !ok {
		return
	}

	var ids []string
	for _, id := range strings.Split(r.URL.Query().Get("subsets"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}

	runID := uuid.NewString()
	ctx := generation.WithRunID(r.Context(), runID)
	w.Header().Set(middleware.RunIDHeader, runID)

	weights, err := h.svc.ExportSubsets(ctx, ids, avg)
	if err != nil {
		slog.Error("failed to export weights", "subsets", ids, "run_id", runID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to export weights")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, exportResponse(runID, avg, weights))
}

// average resolves the optional average query parameter. It writes a 400
// and returns false for an unknown id.
func (h *WeightsHandler) average(w http.ResponseWriter, r *http.Request) (*models.AverageDescriptor, bool) {
	id := r.URL.Query().Get("average")
	if id == "" {
		return nil, true
	}
	desc, ok := h.averages.Get(id)
	if !ok || desc.Disabled {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Unknown average: "+id)
		return nil, false
	}
	return &desc, true
}

func exportResponse(runID string, avg *models.AverageDescriptor, weights []models.ExportedWeight) models.ExportResponse {
	resp := models.ExportResponse{
		RunID:   runID,
		Count:   len(weights),
		Weights: weights,
	}
	if avg != nil {
		resp.Average = avg.ID
	}
	if resp.Weights == nil {
		resp.Weights = []models.ExportedWeight{}
	}
	return resp
}
