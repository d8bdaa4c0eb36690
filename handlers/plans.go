// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/quickly-weigh/db"
	"github.com/danielhkuo/quickly-weigh/generation"
	"github.com/danielhkuo/quickly-weigh/middleware"
	"github.com/danielhkuo/quickly-weigh/models"
	"github.com/danielhkuo/quickly-weigh/weighting"
)

type PlanHandler struct {
	store *db.Store
	svc   *generation.Service
}

func NewPlanHandler(store *db.Store, svc *generation.Service) *PlanHandler {
	return &PlanHandler{store: store, svc: svc}
}

// GetPlans handles GET /subsets/{id}/weighting-plans
// Returns the scheme as the generator sees it, with minted group ids and
// response-level breakdowns expanded.
func (h *PlanHandler) GetPlans(w http.ResponseWriter, r *http.Request) {
	subset, ok := h.subset(w, r)
	if !ok {
		return
	}

	ref, err := h.svc.Reference(r.Context(), subset)
	if errors.Is(err, weighting.ErrInvalidConfig) || errors.Is(err, weighting.ErrInvalidPlan) {
		middleware.ErrorResponse(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		slog.Error("failed to load weighting plans", "subset_id", subset.ID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	styles := ref.Classification.Style.Names()
	if styles == nil {
		styles = []string{}
	}
	middleware.JSONResponse(w, http.StatusOK, models.PlansResponse{
		SubsetID: subset.ID,
		Type:     ref.Classification.Type.String(),
		Styles:   styles,
		Plans:    weighting.ToDTO(ref.Plans),
	})
}

// SavePlans handles PUT /subsets/{id}/weighting-plans
// Replaces the subset's whole scheme. Mount behind middleware.RequireAdminKey.
func (h *PlanHandler) SavePlans(w http.ResponseWriter, r *http.Request) {
	subset, ok := h.subset(w, r)
	if !ok {
		return
	}

	var req models.SavePlansRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	cfg, err := weighting.ConfigFromDTO(req.Plans, subset.ID)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	stored, err := h.store.ReplacePlans(r.Context(), subset.ID, cfg)
	if !h.stored(w, subset.ID, err) {
		return
	}

	slog.Info("weighting plans saved", "subset_id", subset.ID, "plans", len(stored.Plans))
	middleware.JSONResponse(w, http.StatusOK, savePlansResponse(subset.ID, stored))
}

// CopyPlans handles POST /subsets/{id}/weighting-plans/copy
//
// Without flatten_under_target the source scheme replaces this subset's
// scheme. Otherwise each distinct source variable is added once under the
// given target of this subset. Mount behind middleware.RequireAdminKey.
func (h *PlanHandler) CopyPlans(w http.ResponseWriter, r *http.Request) {
	subset, ok := h.subset(w, r)
	if !ok {
		return
	}

	var req models.CopyPlansRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.FromSubsetID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "from_subset_id is required")
		return
	}

	ctx := r.Context()
	source, err := h.store.Subset(ctx, req.FromSubsetID)
	if errors.Is(err, models.ErrSubsetNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Source subset not found")
		return
	}
	if err != nil {
		slog.Error("failed to query subset", "subset_id", req.FromSubsetID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	src, err := h.store.WeightingPlans(ctx, source.ID)
	if err != nil {
		slog.Error("failed to load weighting plans", "subset_id", source.ID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if src.Empty() {
		middleware.ErrorResponse(w, http.StatusConflict, "Source subset has no weighting plans")
		return
	}

	var stored weighting.Config
	if req.FlattenUnderTarget == 0 {
		var cloned weighting.Config
		cloned, err = weighting.Clone(src, subset.ID)
		if err == nil {
			stored, err = h.store.ReplacePlans(ctx, subset.ID, cloned)
		}
	} else {
		var flat weighting.Config
		flat, err = weighting.Flatten(src, 0)
		if err == nil {
			stored, err = h.store.AddPlans(ctx, subset.ID, req.FlattenUnderTarget, flat)
		}
	}
	if !h.stored(w, subset.ID, err) {
		return
	}

	slog.Info("weighting plans copied",
		"subset_id", subset.ID,
		"from", source.ID,
		"flatten_under_target", req.FlattenUnderTarget,
	)
	middleware.JSONResponse(w, http.StatusOK, savePlansResponse(subset.ID, stored))
}

// subset loads the {id} path subset, writing 404 when it does not exist
func (h *PlanHandler) subset(w http.ResponseWriter, r *http.Request) (models.Subset, bool) {
	subsetID := r.PathValue("id")
	if subsetID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "subset_id is required")
		return models.Subset{}, false
	}

	subset, err := h.store.Subset(r.Context(), subsetID)
	if errors.Is(err, models.ErrSubsetNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Subset not found")
		return models.Subset{}, false
	}
	if err != nil {
		slog.Error("failed to query subset", "subset_id", subsetID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return models.Subset{}, false
	}
	return subset, true
}

func (h *PlanHandler) stored(w http.ResponseWriter, subsetID string, err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, weighting.ErrInvalidConfig), errors.Is(err, weighting.ErrInvalidPlan):
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("failed to store weighting plans", "subset_id", subsetID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to save weighting plans")
	}
	return false
}

func savePlansResponse(subsetID string, cfg weighting.Config) models.SavePlansResponse {
	return models.SavePlansResponse{
		SubsetID:    subsetID,
		PlanCount:   len(cfg.Plans),
		TargetCount: len(cfg.Targets),
	}
}
