// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/quickly-weigh/averages"
	"github.com/danielhkuo/quickly-weigh/db"
	"github.com/danielhkuo/quickly-weigh/middleware"
	"github.com/danielhkuo/quickly-weigh/models"
	"github.com/danielhkuo/quickly-weigh/periods"
)

type AveragesHandler struct {
	store    *db.Store
	averages *averages.Repository
}

func NewAveragesHandler(store *db.Store, avgs *averages.Repository) *AveragesHandler {
	return &AveragesHandler{store: store, averages: avgs}
}

// ListAverages handles GET /averages
// Hidden and disabled averages are left out.
func (h *AveragesHandler) ListAverages(w http.ResponseWriter, r *http.Request) {
	visible := h.averages.Visible()
	if visible == nil {
		visible = []models.AverageDescriptor{}
	}
	middleware.JSONResponse(w, http.StatusOK, visible)
}

// GetWindow handles GET /subsets/{id}/window?average=&start=&end=
// Dates are YYYY-MM-DD; both are optional.
func (h *AveragesHandler) GetWindow(w http.ResponseWriter, r *http.Request) {
	subsetID := r.PathValue("id")
	q := r.URL.Query()

	id := q.Get("average")
	if id == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "average is required")
		return
	}
	desc, ok := h.averages.Get(id)
	if !ok {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Unknown average: "+id)
		return
	}

	start, err := parseDate(q.Get("start"))
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "start must be YYYY-MM-DD")
		return
	}
	end, err := parseDate(q.Get("end"))
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "end must be YYYY-MM-DD")
		return
	}
	if start != nil && end != nil && start.After(*end) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "start is after end")
		return
	}

	subset, err := h.store.Subset(r.Context(), subsetID)
	if errors.Is(err, models.ErrSubsetNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Subset not found")
		return
	}
	if err != nil {
		slog.Error("failed to query subset", "subset_id", subsetID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	from, to := periods.ResolveWindow(desc, start, end, subset.Earliest, subset.Latest)
	middleware.JSONResponse(w, http.StatusOK, models.WindowResponse{
		SubsetID: subset.ID,
		Average:  desc.ID,
		Start:    from,
		End:      to,
	})
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
