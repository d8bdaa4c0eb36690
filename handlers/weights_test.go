// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/quickly-weigh/middleware"
	"github.com/danielhkuo/quickly-weigh/models"
	"github.com/danielhkuo/quickly-weigh/testutil"
)

func TestExportSubset(t *testing.T) {
	env := setupTestEnv(t)
	testutil.SeedTracker(t, env.store, env.cfg.AdminKeySalt, "UK")
	handler := NewWeightsHandler(env.svc, env.averages)

	tests := []struct {
		name           string
		subsetID       string
		query          string
		expectedStatus int
		expectedCount  int
		expectedAvg    string
	}{
		{name: "whole span", subsetID: "UK", expectedStatus: http.StatusOK, expectedCount: 13},
		{name: "monthly", subsetID: "UK", query: "?average=monthly", expectedStatus: http.StatusOK, expectedCount: 13, expectedAvg: "Monthly"},
		{name: "filtered by region", subsetID: "UK", query: "?filter=Region:1", expectedStatus: http.StatusOK, expectedCount: 9},
		{name: "filter without instance", subsetID: "UK", query: "?filter=Region", expectedStatus: http.StatusBadRequest},
		{name: "unknown average", subsetID: "UK", query: "?average=Fortnightlyish", expectedStatus: http.StatusBadRequest},
		{name: "disabled average", subsetID: "UK", query: "?average=12Weeks", expectedStatus: http.StatusBadRequest},
		{name: "unknown subset", subsetID: "FR", expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := request("GET", "/subsets/"+tt.subsetID+"/weights"+tt.query, tt.subsetID, nil, nil)
			w := httptest.NewRecorder()

			handler.ExportSubset(w, req)

			testutil.AssertStatus(t, w, tt.expectedStatus)
			if tt.expectedStatus != http.StatusOK {
				return
			}

			var resp models.ExportResponse
			testutil.AssertJSON(t, w, &resp)
			assert.NotEmpty(t, resp.RunID)
			assert.Equal(t, resp.RunID, w.Header().Get(middleware.RunIDHeader))
			assert.Equal(t, tt.expectedAvg, resp.Average)
			assert.Equal(t, tt.expectedCount, resp.Count)
			assert.Len(t, resp.Weights, tt.expectedCount)
		})
	}
}

func TestExportSubsetWeights(t *testing.T) {
	env := setupTestEnv(t)
	testutil.SeedTracker(t, env.store, env.cfg.AdminKeySalt, "UK")
	handler := NewWeightsHandler(env.svc, env.averages)

	w := httptest.NewRecorder()
	handler.ExportSubset(w, request("GET", "/subsets/UK/weights", "UK", nil, nil))
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.ExportResponse
	testutil.AssertJSON(t, w, &resp)

	for _, rec := range resp.Weights {
		require.NotNil(t, rec.Weight, "response %d", rec.ResponseID)
		switch {
		case rec.ResponseID == 900:
			assert.Equal(t, 0.0, *rec.Weight)
			assert.Equal(t, []string{models.ReasonUnweighted, "[Region,7] no quota cell for answer"}, rec.Reasons)
		case rec.ResponseID >= 300:
			assert.InDelta(t, 1.0, *rec.Weight, 1e-9)
			assert.Equal(t, "2", rec.WaveID)
		case rec.ResponseID >= 200:
			assert.InDelta(t, 2.0, *rec.Weight, 1e-9)
			assert.Equal(t, "1", rec.WaveID)
		default:
			assert.InDelta(t, 2.0/3.0, *rec.Weight, 1e-9)
			assert.Equal(t, "1", rec.WaveID)
			assert.Equal(t, []string{models.ReasonWeighted, "[Wave, 1]", "[Region, 1]"}, rec.Reasons)
		}
	}
}

func TestExportAll(t *testing.T) {
	env := setupTestEnv(t)
	testutil.SeedTracker(t, env.store, env.cfg.AdminKeySalt, "UK")
	testutil.SeedTracker(t, env.store, env.cfg.AdminKeySalt, "US")
	handler := NewWeightsHandler(env.svc, env.averages)

	tests := []struct {
		name           string
		query          string
		expectedStatus int
		expectedCount  int
	}{
		{name: "every subset", expectedStatus: http.StatusOK, expectedCount: 26},
		{name: "one subset", query: "?subsets=uk", expectedStatus: http.StatusOK, expectedCount: 13},
		{name: "unknown ids are skipped", query: "?subsets=US,%20FR", expectedStatus: http.StatusOK, expectedCount: 13},
		{name: "nothing matches", query: "?subsets=FR", expectedStatus: http.StatusOK, expectedCount: 0},
		{name: "unknown average", query: "?average=nope", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.ExportAll(w, request("GET", "/weights"+tt.query, "", nil, nil))

			testutil.AssertStatus(t, w, tt.expectedStatus)
			if tt.expectedStatus != http.StatusOK {
				return
			}

			var resp models.ExportResponse
			testutil.AssertJSON(t, w, &resp)
			assert.Equal(t, tt.expectedCount, resp.Count)
			assert.NotNil(t, resp.Weights)
		})
	}
}
