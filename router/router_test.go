// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/quickly-weigh/averages"
	"github.com/danielhkuo/quickly-weigh/cellweights"
	"github.com/danielhkuo/quickly-weigh/db"
	"github.com/danielhkuo/quickly-weigh/generation"
	"github.com/danielhkuo/quickly-weigh/metrics"
	"github.com/danielhkuo/quickly-weigh/testutil"
)

func setupRouter(t *testing.T) (*http.ServeMux, *db.Store) {
	t.Helper()
	store := testutil.SetupTestStore(t)
	cfg := testutil.GetTestConfig()

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	svc, err := generation.NewService(generation.Dependencies{
		Subsets:         store,
		Plans:           store,
		Cells:           store,
		Responses:       store,
		Explainer:       store,
		Generator:       cellweights.New(),
		ResponseWeights: store,
		Variables:       store,
	}, generation.WithMetrics(m))
	require.NoError(t, err)

	mux := NewRouter(Services{
		Store:    store,
		Weights:  svc,
		Averages: averages.Default(),
		Gatherer: reg,
	}, cfg)
	return mux, store
}

func TestHealthEndpoint(t *testing.T) {
	mux, _ := setupRouter(t)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	if w.Body.String() != "OK" {
		t.Errorf("Expected body 'OK', got '%s'", w.Body.String())
	}
}

func TestRootEndpoint(t *testing.T) {
	mux, _ := setupRouter(t)

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	expected := "quickly-weigh API v1"
	if w.Body.String() != expected {
		t.Errorf("Expected body '%s', got '%s'", expected, w.Body.String())
	}
}

func TestRouteExistence(t *testing.T) {
	mux, _ := setupRouter(t)

	// 400, 401, 404 are all valid responses depending on handler logic
	testCases := []struct {
		method string
		path   string
	}{
		{"GET", "/health"},
		{"GET", "/metrics"},
		{"GET", "/"},

		{"GET", "/weights"},
		{"GET", "/subsets/test-id/weights"},

		{"GET", "/subsets/test-id/weighting-plans"},
		{"PUT", "/subsets/test-id/weighting-plans"},
		{"POST", "/subsets/test-id/weighting-plans/copy"},

		{"GET", "/averages"},
		{"GET", "/subsets/test-id/window"},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			if w.Code == http.StatusMethodNotAllowed {
				t.Errorf("Route %s %s returned 405, expected route handler to exist", tc.method, tc.path)
			}
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	mux, _ := setupRouter(t)

	testCases := []struct {
		method string
		path   string
	}{
		{"POST", "/health"},                            // Only GET is defined
		{"DELETE", "/subsets/test-id/weighting-plans"}, // GET and PUT are defined
		{"POST", "/subsets/test-id/weights"},           // Only GET is defined
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			if w.Code != http.StatusMethodNotAllowed {
				t.Errorf("Expected 405 for %s %s, got %d", tc.method, tc.path, w.Code)
			}
		})
	}
}

func TestPathParameterExtraction(t *testing.T) {
	mux, store := setupRouter(t)
	cfg := testutil.GetTestConfig()
	testutil.SeedTracker(t, store, cfg.AdminKeySalt, "UK")

	t.Run("subset ID extraction", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/subsets/UK/weights?average=Monthly", nil)
		w := httptest.NewRecorder()

		mux.ServeHTTP(w, req)

		testutil.AssertStatus(t, w, http.StatusOK)
		assert.NotEmpty(t, w.Header().Get("X-Run-ID"))
	})

	t.Run("exports show up in metrics", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/metrics", nil)
		w := httptest.NewRecorder()

		mux.ServeHTTP(w, req)

		testutil.AssertStatus(t, w, http.StatusOK)
		assert.True(t, strings.Contains(w.Body.String(), `quickly_weigh_export_runs_total{outcome="success"} 1`), w.Body.String())
	})
}
