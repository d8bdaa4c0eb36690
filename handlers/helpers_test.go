// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/quickly-weigh/averages"
	"github.com/danielhkuo/quickly-weigh/cellweights"
	"github.com/danielhkuo/quickly-weigh/cliparse"
	"github.com/danielhkuo/quickly-weigh/db"
	"github.com/danielhkuo/quickly-weigh/generation"
	"github.com/danielhkuo/quickly-weigh/testutil"
)

type testEnv struct {
	store    *db.Store
	svc      *generation.Service
	averages *averages.Repository
	cfg      cliparse.Config
}

func setupTestEnv(t *testing.T) testEnv {
	t.Helper()
	store := testutil.SetupTestStore(t)
	cfg := testutil.GetTestConfig()

	svc, err := generation.NewService(generation.Dependencies{
		Subsets:         store,
		Plans:           store,
		Cells:           store,
		Responses:       store,
		Explainer:       store,
		Generator:       cellweights.New(),
		ResponseWeights: store,
		Variables:       store,
	}, generation.WithParallelism(cfg.ExportParallelism))
	require.NoError(t, err)

	return testEnv{store: store, svc: svc, averages: averages.Default(), cfg: cfg}
}

// request builds a request with the {id} path value set
func request(method, path, subsetID string, body interface{}, headers map[string]string) *http.Request {
	req := testutil.MakeRequest(method, path, body, headers)
	if subsetID != "" {
		req.SetPathValue("id", subsetID)
	}
	return req
}
