package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saiakshat556/farm-data-bridge/internal/handlers/testutil"
)

func TestHealthHandler(t *testing.T) {
	env := testutil.NewEnv(t)

	resp := env.Request(http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var body map[string]string
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &body)
	require.Equal(t, "ok", body["status"])
}

func TestHealthHandler_DatabaseDown(t *testing.T) {
	env := testutil.NewEnv(t)

	sqlDB, err := env.DB.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	resp := env.Request(http.MethodGet, "/health", nil, "")
	testutil.RequireError(t, resp, http.StatusServiceUnavailable, "UNAVAILABLE")
}
