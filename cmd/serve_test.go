package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crazynala/axisprod/internal/model"
	"github.com/crazynala/axisprod/internal/risk"
)

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	return newRouter(testFakeStore(), testEvaluator(), risk.NewBuilder(0), []string{"*"})
}

func get(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestServe_Health(t *testing.T) {
	rec := get(t, testRouter(t), "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServe_ListAssemblies(t *testing.T) {
	rec := get(t, testRouter(t), "/api/assemblies")

	require.Equal(t, http.StatusOK, rec.Code)
	var assemblies []model.Assembly
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &assemblies))
	assert.Len(t, assemblies, 2)
}

func TestServe_ListAssemblies_JobFilter(t *testing.T) {
	rec := get(t, testRouter(t), "/api/assemblies?job=other-job")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `null`, rec.Body.String())
}

func TestServe_Stages(t *testing.T) {
	rec := get(t, testRouter(t), "/api/assemblies/asm-1/stages")

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Assembly model.Assembly   `json:"assembly"`
		Rows     []map[string]any `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "asm-1", body.Assembly.ID)
	require.NotEmpty(t, body.Rows)
	assert.Equal(t, "order", body.Rows[0]["key"])
}

func TestServe_Coverage(t *testing.T) {
	rec := get(t, testRouter(t), "/api/assemblies/asm-1/coverage")

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		AssemblyID string `json:"assembly_id"`
		Held       bool   `json:"held"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "asm-1", body.AssemblyID)
	assert.True(t, body.Held)
}

func TestServe_Risk(t *testing.T) {
	rec := get(t, testRouter(t), "/api/assemblies/asm-1/risk")

	require.Equal(t, http.StatusOK, rec.Code)
	var sig risk.Signals
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sig))
	assert.Equal(t, "asm-1", sig.AssemblyID)
	assert.True(t, sig.POHold)
}

func TestServe_AssemblyNotFound(t *testing.T) {
	rec := get(t, testRouter(t), "/api/assemblies/missing/stages")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "assembly not found")
}
