package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandleHealth(t *testing.T) {
	h := NewHandler(nil, false)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)

	h.HandleHealth(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var status HealthStatus
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "adcp-sales-agent", status.Service)
}

func TestHandleResetDBPool_ForbiddenOutsideTestingMode(t *testing.T) {
	h := NewHandler(nil, false)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/reset-db-pool", nil)

	h.HandleResetDBPool(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestHandleResetDBPool_RequiresPost(t *testing.T) {
	h := NewHandler(nil, true)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/reset-db-pool", nil)

	h.HandleResetDBPool(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleDebugDBState_ForbiddenOutsideTestingMode(t *testing.T) {
	h := NewHandler(nil, false)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/debug/db-state", nil)

	h.HandleDebugDBState(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)

	var problem ProblemDetails
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, http.StatusForbidden, problem.Status)
}
