package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/kush-rc/brain-tumor-detection/internal/domain"
)

func TestGetStats(t *testing.T) {
	repo, _, r := setupE2ERouter(t)

	repo.On("Stats", mock.Anything).Return(&domain.Stats{TotalPredictions: 7}, nil)

	req, _ := http.NewRequest("GET", "/api/v1/stats", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, float64(7), resp["total_predictions"])
}

func TestGetStats_RepoError(t *testing.T) {
	repo, _, r := setupE2ERouter(t)

	repo.On("Stats", mock.Anything).Return(nil, errors.New("connection refused"))

	req, _ := http.NewRequest("GET", "/api/v1/stats", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	// Raw driver errors never leak to the client.
	var resp map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, "internal server error", resp["error"])
}

func TestGetModelSummary(t *testing.T) {
	_, _, r := setupE2ERouter(t)

	req, _ := http.NewRequest("GET", "/api/v1/model", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetModelSummary_ModelMissing(t *testing.T) {
	r := setupE2ERouterNoModel(t)

	req, _ := http.NewRequest("GET", "/api/v1/model", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGetClasses(t *testing.T) {
	r := setupE2ERouterNoModel(t)

	// The class table is static and never needs the model on disk.
	req, _ := http.NewRequest("GET", "/api/v1/classes", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Len(t, resp["classes"], 4)
}
