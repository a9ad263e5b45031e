package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMaintenanceHandler ensures the maintenance mode can be switched on and off.
func TestMaintenanceHandler(t *testing.T) {
	api := newTestAPIHandler(nil)

	t.Run("enable", func(t *testing.T) {
		w := httptest.NewRecorder()
		api.Maintenance(w, httptest.NewRequest(http.MethodGet, "/ops/maintenance?status=enable&msg=upgrading", nil), nil)
		res := w.Result()
		defer res.Body.Close()
		assert.Equal(t, http.StatusOK, res.StatusCode)
		m := readJSONMap(t, res)
		assert.Equal(t, "Maintenance mode enabled successfully.", m["message"])
		assert.Equal(t, "upgrading", m["maintenance.message"])
		assert.Equal(t, "Sun, 02 Jul 2023 00:00:00 UTC", m["maintenance.started"])
		assert.True(t, api.mode.enabled.Load())
	})

	t.Run("show", func(t *testing.T) {
		w := httptest.NewRecorder()
		api.Maintenance(w, httptest.NewRequest(http.MethodGet, "/ops/maintenance", nil), nil)
		res := w.Result()
		defer res.Body.Close()
		m := readJSONMap(t, res)
		assert.Equal(t, true, m["maintenance.enabled"])
		assert.Equal(t, "upgrading", m["maintenance.message"])
	})

	t.Run("disable", func(t *testing.T) {
		w := httptest.NewRecorder()
		api.Maintenance(w, httptest.NewRequest(http.MethodGet, "/ops/maintenance?status=disable", nil), nil)
		res := w.Result()
		defer res.Body.Close()
		m := readJSONMap(t, res)
		assert.Equal(t, "Maintenance mode disabled successfully.", m["message"])
		assert.False(t, api.mode.enabled.Load())
		msg, started := api.mode.Details()
		assert.Empty(t, msg)
		assert.True(t, started.IsZero())
	})
}

// TestGetStatisticsHandler ensures statistics exclude the calling ops request.
func TestGetStatisticsHandler(t *testing.T) {
	api := newTestAPIHandler(nil)
	api.stats.called = 3
	api.stats.RecordStatus(http.StatusOK)
	api.stats.RecordStatus(http.StatusOK)
	api.stats.RecordStatus(http.StatusNotFound)

	w := httptest.NewRecorder()
	api.GetStatistics(w, httptest.NewRequest(http.MethodGet, "/ops/stats", nil), nil)
	res := w.Result()
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	m := readJSONMap(t, res)
	assert.Equal(t, float64(2), m["called"])
	assert.Equal(t, "0 mins", m["uptime"])
	status, ok := m["status"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(2), status["200"])
	assert.Equal(t, float64(1), status["404"])
}

// TestGetConfigsHandler ensures secrets never leave the service.
func TestGetConfigsHandler(t *testing.T) {
	api := newTestAPIHandler(nil)
	api.config.Redis.Password = "secret-password"
	api.config.Postgres.DSN = "postgres://user:secret-password@db/books"
	api.config.Server.Port = "8080"

	w := httptest.NewRecorder()
	api.GetConfigs(w, httptest.NewRequest(http.MethodGet, "/ops/configs", nil), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "secret-password")
	assert.Contains(t, w.Body.String(), "8080")
}

// TestRunGCAndFreeOSMemoryHandlers ensures both debug endpoints answer.
func TestRunGCAndFreeOSMemoryHandlers(t *testing.T) {
	api := newTestAPIHandler(nil)

	w := httptest.NewRecorder()
	api.RunGC(w, httptest.NewRequest(http.MethodGet, "/ops/debug/gc", nil), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"called":"go runtime.GC()"}`, w.Body.String())

	w = httptest.NewRecorder()
	api.FreeOSMemory(w, httptest.NewRequest(http.MethodGet, "/ops/debug/fos", nil), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"called":"go debug.FreeOSMemory()"}`, w.Body.String())

	w = httptest.NewRecorder()
	GetMemStats(w, httptest.NewRequest(http.MethodGet, "/ops/debug/vars", nil), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"goroutines"`)
}
