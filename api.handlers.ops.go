package main

import (
	"expvar"
	"fmt"
	"net/http"
	"runtime"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// OpsHandlerWrapper adapts a standard handler to the router signature.
func (api *APIHandler) OpsHandlerWrapper(h http.Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		h.ServeHTTP(w, r)
	}
}

// Maintenance enables or disables the maintenance mode of the service.
// Enable : /ops/maintenance?status=enable&msg=message-to-be-displayed-to-users
// Disable: /ops/maintenance?status=disable
// Without a status it only shows the current mode.
func (api *APIHandler) Maintenance(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	q := r.URL.Query()
	var response map[string]interface{}

	switch q.Get("status") {
	case "enable":
		api.mode.Enable(q.Get("msg"), api.clock.Now().UTC())
		_, started := api.mode.Details()
		response = map[string]interface{}{
			"requestid":           requestID,
			"maintenance.started": started.Format(time.RFC1123),
			"maintenance.message": q.Get("msg"),
			"message":             "Maintenance mode enabled successfully.",
		}
		api.logger.Info("maintenance mode enabled", zap.String("request.id", requestID))

	case "disable":
		api.mode.Disable()
		response = map[string]interface{}{
			"requestid": requestID,
			"message":   "Maintenance mode disabled successfully.",
		}
		api.logger.Info("maintenance mode disabled", zap.String("request.id", requestID))

	default:
		message, started := api.mode.Details()
		response = map[string]interface{}{
			"requestid":           requestID,
			"maintenance.enabled": api.mode.enabled.Load(),
			"maintenance.message": message,
			"maintenance.started": formatOptionalTime(started),
		}
	}

	api.sendJSON(w, r, http.StatusOK, response)
}

func formatOptionalTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC1123)
}

// export goroutines to be used by expvar handler.
var goroutines = expvar.NewInt("goroutines")

// GetMemStats returns memory statistics with number of goroutines in json.
func GetMemStats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	goroutines.Set(int64(runtime.NumGoroutine()))
	expvar.Handler().ServeHTTP(w, r)
}

// RunGC forces the run of the garbage collector asynchronously.
func (api *APIHandler) RunGC(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	go runtime.GC()
	api.sendJSON(w, r, http.StatusOK, map[string]string{"called": "go runtime.GC()"})
}

// FreeOSMemory forces a garbage collection followed by an attempt to
// return as much memory as possible to the operating system.
func (api *APIHandler) FreeOSMemory(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	go debug.FreeOSMemory()
	api.sendJSON(w, r, http.StatusOK, map[string]string{"called": "go debug.FreeOSMemory()"})
}

// GetStatistics provides useful details about the application to the internal ops users.
// The ops request which triggered it is not counted.
func (api *APIHandler) GetStatistics(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	message, started := api.mode.Details()

	api.stats.mu.RLock()
	status := make(map[int]uint64, len(api.stats.status))
	for code, count := range api.stats.status {
		status[code] = count
	}
	api.stats.mu.RUnlock()

	called := atomic.LoadUint64(&api.stats.called)
	if called > 0 {
		called--
	}

	api.sendJSON(w, r, http.StatusOK, map[string]interface{}{
		"requestid":     requestID,
		"app.version":   api.stats.version,
		"app.container": api.stats.container,
		"app.platform":  api.stats.platform,
		"go.version":    api.stats.runtime,
		"called":        called,
		"started":       api.stats.started.Format(time.RFC1123),
		"uptime":        fmt.Sprintf("%.0f mins", api.clock.Now().Sub(api.stats.started).Minutes()),
		"maintenance": map[string]interface{}{
			"enabled": api.mode.enabled.Load(),
			"started": formatOptionalTime(started),
			"message": message,
		},
		"status": status,
	})
}

// GetConfigs serves current in-use configurations. Secrets are not exported.
func (api *APIHandler) GetConfigs(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	api.sendJSON(w, r, http.StatusOK, map[string]interface{}{"configs": api.config})
}
