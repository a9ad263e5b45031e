package main

import (
	"context"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// MiddlewareFunc is a custom type for ease of use.
type MiddlewareFunc func(httprouter.Handle) httprouter.Handle

// Middlewares is a custom type to represent a stack of
// middleware functions used to build a single chain.
type Middlewares []MiddlewareFunc

const (
	corsAllowedMethods = "POST, GET, OPTIONS, PUT, DELETE, PATCH, HEAD"
	corsAllowedHeaders = "Origin, Accept, Content-Type, Content-Length, Accept-Encoding, Accept-Language, Cache-Control"
)

// MiddlewaresStacks builds the chain used by public routes and the
// one used by ops routes. Ops routes skip the statistics and maintenance.
func (api *APIHandler) MiddlewaresStacks() (*Middlewares, *Middlewares) {
	public := &Middlewares{
		api.RequestIDMiddleware,
		api.PanicRecoveryMiddleware,
		api.RequestsCounterMiddleware,
		api.StatsMiddleware,
		api.CoreMiddleware,
		api.CORSMiddleware,
		api.MaintenanceModeMiddleware,
	}
	ops := &Middlewares{
		api.RequestIDMiddleware,
		api.PanicRecoveryMiddleware,
		api.CoreMiddleware,
	}
	return public, ops
}

// CoreMiddleware setup the duration measurement for each request and logs its result.
func (api *APIHandler) CoreMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		start := api.clock.Now()
		requestID := GetValueFromContext(r.Context(), RequestIDContextKey)

		api.logger.Info(
			"request",
			zap.String("request.id", requestID),
			zap.Uint64("request.number", GetRequestNumberFromContext(r.Context())),
			zap.String("request.method", r.Method),
			zap.String("request.path", r.URL.Path),
			zap.String("request.ip", GetRequestSourceIP(r)),
			zap.String("request.agent", r.UserAgent()),
			zap.String("request.referer", r.Referer()),
		)

		next(w, r, ps)

		fields := []zap.Field{
			zap.String("request.id", requestID),
			zap.String("request.method", r.Method),
			zap.String("request.path", r.URL.Path),
			zap.Duration("request.duration", api.clock.Now().Sub(start)),
		}
		if cw, ok := w.(*CustomResponseWriter); ok {
			fields = append(fields, zap.Int("response.status", cw.Status()), zap.Int("response.bytes", cw.Bytes()))
		}
		api.logger.Info("response", fields...)
	}
}

// RequestsCounterMiddleware increments the number of received requests statistics and add this
// new value to the request context to be used during logging as `request.number` field.
func (api *APIHandler) RequestsCounterMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx := context.WithValue(r.Context(), RequestNumberContextKey, atomic.AddUint64(&api.stats.called, 1))
		next(w, r.WithContext(ctx), ps)
	}
}

// RequestIDMiddleware adds a unique id to the request context. A valid id
// received in the X-Request-ID header is kept, so the catalog pages and the
// api calls they trigger share one id. The id is sent back in that header.
func (api *APIHandler) RequestIDMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" || !api.idsHandler.IsValid(requestID, RequestIDPrefix) {
			requestID = api.idsHandler.Generate(RequestIDPrefix)
		}
		w.Header().Set(RequestIDHeader, requestID)
		ctx := context.WithValue(r.Context(), RequestIDContextKey, requestID)
		next(w, r.WithContext(ctx), ps)
	}
}

// StatsMiddleware records the status code of each response.
func (api *APIHandler) StatsMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		cw := NewCustomResponseWriter(w, GetConnFromContext(r.Context()))
		next(cw, r, ps)
		api.stats.RecordStatus(cw.Status())
	}
}

// MaintenanceModeMiddleware answers 503 to every request while the maintenance mode is on.
func (api *APIHandler) MaintenanceModeMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if !api.mode.enabled.Load() {
			next(w, r, ps)
			return
		}
		requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
		message, started := api.mode.Details()
		w.Header().Set("Retry-After", "300")
		errResp := NewAPIError(requestID, http.StatusServiceUnavailable, "service under maintenance", map[string]string{
			"message": message,
			"started": formatOptionalTime(started),
		})
		if err := WriteErrorResponse(r.Context(), w, errResp); err != nil {
			api.logger.Error("failed to send maintenance response", zap.String("request.id", requestID), zap.Error(err))
		}
	}
}

// allowedOrigin returns the value of the Access-Control-Allow-Origin header
// for the given request origin. It is empty when the origin is not allowed.
func (api *APIHandler) allowedOrigin(origin string) string {
	origins := api.config.Server.AllowedOrigins
	if len(origins) == 0 {
		return "*"
	}
	for _, o := range origins {
		if o == "*" {
			return "*"
		}
		if origin != "" && strings.EqualFold(o, origin) {
			return origin
		}
	}
	return ""
}

// SetCORSHeaders applies the cors headers based on the configured allowed origins.
func (api *APIHandler) SetCORSHeaders(w http.ResponseWriter, r *http.Request) {
	allowed := api.allowedOrigin(r.Header.Get("Origin"))
	if allowed == "" {
		return
	}
	w.Header().Set("Access-Control-Allow-Origin", allowed)
	if allowed != "*" {
		w.Header().Add("Vary", "Origin")
	}
	w.Header().Set("Access-Control-Allow-Methods", corsAllowedMethods)
	w.Header().Set("Access-Control-Allow-Headers", corsAllowedHeaders)
}

// CORSMiddleware intercepts each incoming HTTP calls then apply cors headers on it.
func (api *APIHandler) CORSMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		api.SetCORSHeaders(w, r)
		next(w, r, ps)
	}
}

// PreflightHandler answers cors preflight requests of every route.
func (api *APIHandler) PreflightHandler(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Access-Control-Request-Method") != "" {
		api.SetCORSHeaders(w, r)
		w.Header().Set("Access-Control-Max-Age", "600")
	}
	w.WriteHeader(http.StatusNoContent)
}

// PanicRecoveryMiddleware catches any panic during the request lifecycle and produces
// an error log for further analysis. It sends a failure response to the client with 500.
func (api *APIHandler) PanicRecoveryMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		defer func() {
			if err := recover(); err != nil {
				requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
				api.logger.Error("panic occurred", zap.String("request.id", requestID), zap.Any("error", err), zap.Stack("stack"))
				errResp := NewAPIError(requestID, http.StatusInternalServerError, "failed to process the request", EmptyData)
				if err := WriteErrorResponse(r.Context(), w, errResp); err != nil {
					api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
				}
			}
		}()
		next(w, r, ps)
	}
}

// TimeoutWrapper bounds each request processing to the configured
// duration. The handler context is cancelled once it expires.
func TimeoutWrapper(h http.Handler, timeout time.Duration) http.Handler {
	return http.TimeoutHandler(h, timeout, "Timeout. Processing taking too long. Please reach out to support.")
}

// Chain wraps a given httprouter.Handle with a list of middlewares.
// It does by starting from the last middleware from the list.
func (m *Middlewares) Chain(h httprouter.Handle) httprouter.Handle {
	if len(*m) == 0 {
		return h
	}
	lg := len(*m)
	handle := (*m)[lg-1](h)

	for i := lg - 2; i >= 0; i-- {
		handle = (*m)[i](handle)
	}

	return handle
}
