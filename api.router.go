package main

import (
	"fmt"
	"net/http"
	"net/http/pprof"

	_ "github.com/jeamon/books-catalog/docs"
	"github.com/julienschmidt/httprouter"
	httpswagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

// MiddlewareMap contains middlwares chain to
// use for public-facing and ops requests.
type MiddlewareMap struct {
	public func(httprouter.Handle) httprouter.Handle
	ops    func(httprouter.Handle) httprouter.Handle
}

// SetupRoutes enforces the api routes.
func (api *APIHandler) SetupRoutes(router *httprouter.Router, m *MiddlewareMap, view *CatalogView) *httprouter.Router {
	router.RedirectTrailingSlash = true
	router.HandleOPTIONS = true
	router.GlobalOPTIONS = http.HandlerFunc(api.PreflightHandler)
	router.NotFound = http.HandlerFunc(api.NotFound)

	router.GET("/", m.public(api.Index))
	router.GET("/status", m.public(api.Status))
	router.GET("/swagger/*any", m.public(api.OpsHandlerWrapper(httpswagger.WrapHandler)))

	api.SetupBookRoutes(router, m)
	if view != nil {
		api.SetupCatalogRoutes(router, m, view)
	}
	if api.config.OpsEndpointsEnable {
		api.SetupOpsRoutes(router, m)
	}
	return router
}

// SetupBookRoutes registers the books rest resource routes.
func (api *APIHandler) SetupBookRoutes(router *httprouter.Router, m *MiddlewareMap) {
	router.POST("/books", m.public(api.CreateBook))
	router.GET("/books", m.public(api.GetAllBooks))
	router.GET("/books/:id", m.public(api.GetOneBook))
	router.PUT("/books/:id", m.public(api.UpdateBook))
	router.PATCH("/books/:id", m.public(api.PatchBook))
	router.DELETE("/books/:id", m.public(api.DeleteOneBook))
}

// SetupCatalogRoutes registers the html pages of the catalog.
func (api *APIHandler) SetupCatalogRoutes(router *httprouter.Router, m *MiddlewareMap, view *CatalogView) {
	router.GET(CatalogPath, m.public(view.ListBooks))
	router.POST(CatalogPath+"/books", m.public(view.CreateBook))
	router.GET(CatalogPath+"/books/:id/edit", m.public(view.EditBookForm))
	router.POST(CatalogPath+"/books/:id/edit", m.public(view.UpdateBook))
	router.GET(CatalogPath+"/books/:id/delete", m.public(view.ConfirmDeleteBook))
	router.POST(CatalogPath+"/books/:id/delete", m.public(view.DeleteBook))
}

// SetupOpsRoutes registers the internal operations routes.
func (api *APIHandler) SetupOpsRoutes(router *httprouter.Router, m *MiddlewareMap) {
	router.GET("/ops/configs", m.ops(api.GetConfigs))
	router.GET("/ops/stats", m.ops(api.GetStatistics))
	router.GET("/ops/maintenance", m.ops(api.Maintenance))
	router.GET("/ops/debug/vars", m.ops(GetMemStats))
	router.GET("/ops/debug/gc", m.ops(api.RunGC))
	router.GET("/ops/debug/fos", m.ops(api.FreeOSMemory))

	if !api.config.ProfilerEndpointsEnable {
		return
	}
	router.GET("/ops/debug/pprof/", m.ops(api.OpsHandlerWrapper(http.HandlerFunc(pprof.Index))))
	router.GET("/ops/debug/pprof/profile", m.ops(api.OpsHandlerWrapper(http.HandlerFunc(pprof.Profile))))
	router.GET("/ops/debug/pprof/trace", m.ops(api.OpsHandlerWrapper(http.HandlerFunc(pprof.Trace))))
	router.GET("/ops/debug/pprof/symbol", m.ops(api.OpsHandlerWrapper(http.HandlerFunc(pprof.Symbol))))
	router.GET("/ops/debug/pprof/cmdline", m.ops(api.OpsHandlerWrapper(http.HandlerFunc(pprof.Cmdline))))
	for _, name := range []string{"heap", "allocs", "goroutine", "threadcreate", "block", "mutex"} {
		router.GET("/ops/debug/pprof/"+name, m.ops(api.OpsHandlerWrapper(pprof.Handler(name))))
	}
}

// NotFound answers requests for routes which do not exist.
func (api *APIHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	requestID := api.idsHandler.Generate(RequestIDPrefix)
	api.logger.Info("route not found", zap.String("request.id", requestID), zap.String("request.method", r.Method), zap.String("request.path", r.URL.Path))
	err := WriteJSON(r.Context(), w, http.StatusNotFound, map[string]string{
		"requestid": requestID,
		"message":   "route does not exist",
		"path":      fmt.Sprintf("%s %s", r.Method, r.URL.Path),
	})
	if err != nil {
		api.logger.Error("failed to send not found response", zap.String("request.id", requestID), zap.Error(err))
	}
}
