// Copyright (c) Microsoft Corporation.
// Licensed under the Apache License, Version 2.0.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/mdevries/cached/internal/blobstore"
	"github.com/mdevries/cached/internal/filecache"
	filesHandler "github.com/mdevries/cached/internal/handlers/files"
	"github.com/mdevries/cached/internal/reqcontext"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var fh *filesHandler.FilesHandler
var cacheStats func() filecache.Stats

// Handler creates the HTTP server handler.
func Handler(ctx context.Context, store *blobstore.Store, stats func() filecache.Stats) http.Handler {
	fh = filesHandler.New(store)
	cacheStats = stats

	engine := newEngine(ctx)
	registerRoutes(engine, fileHandler)

	return engine
}

// newEngine creates a new gin engine.
func newEngine(ctx context.Context) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	baseLog := zerolog.Ctx(ctx)

	engine.Use(func(c *gin.Context) {
		reqcontext.FillClientID(c)
		c.Set(reqcontext.LoggerCtxKey, baseLog)

		l := reqcontext.Logger(c)
		l.Debug().Msg("request start")
		s := time.Now()

		c.Next()

		status := c.Writer.Status()
		event := l.Info()
		if status >= 400 && status < 500 {
			event = l.Warn()
		} else if status >= 500 {
			event = l.Error()
		}

		if c.Errors != nil {
			errs := []error{}
			for _, e := range c.Errors {
				errs = append(errs, e.Err)
			}
			event = event.Errs("error", errs)
		}

		event.Dur("duration", time.Since(s)).Str("method", c.Request.Method).Int("status", status).Msg("request served")
	})

	engine.Use(gin.Recovery())
	return engine
}

// registerRoutes registers the routes for the HTTP server.
func registerRoutes(engine *gin.Engine, f gin.HandlerFunc) {
	engine.HEAD("/blobs/*name", f)
	engine.GET("/blobs/*name", f)

	engine.GET("/debug/cache", debugCacheHandler)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.GET("/healthz", healthzHandler)
}

// fileHandler is a handler function for the /blobs API.
func fileHandler(c *gin.Context) {
	fh.Handle(c)
}

// debugCacheHandler reports a point-in-time snapshot of cache occupancy.
func debugCacheHandler(c *gin.Context) {
	c.JSON(http.StatusOK, cacheStats())
}

// healthzHandler reports liveness.
func healthzHandler(c *gin.Context) {
	c.Status(http.StatusOK)
}
