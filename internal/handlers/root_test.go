// Copyright (c) Microsoft Corporation.
// Licensed under the Apache License, Version 2.0.
package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mdevries/cached/internal/blobstore"
	"github.com/mdevries/cached/internal/clientid"
	"github.com/mdevries/cached/internal/filecache"
	"github.com/mdevries/cached/internal/remote"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var simpleOKHandler = gin.HandlerFunc(func(c *gin.Context) {
	c.Status(http.StatusOK)
})

func TestRegisterRoutes(t *testing.T) {
	recorder := httptest.NewRecorder()
	mc, me := gin.CreateTestContext(recorder)
	registerRoutes(me, simpleOKHandler)

	tests := []struct {
		name   string
		method string
		path   string
	}{
		{"blobs get", http.MethodGet, "/blobs/foo"},
		{"blobs head", http.MethodHead, "/blobs/foo"},
		{"healthz", http.MethodGet, "/healthz"},
		{"metrics", http.MethodGet, "/metrics"},
		{"debug cache", http.MethodGet, "/debug/cache"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cacheStats = func() filecache.Stats { return filecache.Stats{ByState: map[string]int{}} }

			req, err := http.NewRequest(tt.method, tt.path, nil)
			require.NoError(t, err)

			me.ServeHTTP(mc.Writer, req)

			require.Lessf(t, recorder.Code, 400, "%s: unexpected status code", tt.name)
		})
	}
}

func TestNewEngine(t *testing.T) {
	engine := newEngine(context.Background())
	require.NotNil(t, engine)
	require.Len(t, engine.Handlers, 2)
}

type nilFetcher struct{}

func (nilFetcher) Fstat(ctx context.Context, name string) (int64, error)           { return 0, nil }
func (nilFetcher) Pread(ctx context.Context, name string, offset int64, buf []byte) (int, error) { return 0, nil }

var _ remote.Fetcher = nilFetcher{}

func TestHandlerBuildsRoutableEngine(t *testing.T) {
	ctx := context.Background()

	c, err := filecache.NewCache(t.TempDir(), 1<<20, clientid.Static("op"), zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	store := blobstore.New(c, nilFetcher{}, 8, clientid.Static("op"), zerolog.Nop())

	h := Handler(ctx, store, func() filecache.Stats { return c.Stats() })
	require.NotNil(t, h)

	recorder := httptest.NewRecorder()
	req, err := http.NewRequest(http.MethodGet, "/healthz", nil)
	require.NoError(t, err)
	h.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)
}
