// Copyright (c) Microsoft Corporation.
// Licensed under the Apache License, Version 2.0.
package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/mdevries/cached/internal/blobstore"
	"github.com/mdevries/cached/internal/filecache"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// memFetcher is a remote.Fetcher backed by an in-memory blob map.
type memFetcher struct {
	blobs map[string][]byte
}

func (f memFetcher) Fstat(ctx context.Context, name string) (int64, error) {
	b, ok := f.blobs[name]
	if !ok {
		return 0, os.ErrNotExist
	}
	return int64(len(b)), nil
}

func (f memFetcher) Pread(ctx context.Context, name string, offset int64, buf []byte) (int, error) {
	b, ok := f.blobs[name]
	if !ok {
		return 0, os.ErrNotExist
	}
	if offset >= int64(len(b)) {
		return 0, io.EOF
	}
	n := copy(buf, b[offset:])
	return n, nil
}

func newTestStore(t *testing.T, data []byte) *blobstore.Store {
	c, err := filecache.NewCache(t.TempDir(), 1<<20, testIDSource{}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(c.Close)

	fetcher := memFetcher{blobs: map[string][]byte{"blob.bin": data}}
	return blobstore.New(c, fetcher, 8, testIDSource{}, zerolog.Nop())
}

type testIDSource struct{}

func (testIDSource) CurrentID(ctx context.Context) (filecache.ClientID, bool) {
	return "test-client", true
}

func TestFilesHandlerServesFullBlob(t *testing.T) {
	gin.SetMode(gin.TestMode)

	content := []byte("0123456789abcdef")
	s := newTestStore(t, content)
	h := New(s)

	req, err := http.NewRequest(http.MethodGet, "http://127.0.0.1/blobs/blob.bin", nil)
	require.NoError(t, err)

	recorder := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(recorder)
	ctx.Request = req
	ctx.Params = []gin.Param{{Key: "name", Value: "/blob.bin"}}

	h.Handle(ctx)

	resp := recorder.Result()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, content, got)
}

func TestFilesHandlerServesPartialRange(t *testing.T) {
	gin.SetMode(gin.TestMode)

	content := []byte("0123456789abcdef")
	s := newTestStore(t, content)
	h := New(s)

	req, err := http.NewRequest(http.MethodGet, "http://127.0.0.1/blobs/blob.bin", nil)
	require.NoError(t, err)
	req.Header.Set("Range", "bytes=4-9")

	recorder := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(recorder)
	ctx.Request = req
	ctx.Params = []gin.Param{{Key: "name", Value: "/blob.bin"}}

	h.Handle(ctx)

	resp := recorder.Result()
	require.Equal(t, http.StatusPartialContent, resp.StatusCode)

	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, content[4:10], got)
}
