// Copyright (c) Microsoft Corporation.
// Licensed under the Apache License, Version 2.0.
package handlers

import (
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/mdevries/cached/internal/blobstore"
	"github.com/mdevries/cached/internal/clientid"
	"github.com/mdevries/cached/internal/metrics"
	"github.com/mdevries/cached/internal/reqcontext"
	"github.com/gin-gonic/gin"
)

// FilesHandler serves byte ranges of blobs out of a blobstore.Store.
type FilesHandler struct {
	store *blobstore.Store
}

var _ gin.HandlerFunc = (&FilesHandler{}).Handle

// Handle handles a request for a blob.
func (h *FilesHandler) Handle(c *gin.Context) {
	name := reqcontext.BlobName(c)
	log := reqcontext.Logger(c).With().Str("blob", name).Logger()
	log.Debug().Msg("files handler start")

	start := time.Now()
	defer func() {
		dur := time.Since(start)
		metrics.Global.RecordRequest(c.Request.Method, "files", dur.Seconds())
		log.Debug().Dur("duration", dur).Msg("files handler stop")
	}()

	ctx := clientid.WithGinContext(c.Request.Context(), c)

	f, err := h.store.Open(ctx, name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		log.Error().Err(err).Msg("failed to open blob")
		//nolint:errcheck
		c.AbortWithError(http.StatusBadGateway, err)
		return
	}

	w := c.Writer
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set(reqcontext.NodeHeaderKey, reqcontext.NodeName)

	http.ServeContent(w, c.Request, name, time.Time{}, f)
}

// New creates a new files handler.
func New(store *blobstore.Store) *FilesHandler {
	return &FilesHandler{store: store}
}
