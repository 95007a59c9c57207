// Copyright (c) Microsoft Corporation.
// Licensed under the Apache License, Version 2.0.

// Package clientid supplies filecache.IDSource implementations. Identity
// resolution is kept out of the filecache package itself (spec.md §9
// "Global caller-id source" calls for this to be an injected dependency,
// not thread-local state).
package clientid

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/mdevries/cached/internal/filecache"
	"github.com/mdevries/cached/internal/reqcontext"
)

// ctxKeyType avoids collisions with other packages' context keys.
type ctxKeyType struct{}

var ctxKey ctxKeyType

// FromContext resolves the caller's id from a context.Context previously
// decorated by WithID. It is an IDSource for callers outside of gin request
// handling.
type FromContext struct{}

// WithID returns a context carrying id, retrievable by FromContext.
func WithID(ctx context.Context, id filecache.ClientID) context.Context {
	return context.WithValue(ctx, ctxKey, id)
}

// CurrentID implements filecache.IDSource.
func (FromContext) CurrentID(ctx context.Context) (filecache.ClientID, bool) {
	id, ok := ctx.Value(ctxKey).(filecache.ClientID)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// FromGinRequest resolves the caller's id assigned by
// reqcontext.FillClientID, via the gin.Context stashed in ctx by
// WithGinContext. It is the IDSource used by the HTTP handlers.
type FromGinRequest struct{}

type ginCtxKeyType struct{}

var ginCtxKey ginCtxKeyType

// WithGinContext returns a context carrying c, retrievable by
// FromGinRequest.
func WithGinContext(ctx context.Context, c *gin.Context) context.Context {
	return context.WithValue(ctx, ginCtxKey, c)
}

// CurrentID implements filecache.IDSource.
func (FromGinRequest) CurrentID(ctx context.Context) (filecache.ClientID, bool) {
	c, ok := ctx.Value(ginCtxKey).(*gin.Context)
	if !ok || c == nil {
		return "", false
	}

	id := c.GetString(reqcontext.ClientIDCtxKey)
	if id == "" {
		return "", false
	}
	return filecache.ClientID(id), true
}

// Static always resolves to the same id, regardless of context. Used by
// cmd/cachectl, which runs single-threaded on behalf of one operator.
type Static filecache.ClientID

// CurrentID implements filecache.IDSource.
func (s Static) CurrentID(ctx context.Context) (filecache.ClientID, bool) {
	if s == "" {
		return "", false
	}
	return filecache.ClientID(s), true
}
