// Copyright (c) Microsoft Corporation.
// Licensed under the Apache License, Version 2.0.

// Package reqcontext carries per-request identity and logging state through
// a gin.Context.
package reqcontext

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Context keys.
const (
	ClientIDCtxKey = "client_id"
	BlobNameCtxKey = "blob_name"
	LoggerCtxKey   = "logger"
)

// Response headers.
const (
	ClientIDHeaderKey = "X-Cached-Client-Id"
	NodeHeaderKey     = "X-Cached-Node"
)

var (
	NodeName, _ = os.Hostname()
)

// FillClientID assigns this request the client identity it will use as the
// downloader id for any segment it claims (spec.md §6 "External
// Interfaces": a process-wide context exposing a non-empty id).
func FillClientID(c *gin.Context) {
	id := c.Request.Header.Get(ClientIDHeaderKey)
	if id == "" {
		id = uuid.New().String()
	}
	c.Set(ClientIDCtxKey, id)
}

// Logger gets the logger with request specific fields.
func Logger(c *gin.Context) zerolog.Logger {
	var l zerolog.Logger
	obj, ok := c.Get(LoggerCtxKey)
	if !ok {
		fmt.Println("WARN: logger not found in context")
		l = zerolog.Nop()
	} else {
		ctxLog := obj.(*zerolog.Logger)
		l = *ctxLog
	}

	return l.With().
		Str("client_id", c.GetString(ClientIDCtxKey)).
		Str("url", c.Request.URL.String()).
		Str("range", c.Request.Header.Get("Range")).
		Str("ip", c.ClientIP()).
		Logger()
}

// BlobName extracts the requested blob's name from the incoming request URL.
func BlobName(c *gin.Context) string {
	return strings.TrimPrefix(c.Param("name"), "/")
}

// RangeStartIndex returns the start index of a byte range specified in the given range header value.
// It expects the range value to be in the format "bytes=startIndex-endIndex".
func RangeStartIndex(rangeValue string) (int64, error) {
	if rangeValue == "" {
		return 0, errors.New("no range header")
	}

	// split the range value by "="
	parts := strings.Split(rangeValue, "=")
	if len(parts) != 2 || parts[0] != "bytes" {
		return 0, errors.New("invalid range format")
	}

	// split the byte range by "-"
	ranges := strings.Split(parts[1], "-")
	if len(ranges) != 2 {
		return 0, errors.New("invalid range format")
	}

	// convert the start index to an integer
	startIndex, err := strconv.Atoi(ranges[0])
	if err != nil {
		return 0, err
	}

	return int64(startIndex), nil
}
