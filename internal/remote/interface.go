// Copyright (c) Microsoft Corporation.
// Licensed under the Apache License, Version 2.0.

// Package remote fetches byte ranges of a named blob from the configured
// object store origin. It is the sole data source a downloader consults
// when it wins election on an EMPTY or PARTIALLY_DOWNLOADED segment.
package remote

import (
	"context"
	"net/http"
)

// Fetcher provides read-only access to a remote blob.
type Fetcher interface {
	// Fstat returns the total size in bytes of the named blob.
	Fstat(ctx context.Context, name string) (int64, error)

	// Pread reads into buf the byte range [offset, offset+len(buf)) of the
	// named blob. It returns the number of bytes read, which is less than
	// len(buf) only when the origin has fewer bytes left.
	Pread(ctx context.Context, name string, offset int64, buf []byte) (int, error)
}

// Error describes an error that occurred during a remote operation.
type Error struct {
	Response *http.Response
	Err      error
}

func (e *Error) Error() string {
	if e.Response != nil {
		return e.Err.Error() + " (status " + e.Response.Status + ")"
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}
