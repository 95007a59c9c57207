// Copyright (c) Microsoft Corporation.
// Licensed under the Apache License, Version 2.0.
package filecache

import (
	"io"
	"os"
	"path/filepath"
)

// segmentWriter is the append-only sink backing a single Segment's
// downloaded bytes. Unlike the teacher's item.fill, which truncates and
// writes a whole buffer in one shot, a segment is written incrementally in
// batches. Whether a close fsyncs before returning is the sync-on-write
// policy (spec.md §6's write-buffer sync tunable): durable-by-default,
// relaxable by a caller willing to trade durability for throughput.
type segmentWriter struct {
	file        *os.File
	syncOnWrite bool
}

// newSegmentWriter opens (creating if necessary) the file at path for
// append-only writes.
func newSegmentWriter(path string, syncOnWrite bool) (*segmentWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	return &segmentWriter{file: f, syncOnWrite: syncOnWrite}, nil
}

// append writes buf to the end of the file.
func (w *segmentWriter) append(buf []byte) error {
	n, err := w.file.Write(buf)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return io.ErrShortWrite
	}
	return nil
}

// close syncs the file to stable storage, if syncOnWrite is set, and closes
// it. It is safe to call on every finalization path, including SKIP_CACHE.
func (w *segmentWriter) close() error {
	var syncErr error
	if w.syncOnWrite {
		syncErr = w.file.Sync()
	}
	closeErr := w.file.Close()
	if syncErr != nil {
		return syncErr
	}
	return closeErr
}
