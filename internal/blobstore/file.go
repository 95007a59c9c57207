// Copyright (c) Microsoft Corporation.
// Licensed under the Apache License, Version 2.0.
package blobstore

import (
	"context"
	"io"
)

// File is a randomly-readable handle on a named blob. It implements
// io.ReadSeeker so it can be passed directly to http.ServeContent.
type File struct {
	ctx   context.Context
	store *Store
	name  string
	size  int64
	cur   int64
}

var _ io.ReadSeeker = (*File)(nil)

// Fstat returns the blob's total size.
func (f *File) Fstat() int64 {
	return f.size
}

// Seek implements io.Seeker.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		f.cur = offset
	case io.SeekCurrent:
		f.cur += offset
	case io.SeekEnd:
		f.cur = f.size + offset
	}
	return f.cur, nil
}

// Read implements io.Reader.
func (f *File) Read(p []byte) (int, error) {
	n, err := f.ReadAt(p, f.cur)
	f.cur += int64(n)
	return n, err
}

// ReadAt implements io.ReaderAt, spanning as many aligned segments as
// needed to satisfy len(buf).
func (f *File) ReadAt(buf []byte, offset int64) (int, error) {
	if offset >= f.size {
		return 0, io.EOF
	}

	total := 0
	for total < len(buf) {
		pos := offset + int64(total)
		if pos >= f.size {
			return total, io.EOF
		}

		remainingInBuf := buf[total:]
		alignedEnd := ((pos / f.store.segmentBytes) + 1) * f.store.segmentBytes
		maxInSegment := alignedEnd - pos
		want := remainingInBuf
		if int64(len(want)) > maxInSegment {
			want = want[:maxInSegment]
		}

		n, err := f.store.readSegment(f.ctx, f.name, f.size, pos, want)
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, io.ErrNoProgress
		}
	}

	return total, nil
}
