// Copyright (c) Microsoft Corporation.
// Licensed under the Apache License, Version 2.0.

// Package blobstore exposes named remote blobs as segment-aligned,
// randomly-readable files backed by internal/filecache. It is the glue
// between the HTTP surface and the Segment state machine: grounded on the
// teacher's internal/files/store, with per-chunk ristretto lookups replaced
// by filecache.Cache.Acquire/Holder and the P2P-peer fallback removed.
package blobstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mdevries/cached/internal/cache"
	"github.com/mdevries/cached/internal/filecache"
	"github.com/mdevries/cached/internal/metrics"
	"github.com/mdevries/cached/internal/remote"
	"github.com/mdevries/cached/pkg/math"
	"github.com/rs/zerolog"
)

// Store serves named blobs out of a Cache, fetching missing segments from
// a Fetcher.
type Store struct {
	cache        *filecache.Cache
	fetcher      remote.Fetcher
	segmentBytes int64
	sizes        *cache.SyncMap
	ids          filecache.IDSource
	log          zerolog.Logger
}

// New creates a Store. segmentBytes is the aligned segment size new blobs
// are split into (spec.md §3's "owner domain" granularity).
func New(c *filecache.Cache, fetcher remote.Fetcher, segmentBytes int64, ids filecache.IDSource, log zerolog.Logger) *Store {
	return &Store{
		cache:        c,
		fetcher:      fetcher,
		segmentBytes: segmentBytes,
		sizes:        cache.MakeSyncMap(1e6),
		ids:          ids,
		log:          log.With().Str("component", "blobstore").Logger(),
	}
}

// Open returns a randomly-readable handle on the named blob.
func (s *Store) Open(ctx context.Context, name string) (*File, error) {
	size, err := s.fstat(ctx, name)
	if err != nil {
		return nil, err
	}
	return &File{ctx: ctx, store: s, name: name, size: size}, nil
}

func (s *Store) fstat(ctx context.Context, name string) (int64, error) {
	if v, ok := s.sizes.Get(name); ok {
		return v.(int64), nil
	}

	size, err := s.fetcher.Fstat(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("blobstore: fstat %q: %w", name, err)
	}

	s.sizes.Set(name, size)
	return size, nil
}

// Warm downloads every segment covering [offset, offset+length) without
// returning the bytes to the caller, reporting the number of bytes landed
// by each segment to progress. It is the "downloader" role of a Segment's
// election played from cmd/cachectl rather than an HTTP handler.
func (s *Store) Warm(ctx context.Context, name string, offset, length int64, progress func(n int)) error {
	fileSize, err := s.fstat(ctx, name)
	if err != nil {
		return err
	}

	end := offset + length
	if end > fileSize {
		end = fileSize
	}

	buf := make([]byte, s.segmentBytes)
	for pos := offset; pos < end; {
		n, err := s.readSegment(ctx, name, fileSize, pos, buf)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("blobstore: warm %q: no progress at offset %d", name, pos)
		}
		if progress != nil {
			progress(n)
		}
		pos += int64(n)
	}
	return nil
}

// readSegment ensures the aligned segment covering offset is fully
// downloaded, then reads up to len(buf) bytes starting at offset into buf.
func (s *Store) readSegment(ctx context.Context, name string, fileSize, offset int64, buf []byte) (int, error) {
	alignedOffset := math.AlignDown(offset, s.segmentBytes)
	segSize := math.Min64(s.segmentBytes, fileSize-alignedOffset)

	h, err := s.cache.Acquire(ctx, name, alignedOffset, segSize)
	if err != nil {
		return 0, fmt.Errorf("blobstore: acquire %q@%d: %w", name, alignedOffset, err)
	}
	defer h.Release(ctx)

	if err := s.ensureDownloaded(ctx, h, name, alignedOffset, segSize); err != nil {
		return 0, err
	}

	f, err := os.Open(s.cache.Path(name, alignedOffset))
	if err != nil {
		return 0, fmt.Errorf("blobstore: open backing file: %w", err)
	}
	defer f.Close()

	pos := offset - alignedOffset
	n, err := f.ReadAt(buf, pos)
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}

// ensureDownloaded elects a downloader for seg if needed, downloads the
// full remaining bytes in one batch, and otherwise waits for the elected
// downloader to finish (spec.md §4.1's election/wait/complete protocol).
func (s *Store) ensureDownloaded(ctx context.Context, h *filecache.Holder, name string, offset, size int64) error {
	seg := h.Segment()

	if seg.State() == filecache.StateDownloaded {
		return nil
	}

	downloaderID, err := seg.GetOrSetDownloader(ctx)
	if err != nil {
		return err
	}

	if !seg.IsDownloader(ctx) {
		// Wait returns on every wakeup, including a spurious one that
		// leaves the segment still DOWNLOADING (e.g. a downloader's
		// CompleteBatch of a partial batch); re-invoke it until the
		// segment reaches a terminal state or the context is done.
		waitStart := time.Now()
		var st filecache.State
		var err error
		for {
			st, err = seg.Wait(ctx)
			if err != nil || st != filecache.StateDownloading {
				break
			}
		}
		metrics.Global.RecordWait(name, time.Since(waitStart).Seconds())
		if err != nil {
			return err
		}
		if st != filecache.StateDownloaded && st != filecache.StatePartiallyDownloaded {
			return fmt.Errorf("blobstore: segment %s@%d left in state %s, elected downloader %s", name, offset, st, downloaderID)
		}
		return nil
	}

	// DownloadOffset is absolute; start is relative to the segment.
	start := seg.DownloadOffset() + 1 - offset
	remaining := size - start
	if seg.State() == filecache.StateDownloaded || remaining <= 0 {
		return nil
	}

	downloadStart := time.Now()
	buf := make([]byte, remaining)
	n, err := s.fetcher.Pread(ctx, name, offset+start, buf)
	if err != nil {
		return fmt.Errorf("blobstore: fetch %q@%d: %w", name, offset, err)
	}
	metrics.Global.RecordDownload(name, time.Since(downloadStart).Seconds(), int64(n))

	if ok, err := seg.Reserve(ctx, int64(n)); err != nil {
		return err
	} else if !ok {
		return seg.Complete(ctx, filecache.StatePartiallyDownloadedNoContinuation)
	}

	if err := seg.Write(ctx, buf, int64(n)); err != nil {
		return err
	}

	target := filecache.StateDownloaded
	if int64(n) < remaining {
		target = filecache.StatePartiallyDownloaded
	}
	return seg.Complete(ctx, target)
}
