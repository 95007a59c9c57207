// Copyright (c) Microsoft Corporation.
// Licensed under the Apache License, Version 2.0.
package filecache

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultWaitTimeout is the default duration Wait blocks for before
// returning the current state (spec.md §6 "Configuration"). The source
// this was ported from hard-codes this value with a TODO to make it
// configurable; we keep it as a default and expose WithWaitTimeout as the
// hook the TODO asked for.
const DefaultWaitTimeout = 60 * time.Second

// DefaultSyncOnWrite is the default write-buffer sync policy: fsync the
// backing file before it is closed (spec.md §6 "Configuration").
const DefaultSyncOnWrite = true

// Segment is a contiguous byte range of a logical file, coordinated by a
// single elected downloader (spec.md §3/§4.1).
type Segment struct {
	key    string
	offset int64
	size   int64

	mu   sync.Mutex
	cond *sync.Cond

	state          State
	downloadedSize int64
	reservedSize   int64
	downloaderID   ClientID
	writer         *segmentWriter

	mgr         Manager
	ids         IDSource
	waitTimeout time.Duration
	syncOnWrite bool
	log         zerolog.Logger
}

// NewSegment constructs a Segment in initial state, which must be
// StateEmpty or StateDownloaded (spec.md invariant 6).
func NewSegment(key string, offset, size int64, initial State, mgr Manager, ids IDSource, log zerolog.Logger) (*Segment, error) {
	if initial != StateEmpty && initial != StateDownloaded {
		return nil, newError(key, offset, "segment must be constructed as EMPTY or DOWNLOADED", nil)
	}

	s := &Segment{
		key:         key,
		offset:      offset,
		size:        size,
		state:       initial,
		mgr:         mgr,
		ids:         ids,
		waitTimeout: DefaultWaitTimeout,
		syncOnWrite: DefaultSyncOnWrite,
		log:         log.With().Str("key", key).Int64("offset", offset).Int64("size", size).Logger(),
	}
	s.cond = sync.NewCond(&s.mu)

	if initial == StateDownloaded {
		s.downloadedSize = size
		s.reservedSize = size
	}

	return s, nil
}

// WithWaitTimeout overrides the default Wait timeout. It must be called
// before the segment is shared across goroutines.
func (s *Segment) WithWaitTimeout(d time.Duration) *Segment {
	s.waitTimeout = d
	return s
}

// WithSyncOnWrite overrides the default write-buffer sync policy. It must
// be called before the segment is shared across goroutines.
func (s *Segment) WithSyncOnWrite(sync bool) *Segment {
	s.syncOnWrite = sync
	return s
}

// Key returns the segment's opaque file identifier.
func (s *Segment) Key() string { return s.key }

// Offset returns the segment's absolute left bound.
func (s *Segment) Offset() int64 { return s.offset }

// Size returns the segment's declared byte length.
func (s *Segment) Size() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// State returns the current state. Observational, mutex-guarded.
func (s *Segment) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// DownloadOffset returns the last absolute byte persisted.
func (s *Segment) DownloadOffset() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offset + s.downloadedSize - 1
}

// currentID resolves the caller's id or fails if absent.
func (s *Segment) currentID(ctx context.Context) (ClientID, error) {
	id, ok := s.ids.CurrentID(ctx)
	if !ok || id == "" {
		return "", newError(s.key, s.offset, "no caller id in context", nil)
	}
	return id, nil
}

// GetOrSetDownloader assigns the caller as downloader if none is set yet,
// and in either case returns the current downloader's id. The caller
// compares the return value against its own id to determine whether it
// won the election.
func (s *Segment) GetOrSetDownloader(ctx context.Context) (ClientID, error) {
	id, err := s.currentID(ctx)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.downloaderID != "" {
		return s.downloaderID, nil
	}

	// A segment that is already DOWNLOADED has nothing to download: the
	// caller "wins" a moot election but must not allocate a writer or
	// touch reservedSize.
	if s.state == StateDownloaded {
		return id, nil
	}

	s.downloaderID = id
	if s.state == StateEmpty || s.state == StatePartiallyDownloaded || s.state == StatePartiallyDownloadedNoContinuation {
		s.state = StateDownloading
	}

	return id, nil
}

// IsDownloader returns true iff the caller's id equals the current
// downloader id.
func (s *Segment) IsDownloader(ctx context.Context) bool {
	id, err := s.currentID(ctx)
	if err != nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.downloaderID != "" && s.downloaderID == id
}

// Reserve reserves n further bytes against the global cache quota. On
// success reservedSize += n and it returns true; on quota refusal it
// returns false without mutation.
func (s *Segment) Reserve(ctx context.Context, n int64) (bool, error) {
	id, err := s.currentID(ctx)
	if err != nil {
		return false, err
	}

	if n <= 0 {
		return false, newError(s.key, s.offset, "reserve: n must be > 0", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.downloaderID == "" || s.downloaderID != id {
		return false, newError(s.key, s.offset, "reserve: caller is not the current downloader", nil)
	}
	if s.downloadedSize+n > s.size {
		return false, newError(s.key, s.offset, "reserve: downloadedSize+n exceeds size", nil)
	}

	unreserved := n - (s.reservedSize - s.downloadedSize)
	if unreserved <= 0 {
		// Already reserved enough to cover n.
		s.reservedSize += n
		return true, nil
	}

	// Segment mutex is held while asking the manager to reserve; this
	// ordering (segment -> manager) is mandatory to avoid deadlock
	// (spec.md §4.1/§5).
	ok, err := s.mgr.TryReserve(ctx, s.key, s.offset, unreserved)
	if err != nil {
		return false, newError(s.key, s.offset, "reserve: manager reservation failed", err)
	}
	if !ok {
		return false, nil
	}

	s.reservedSize += n
	return true, nil
}

// Write appends n bytes from buf to the segment's backing file. It does
// not change state; the segment remains DOWNLOADING until CompleteBatch or
// Complete is called.
func (s *Segment) Write(ctx context.Context, buf []byte, n int64) error {
	id, err := s.currentID(ctx)
	if err != nil {
		return err
	}
	if n <= 0 {
		return newError(s.key, s.offset, "write: n must be > 0", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.downloaderID == "" || s.downloaderID != id {
		return newError(s.key, s.offset, "write: caller is not the current downloader", nil)
	}
	if n > s.reservedSize-s.downloadedSize {
		return newError(s.key, s.offset, "write: n exceeds reserved-but-unwritten bytes", nil)
	}

	if s.writer == nil {
		w, err := newSegmentWriter(s.mgr.Path(s.key, s.offset), s.syncOnWrite)
		if err != nil {
			return newError(s.key, s.offset, "write: failed to open backing file", err)
		}
		s.writer = w
	}

	if err := s.writer.append(buf[:n]); err != nil {
		return newError(s.key, s.offset, "write: append failed", err)
	}

	s.downloadedSize += n
	return nil
}

// CompleteBatch marks that the downloader has finished writing a batch of
// bytes. If downloadedSize == size, the segment transitions to DOWNLOADED
// and the downloader id is cleared; waiters are notified. Unlike Complete,
// CompleteBatch does not invoke the finalizer: no quota rollback, no
// last-holder check happens here (spec.md §9 — preserved as observed).
func (s *Segment) CompleteBatch(ctx context.Context) error {
	id, err := s.currentID(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.downloaderID == "" || s.downloaderID != id {
		return newError(s.key, s.offset, "completeBatch: caller is not the current downloader", nil)
	}

	if s.downloadedSize == s.size {
		s.state = StateDownloaded
		s.downloaderID = ""
	}

	s.cond.Broadcast()
	return nil
}

// Complete performs an explicit terminal transition to one of
// StateDownloaded, StatePartiallyDownloaded or
// StatePartiallyDownloadedNoContinuation, then runs the finalizer.
func (s *Segment) Complete(ctx context.Context, target State) error {
	if target != StateDownloaded && target != StatePartiallyDownloaded && target != StatePartiallyDownloadedNoContinuation {
		s.mu.Lock()
		s.cond.Broadcast()
		s.mu.Unlock()
		return newError(s.key, s.offset, "complete: invalid target state", nil)
	}

	id, err := s.currentID(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.downloaderID == "" || s.downloaderID != id {
		s.cond.Broadcast()
		return newError(s.key, s.offset, "complete: caller is not the current downloader", nil)
	}

	s.state = target
	s.finalize(ctx)
	s.cond.Broadcast()
	return nil
}

// Release is spec.md's zero-arg complete(): Holder.Release calls it on every
// handle release, not only the last one; the finalizer's IsLastHolder query
// decides whether the segment is shrunk or removed. If state is SKIP_CACHE it is a no-op. Otherwise,
// downloadedSize == size promotes the state to DOWNLOADED; a still
// in-flight DOWNLOADING or untouched EMPTY state degrades to
// PARTIALLY_DOWNLOADED, even if the releasing caller was the downloader
// (spec.md §9, mirrored as observed). The finalizer then runs.
func (s *Segment) Release(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateSkipCache {
		return
	}

	if s.downloadedSize == s.size {
		s.state = StateDownloaded
	} else if s.state == StateDownloading || s.state == StateEmpty {
		if s.state == StateEmpty {
			s.log.Warn().Msg("segment released with no downloader ever elected")
		}
		s.state = StatePartiallyDownloaded
	}

	s.finalize(ctx)
	s.cond.Broadcast()
}

// finalize is the mutex-held epilogue shared by Complete and Release
// (spec.md §4.1 "Finalizer").
func (s *Segment) finalize(ctx context.Context) {
	canContinue := false

	if s.state == StatePartiallyDownloaded || s.state == StatePartiallyDownloadedNoContinuation {
		hasOtherHolders, err := func() (bool, error) {
			last, err := s.mgr.IsLastHolder(ctx, s.key, s.offset)
			if err != nil {
				return true, err
			}
			return !last, nil
		}()
		if err != nil {
			s.log.Error().Err(err).Msg("finalize: failed to query last holder")
		} else {
			isLast := !hasOtherHolders
			canContinue = !isLast && s.state == StatePartiallyDownloaded

			if !canContinue {
				if s.downloadedSize == 0 {
					s.state = StateSkipCache
					if err := s.mgr.Remove(ctx, s.key, s.offset); err != nil {
						s.log.Error().Err(err).Msg("finalize: failed to remove segment")
					}
				} else if isLast {
					if err := s.mgr.ReduceSizeToDownloaded(ctx, s.key, s.offset, s.downloadedSize); err != nil {
						s.log.Error().Err(err).Msg("finalize: failed to shrink segment")
					} else {
						s.size = s.downloadedSize
					}
				}
			}
		}
	}

	s.downloaderID = ""

	if !canContinue && s.writer != nil {
		if err := s.writer.close(); err != nil {
			s.log.Error().Err(err).Msg("finalize: failed to flush and close writer")
		}
		s.writer = nil
	}
}

// Snapshot is a point-in-time, read-only view of a Segment's bookkeeping
// fields, for operator inspection (cmd/cachectl inspect).
type Snapshot struct {
	Key            string
	Offset         int64
	Size           int64
	State          State
	DownloadedSize int64
	ReservedSize   int64
}

// Snapshot returns the segment's current bookkeeping fields.
func (s *Segment) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Key:            s.key,
		Offset:         s.offset,
		Size:           s.size,
		State:          s.state,
		DownloadedSize: s.downloadedSize,
		ReservedSize:   s.reservedSize,
	}
}

// Wait performs a single bounded wait on the segment's condition variable,
// up to the wait timeout, then returns the current state. A spurious
// wakeup (a broadcast with the segment still DOWNLOADING, e.g. from
// CompleteBatch) is a legitimate return: Wait does not loop internally to
// keep waiting for a terminal state, so it never extends its own deadline
// past one timeout. Callers that need a terminal state must re-invoke
// Wait themselves. Waiting on an EMPTY segment is a precondition
// violation: the caller must first elect a downloader.
func (s *Segment) Wait(ctx context.Context) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateEmpty {
		return s.state, newError(s.key, s.offset, "wait: segment is EMPTY, no downloader has been elected", nil)
	}

	if s.state != StateDownloading {
		return s.state, nil
	}

	if err := ctx.Err(); err != nil {
		return s.state, err
	}

	done := make(chan struct{})
	timer := time.AfterFunc(s.waitTimeout, func() {
		s.mu.Lock()
		s.cond.Broadcast()
		s.mu.Unlock()
	})
	defer timer.Stop()

	go func() {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			s.cond.Broadcast()
			s.mu.Unlock()
		case <-done:
		}
	}()
	defer close(done)

	s.cond.Wait()

	if err := ctx.Err(); err != nil {
		return s.state, err
	}
	return s.state, nil
}
