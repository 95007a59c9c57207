// Copyright (c) Microsoft Corporation.
// Licensed under the Apache License, Version 2.0.
package filecache

import "context"

// Holder is a caller's handle on a Segment, obtained from Cache.Acquire.
// It tracks nothing itself beyond a back-reference; "last holder" status is
// determined by the Cache, since only the Cache sees every concurrent
// acquirer of the same segment.
type Holder struct {
	cache   *Cache
	key     string
	offset  int64
	segment *Segment

	released bool
}

// Segment returns the held segment.
func (h *Holder) Segment() *Segment {
	return h.segment
}

// Release relinquishes this holder's claim on the segment. The holder count
// is decremented first, then the segment's Release (spec.md's zero-arg
// complete()) runs unconditionally: every handle release drives the
// finalizer, which queries the Cache's own IsLastHolder to decide whether
// to shrink or remove the segment. Gating Release on this Holder's own
// last-holder check would leave an abandoned downloader's state stuck
// DOWNLOADING forever whenever another holder is still outstanding.
func (h *Holder) Release(ctx context.Context) {
	if h.released {
		return
	}
	h.released = true

	h.cache.release(h.key, h.offset)
	h.segment.Release(ctx)
}
