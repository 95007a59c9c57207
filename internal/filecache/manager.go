// Copyright (c) Microsoft Corporation.
// Licensed under the Apache License, Version 2.0.
package filecache

import "context"

// Manager is the external cache-manager collaborator described in
// spec.md §4.3. A Segment calls these operations on its owning cache; it
// depends on no other surface.
//
// Implementations must never call back into the Segment these methods were
// invoked about while holding their own lock: the mandatory lock ordering
// is segment mutex -> manager mutex (spec.md §5 "Lock ordering (strict)").
type Manager interface {
	// TryReserve attempts to account n bytes against the global quota, for
	// the segment identified by (key, offset). It may evict other segments
	// to make room. It must not call back into the segment it was invoked
	// for.
	TryReserve(ctx context.Context, key string, offset, n int64) (bool, error)

	// IsLastHolder returns true iff no holders remain on the segment at
	// (key, offset). Callers invoke this after their own holder count has
	// already been decremented, so "last holder" is this query observing
	// zero, not one.
	IsLastHolder(ctx context.Context, key string, offset int64) (bool, error)

	// Remove drops the segment at (key, offset) from the index and deletes
	// its backing file.
	Remove(ctx context.Context, key string, offset int64) error

	// ReduceSizeToDownloaded updates the segment's recorded size to
	// downloadedSize. Safe only when the caller is the last holder.
	ReduceSizeToDownloaded(ctx context.Context, key string, offset, downloadedSize int64) error

	// Path returns the stable filesystem path backing the segment at
	// (key, offset).
	Path(key string, offset int64) string
}
