// Copyright (c) Microsoft Corporation.
// Licensed under the Apache License, Version 2.0.
package filecache

import (
	"path/filepath"
	"strconv"

	"github.com/opencontainers/go-digest"
)

// segmentKey returns the opaque, collision-resistant cache key for a
// segment. The teacher keys its file cache directly off the caller's file
// name (internal/files/cache/cache.go getKey); we additionally digest the
// name so that names containing path separators or other filesystem-unsafe
// characters cannot escape the cache root.
func segmentKey(name string) string {
	return digest.FromString(name).Encoded()
}

// segmentPath returns the on-disk path for the segment identified by
// (name, offset), rooted under dir.
func segmentPath(dir, name string, offset int64) string {
	return filepath.Join(dir, segmentKey(name), strconv.FormatInt(offset, 10))
}
