// Copyright (c) Microsoft Corporation.
// Licensed under the Apache License, Version 2.0.
package main

type WarmCmd struct {
	Blob   string `arg:"positional,required" help:"blob name, relative to the object store root"`
	Offset int64  `arg:"--offset" help:"starting byte offset"`
	Length int64  `arg:"--length" help:"number of bytes to warm; 0 means to end of blob"`
}

type InspectCmd struct {
	Blob   string `arg:"positional,required" help:"blob name, relative to the object store root"`
	Offset int64  `arg:"--offset" help:"segment offset to inspect"`
}

type Arguments struct {
	Warm           *WarmCmd    `arg:"subcommand:warm" help:"download a byte range into the cache, showing progress"`
	Inspect        *InspectCmd `arg:"subcommand:inspect" help:"print a segment's state for debugging stuck downloads"`
	ObjectStoreURL string      `arg:"--object-store-url,required" help:"base URL of the origin object store"`
	CacheDir       string      `arg:"--cache-dir" help:"directory backing cached segments on disk"`
	MaxCacheBytes  int64       `arg:"--max-cache-bytes" help:"byte quota enforced across all cached segments"`
	SegmentBytes   int64       `arg:"--segment-bytes" help:"size of the aligned segments blobs are split into"`
	LogLevel       string      `arg:"--log-level" help:"set the log level" default:"warn" valid:"debug,info,warn,error,fatal,panic"`
}
