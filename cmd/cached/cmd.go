// Copyright (c) Microsoft Corporation.
// Licensed under the Apache License, Version 2.0.
package main

type ServerCmd struct {
	HttpAddr       string `arg:"--http-addr" help:"address the cache server listens on"`
	ObjectStoreURL string `arg:"--object-store-url" help:"base URL of the origin object store"`
	CacheDir       string `arg:"--cache-dir" help:"directory backing cached segments on disk"`
	MaxCacheBytes  int64  `arg:"--max-cache-bytes" help:"byte quota enforced across all cached segments"`
	SegmentBytes   int64  `arg:"--segment-bytes" help:"size of the aligned segments blobs are split into"`
	ConfigFile     string `arg:"--config" help:"path to an optional TOML config file"`
}

type Arguments struct {
	Server   *ServerCmd `arg:"subcommand:run" help:"run the cache server"`
	Version  bool       `arg:"-v" help:"show version and exit"`
	LogLevel string     `arg:"--log-level" help:"set the log level" default:"info" valid:"debug,info,warn,error,fatal,panic"`
}

var version string
