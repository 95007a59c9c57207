// Copyright (c) Microsoft Corporation.
// Licensed under the Apache License, Version 2.0.

// Package config loads cached's configuration from an optional TOML file,
// overlaid by explicitly-set CLI flags (spec.md §6/§9's configuration
// surface: cache size, segment size, wait timeout, write-buffer sync
// policy). No teacher config-file loader existed — the teacher is
// flags-only via go-arg — so this package is new, grounded on go-arg's own
// "explicit flags win" style from cmd/proxy/cmd.go.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config holds the full set of cached's runtime settings.
type Config struct {
	ListenAddr     string        `toml:"listen_addr"`
	ObjectStoreURL string        `toml:"object_store_url"`
	CacheDir       string        `toml:"cache_dir"`
	MaxCacheBytes  int64         `toml:"max_cache_bytes"`
	SegmentBytes   int64         `toml:"segment_bytes"`
	WaitTimeout    time.Duration `toml:"wait_timeout"`
	SyncOnWrite    bool          `toml:"sync_on_write"`
}

// Default returns the configuration used when no file and no flags
// override a setting.
func Default() Config {
	return Config{
		ListenAddr:     "127.0.0.1:5000",
		ObjectStoreURL: "",
		CacheDir:       "/var/cache/cached",
		MaxCacheBytes:  4 * 1024 * 1024 * 1024,
		SegmentBytes:   4 * 1024 * 1024,
		WaitTimeout:    60 * time.Second,
		SyncOnWrite:    true,
	}
}

// Load reads a TOML file at path into a copy of base. An empty path is a
// no-op: base is returned unchanged.
func Load(path string, base Config) (Config, error) {
	if path == "" {
		return base, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("config: failed to read %q: %w", path, err)
	}

	if err := toml.Unmarshal(b, &base); err != nil {
		return base, fmt.Errorf("config: failed to parse %q: %w", path, err)
	}

	return base, nil
}
