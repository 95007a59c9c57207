// Copyright (c) Microsoft Corporation.
// Licensed under the Apache License, Version 2.0.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/alexflint/go-arg"
	"github.com/mdevries/cached/internal/blobstore"
	"github.com/mdevries/cached/internal/clientid"
	"github.com/mdevries/cached/internal/config"
	"github.com/mdevries/cached/internal/filecache"
	"github.com/mdevries/cached/internal/remote"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
)

func main() {
	args := &Arguments{}
	arg.MustParse(args)

	ll, err := zerolog.ParseLevel(args.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level: %s\n", args.LogLevel)
		os.Exit(1)
	}
	zerolog.SetGlobalLevel(ll)
	l := zerolog.New(os.Stderr).With().Timestamp().Logger()

	if err := run(l.WithContext(context.Background()), args); err != nil {
		fmt.Fprintf(os.Stderr, "cachectl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args *Arguments) error {
	base := config.Default()
	if args.CacheDir != "" {
		base.CacheDir = args.CacheDir
	}
	if args.MaxCacheBytes != 0 {
		base.MaxCacheBytes = args.MaxCacheBytes
	}
	if args.SegmentBytes != 0 {
		base.SegmentBytes = args.SegmentBytes
	}

	ids := clientid.Static("cachectl")

	cache, err := filecache.NewCacheWithOptions(base.CacheDir, base.MaxCacheBytes, ids, base.WaitTimeout, base.SyncOnWrite, *zerolog.Ctx(ctx))
	if err != nil {
		return err
	}
	defer cache.Close()

	switch {
	case args.Warm != nil:
		fetcher := remote.NewFetcher(args.ObjectStoreURL, http.DefaultClient, *zerolog.Ctx(ctx))
		store := blobstore.New(cache, fetcher, base.SegmentBytes, ids, *zerolog.Ctx(ctx))
		return warmCommand(ctx, store, args.Warm)
	case args.Inspect != nil:
		return inspectCommand(cache, base.SegmentBytes, args.Inspect)
	default:
		return fmt.Errorf("unknown subcommand")
	}
}

// warmCommand plays the downloader role of a Segment's election
// interactively, rendering progress as each segment lands.
func warmCommand(ctx context.Context, store *blobstore.Store, args *WarmCmd) error {
	bar := progressbar.DefaultBytes(-1, fmt.Sprintf("warming %s", args.Blob))

	length := args.Length
	if length <= 0 {
		length = 1<<63 - 1 - args.Offset
	}

	err := store.Warm(ctx, args.Blob, args.Offset, length, func(n int) {
		//nolint:errcheck
		bar.Add(n)
	})
	//nolint:errcheck
	bar.Close()
	return err
}

// inspectCommand prints a segment's bookkeeping fields and backing file
// path, for debugging a download stuck past the wait timeout. It looks the
// segment up in the Cache this process has just created; that Cache does not
// load segments from the cache directory, so segments acquired by another
// process (such as a running cached server) are reported as not cached.
func inspectCommand(cache *filecache.Cache, segmentBytes int64, args *InspectCmd) error {
	offset := args.Offset - (args.Offset % segmentBytes)

	snap, found := cache.Inspect(args.Blob, offset)
	if !found {
		fmt.Printf("no segment cached for %s at aligned offset %d\n", args.Blob, offset)
		return nil
	}

	fmt.Printf("blob:            %s\n", args.Blob)
	fmt.Printf("offset:          %d\n", snap.Offset)
	fmt.Printf("state:           %s\n", snap.State)
	fmt.Printf("size:            %d\n", snap.Size)
	fmt.Printf("downloaded:      %d\n", snap.DownloadedSize)
	fmt.Printf("reserved:        %d\n", snap.ReservedSize)
	fmt.Printf("backing file:    %s\n", cache.Path(args.Blob, offset))
	return nil
}
