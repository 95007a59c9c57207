// Copyright (c) Microsoft Corporation.
// Licensed under the Apache License, Version 2.0.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/mdevries/cached/internal/blobstore"
	"github.com/mdevries/cached/internal/clientid"
	"github.com/mdevries/cached/internal/config"
	"github.com/mdevries/cached/internal/filecache"
	"github.com/mdevries/cached/internal/handlers"
	"github.com/mdevries/cached/internal/remote"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
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
	zerolog.TimeFieldFormat = time.RFC3339Nano

	hostname, _ := os.Hostname()
	l := zerolog.New(os.Stdout).With().Timestamp().Str("self", hostname).Str("version", version).Logger()
	ctx := l.WithContext(context.Background())

	err = run(ctx, args)
	if err != nil {
		l.Error().Err(err).Msg("server error")
		os.Exit(1)
	}

	l.Info().Msg("server shutdown")
}

func run(ctx context.Context, args *Arguments) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGTERM)
	defer cancel()

	switch {
	case args.Version:
		zerolog.Ctx(ctx).Info().Msg("version")
		return nil
	case args.Server != nil:
		return serverCommand(ctx, args.Server)
	default:
		return fmt.Errorf("unknown subcommand")
	}
}

func serverCommand(ctx context.Context, args *ServerCmd) error {
	l := zerolog.Ctx(ctx)

	base := config.Default()
	cfg, err := config.Load(args.ConfigFile, base)
	if err != nil {
		return err
	}

	if args.HttpAddr != "" {
		cfg.ListenAddr = args.HttpAddr
	}
	if args.ObjectStoreURL != "" {
		cfg.ObjectStoreURL = args.ObjectStoreURL
	}
	if args.CacheDir != "" {
		cfg.CacheDir = args.CacheDir
	}
	if args.MaxCacheBytes != 0 {
		cfg.MaxCacheBytes = args.MaxCacheBytes
	}
	if args.SegmentBytes != 0 {
		cfg.SegmentBytes = args.SegmentBytes
	}

	if cfg.ObjectStoreURL == "" {
		return fmt.Errorf("object-store-url is required")
	}

	ids := clientid.FromGinRequest{}

	cache, err := filecache.NewCacheWithOptions(cfg.CacheDir, cfg.MaxCacheBytes, ids, cfg.WaitTimeout, cfg.SyncOnWrite, *l)
	if err != nil {
		return err
	}
	defer cache.Close()

	fetcher := remote.NewFetcher(cfg.ObjectStoreURL, http.DefaultClient, *l)
	store := blobstore.New(cache, fetcher, cfg.SegmentBytes, ids, *l)

	handler := handlers.Handler(ctx, store, cache.Stats)

	httpSrv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: handler,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	l.Info().Str("http", cfg.ListenAddr).Str("cache_dir", cfg.CacheDir).Msg("server start")
	return g.Wait()
}
