// Copyright (c) Microsoft Corporation.
// Licensed under the Apache License, Version 2.0.
package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// httpFetcher is a Fetcher implementation. Grounded on the teacher's
// reader.fstatRemote/preadRemote HTTP Range-request machinery, with doP2p
// peer resolution removed: every request goes straight to baseURL.
type httpFetcher struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

var _ Fetcher = &httpFetcher{}

// NewFetcher creates a Fetcher that resolves blob names against baseURL.
func NewFetcher(baseURL string, client *http.Client, log zerolog.Logger) Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &httpFetcher{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
		log:     log.With().Str("component", "remote").Logger(),
	}
}

// Fstat implements Fetcher.
func (f *httpFetcher) Fstat(ctx context.Context, name string) (int64, error) {
	req, err := f.request(ctx, name, 0, 0)
	if err != nil {
		return -1, err
	}

	log := f.log.With().Str("operation", "fstat").Str("name", name).Logger()
	log.Debug().Msg("fstat start")
	defer log.Debug().Msg("fstat stop")

	resp, err := f.client.Do(req)
	if err != nil {
		log.Error().Err(err).Msg("fstat error")
		return -1, &Error{resp, err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return resp.ContentLength, nil
	case http.StatusPartialContent:
		if l := resp.ContentLength; l >= 0 {
			rs := resp.Header.Get("Content-Range")
			if rs == "" {
				return l, nil
			}
			pos := strings.LastIndexByte(rs, '/')
			if pos < 0 {
				return l, nil
			}
			total, err := strconv.ParseInt(rs[pos+1:], 10, 64)
			if err != nil {
				return l, nil
			}
			return total, nil
		}
		return resp.ContentLength, nil
	default:
		err := fmt.Errorf("unexpected response code: %d", resp.StatusCode)
		log.Error().Err(err).Int("status", resp.StatusCode).Msg("fstat error")
		return -1, &Error{resp, err}
	}
}

// Pread implements Fetcher.
func (f *httpFetcher) Pread(ctx context.Context, name string, offset int64, buf []byte) (int, error) {
	end := offset + int64(len(buf)) - 1
	req, err := f.request(ctx, name, offset, end)
	if err != nil {
		return 0, err
	}

	log := f.log.With().Str("operation", "pread").Str("name", name).Int64("start", offset).Int64("end", end).Logger()

	start := time.Now()
	statusCode := -1
	defer func() {
		log.Debug().Int("status", statusCode).Dur("duration", time.Since(start)).Msg("pread")
	}()

	resp, err := f.client.Do(req)
	if resp != nil {
		statusCode = resp.StatusCode
	}
	if err != nil {
		log.Error().Err(err).Msg("pread error")
		return 0, &Error{resp, err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		err := fmt.Errorf("unexpected response code: %d", resp.StatusCode)
		log.Error().Err(err).Int("status", resp.StatusCode).Msg("pread error")
		return 0, &Error{resp, err}
	}

	n, err := io.ReadFull(resp.Body, buf)
	if err == io.ErrUnexpectedEOF {
		// The origin had fewer bytes than requested; not an error for a
		// caller reading up to the last segment of a blob.
		return n, nil
	}
	return n, err
}

func (f *httpFetcher) request(ctx context.Context, name string, start, end int64) (*http.Request, error) {
	u := f.baseURL + "/" + url.PathEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, end))
	return req, nil
}
