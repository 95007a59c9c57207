// Copyright (c) Microsoft Corporation.
// Licensed under the Apache License, Version 2.0.

// Package metrics provides a metrics collector that stores metrics in Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// promMetrics is a metrics collector that stores metrics in Prometheus.
type promMetrics struct {
	requestDuration  *prometheus.HistogramVec
	downloadDuration *prometheus.HistogramVec
	downloadBytes    *prometheus.CounterVec
	waitDuration     *prometheus.HistogramVec
}

var _ Metrics = &promMetrics{}

// RecordRequest records the duration of a request for a specific method and handler.
func (m *promMetrics) RecordRequest(method string, handler string, duration float64) {
	m.requestDuration.WithLabelValues(method, handler).Observe(duration)
}

// RecordDownload records the duration and byte count of a segment download.
func (m *promMetrics) RecordDownload(key string, duration float64, bytes int64) {
	m.downloadDuration.WithLabelValues(key).Observe(duration)
	m.downloadBytes.WithLabelValues(key).Add(float64(bytes))
}

// RecordWait records the duration a caller spent waiting on a segment it
// did not download.
func (m *promMetrics) RecordWait(key string, duration float64) {
	m.waitDuration.WithLabelValues(key).Observe(duration)
}

// NewPromMetrics creates a new instance of promMetrics registered against reg.
func NewPromMetrics(reg prometheus.Registerer) *promMetrics {
	requestDurationHist := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "cached_request_duration_seconds",
		Help: "Duration of HTTP requests in seconds.",
	}, []string{"method", "handler"})
	reg.MustRegister(requestDurationHist)

	downloadDurationHist := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "cached_segment_download_duration_seconds",
		Help: "Duration of segment downloads from origin, in seconds.",
	}, []string{"key"})
	reg.MustRegister(downloadDurationHist)

	downloadBytesCounter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cached_segment_download_bytes_total",
		Help: "Total bytes downloaded from origin into the cache.",
	}, []string{"key"})
	reg.MustRegister(downloadBytesCounter)

	waitDurationHist := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "cached_segment_wait_duration_seconds",
		Help: "Duration non-downloading callers spent waiting on a segment.",
	}, []string{"key"})
	reg.MustRegister(waitDurationHist)

	return &promMetrics{
		requestDuration:  requestDurationHist,
		downloadDuration: downloadDurationHist,
		downloadBytes:    downloadBytesCounter,
		waitDuration:     waitDurationHist,
	}
}
