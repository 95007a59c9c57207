// Copyright (c) Microsoft Corporation.
// Licensed under the Apache License, Version 2.0.
package metrics

import (
	"os"
	"syscall"
	"time"

	hmetrics "github.com/hashicorp/go-metrics"
)

var (
	// Path is the default path to write metrics.
	Path = "/var/log/cached-metrics"

	// ReportInterval is the interval to report metrics.
	ReportInterval = 3 * time.Minute

	// AggregationInterval is the interval to aggregate metrics.
	AggregationInterval = 2 * time.Minute

	// RetentionPeriod is the retention period of metrics.
	RetentionPeriod = 10 * time.Minute
)

// memoryMetrics is a metrics collector that stores metrics in memory,
// useful for cachectl and other short-lived processes that don't run a
// Prometheus scrape endpoint.
type memoryMetrics struct {
	sink *hmetrics.InmemSink

	reportingInterval time.Duration
	reportFilePath    string
}

// RecordRequest records the time it takes to process an HTTP request.
func (m *memoryMetrics) RecordRequest(method string, handler string, duration float64) {
	m.recordLatency(duration, "server", method+"_"+handler)
}

// RecordDownload records the duration and byte count of a segment download.
func (m *memoryMetrics) RecordDownload(key string, duration float64, bytes int64) {
	m.recordLatency(duration, key, "download")
	m.recordBytes(bytes, key, "download")

	if duration > 0 {
		m.recordSpeed(float64(bytes)/duration, key, "download")
	}
}

// RecordWait records the duration a caller spent waiting on a segment it
// did not download.
func (m *memoryMetrics) RecordWait(key string, duration float64) {
	m.recordLatency(duration, key, "wait")
}

// recordLatency records the time it takes to perform an operation.
func (m *memoryMetrics) recordLatency(duration float64, host, op string) {
	m.sink.AddSample([]string{"latency", host, op}, float32(duration))
}

// recordSpeed records the speed of a download.
func (m *memoryMetrics) recordSpeed(speed float64, host, op string) {
	m.sink.AddSample([]string{"speed", host, op}, float32(speed))
}

// recordBytes records the number of bytes downloaded.
func (m *memoryMetrics) recordBytes(bytes int64, host, op string) {
	m.sink.AddSample([]string{"bytes", host, op}, float32(bytes))
}

var _ Metrics = &memoryMetrics{}

// reportPeriodically reports the current metrics to a file every ReportInterval.
func (m *memoryMetrics) reportPeriodically() {
	go func() {
		ticker := time.NewTicker(m.reportingInterval)
		defer ticker.Stop()
		for range ticker.C {
			f, err := os.OpenFile(m.reportFilePath, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0644)
			if err == nil {
				hmetrics.NewInmemSignal(m.sink, hmetrics.DefaultSignal, f)

				_ = syscall.Kill(os.Getpid(), syscall.SIGUSR1)

				// Wait for flush.
				time.Sleep(20 * time.Millisecond)

				_ = f.Sync()
				f.Close()
			}
		}
	}()
}

// NewMemoryMetrics returns a new memory metrics collector.
func NewMemoryMetrics() Metrics {
	sink := hmetrics.NewInmemSink(AggregationInterval, RetentionPeriod)

	c := hmetrics.DefaultConfig("cached")
	c.EnableRuntimeMetrics = false

	_, err := hmetrics.NewGlobal(c, sink)
	if err != nil {
		panic(err)
	}

	m := &memoryMetrics{sink, ReportInterval, Path}
	m.reportPeriodically()

	return m
}
