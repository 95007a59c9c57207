// Copyright (c) Microsoft Corporation.
// Licensed under the Apache License, Version 2.0.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics collects observability data about cache and origin activity.
type Metrics interface {
	// RecordRequest records the time it takes to process an HTTP request.
	RecordRequest(method, handler string, duration float64)

	// RecordDownload records the time it takes and bytes moved to download
	// a segment from the origin.
	RecordDownload(key string, duration float64, bytes int64)

	// RecordWait records the time a non-downloader caller spent blocked on
	// Segment.Wait.
	RecordWait(key string, duration float64)
}

// Global is the process-wide metrics collector.
var Global Metrics = NewPromMetrics(prometheus.DefaultRegisterer)
