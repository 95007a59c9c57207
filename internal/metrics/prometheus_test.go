// Copyright (c) Microsoft Corporation.
// Licensed under the Apache License, Version 2.0.
package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestPromMetricsRecordsWithoutPanicking(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPromMetrics(reg)

	m.RecordRequest("GET", "files", 0.01)
	m.RecordDownload("blobs/foo@0", 0.2, 1024)
	m.RecordWait("blobs/foo@0", 0.05)

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	if len(families) != 4 {
		t.Fatalf("got %d metric families, want 4", len(families))
	}
}
