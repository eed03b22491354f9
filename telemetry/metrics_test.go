package telemetry

import (
	"testing"
	"time"
)

func TestMetricsCountersDoNotPanic(t *testing.T) {
	m := NewMetrics("market_data")
	m.IngestOK()
	m.Rejected()
	m.FannedOut()
	m.SetOpenGaps(3)
	m.SetQueueDepth(128)
	m.ObserveAuditWrite(2 * time.Millisecond)
}

func TestNewMetricsDistinctDomainsDoNotCollide(t *testing.T) {
	// Each domain gets its own registry, so constructing two Metrics for
	// different domains must not panic on duplicate collector registration.
	NewMetrics("market_data")
	NewMetrics("signal")
	NewMetrics("execution")
}
