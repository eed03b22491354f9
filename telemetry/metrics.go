// Package telemetry wires the relay's structured logging and Prometheus
// metrics, per SPEC_FULL.md's ambient-stack expansion of spec.md.
package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Metrics holds the Prometheus collectors for one relay domain. relay.Server
// does not update them itself; they change only when a caller invokes the
// methods below.
type Metrics struct {
	registry *prometheus.Registry

	messagesIngested  prometheus.Counter
	messagesRejected  prometheus.Counter
	messagesFannedOut prometheus.Counter
	gapCount          prometheus.Gauge
	queueDepth        prometheus.Gauge
	auditLatency      prometheus.Histogram
}

// NewMetrics builds a Metrics registry for one domain, labeled so the same
// process can run multiple relay.Server instances (one per domain) without
// metric name collisions.
func NewMetrics(domain string) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{registry: reg}

	labels := prometheus.Labels{"domain": domain}

	m.messagesIngested = prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "alphapulse_messages_ingested_total",
		Help:        "Messages accepted by the ingestion path.",
		ConstLabels: labels,
	})
	m.messagesRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "alphapulse_messages_rejected_total",
		Help:        "Messages rejected by the ingestion path (malformed header, checksum, domain mismatch).",
		ConstLabels: labels,
	})
	m.messagesFannedOut = prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "alphapulse_messages_fanned_out_total",
		Help:        "Messages delivered to at least one consumer.",
		ConstLabels: labels,
	})
	m.gapCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "alphapulse_open_gaps",
		Help:        "Number of consumers currently in the Gapped or Recovering state.",
		ConstLabels: labels,
	})
	m.queueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "alphapulse_max_queue_depth",
		Help:        "Deepest observed consumer outbound queue depth.",
		ConstLabels: labels,
	})
	m.auditLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "alphapulse_audit_write_seconds",
		Help:        "Latency of persisting one message to the audit trail.",
		ConstLabels: labels,
		Buckets:     prometheus.DefBuckets,
	})

	reg.MustRegister(
		m.messagesIngested,
		m.messagesRejected,
		m.messagesFannedOut,
		m.gapCount,
		m.queueDepth,
		m.auditLatency,
	)
	return m
}

func (m *Metrics) IngestOK()  { m.messagesIngested.Inc() }
func (m *Metrics) Rejected()  { m.messagesRejected.Inc() }
func (m *Metrics) FannedOut() { m.messagesFannedOut.Inc() }

func (m *Metrics) SetOpenGaps(n int)   { m.gapCount.Set(float64(n)) }
func (m *Metrics) SetQueueDepth(n int) { m.queueDepth.Set(float64(n)) }

func (m *Metrics) ObserveAuditWrite(d time.Duration) { m.auditLatency.Observe(d.Seconds()) }

// Serve exposes the registry on /metrics until ctx is canceled, returning
// the underlying http.Server so callers can inspect shutdown errors.
func (m *Metrics) Serve(ctx context.Context, addr string, log *logrus.Entry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.WithError(err).Error("metrics server stopped unexpectedly")
			}
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	return srv
}
