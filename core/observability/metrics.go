// Package observability exposes server metrics in Prometheus text format.
package observability

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/searchktools/stream-server/core/http"
	"github.com/searchktools/stream-server/core/middleware"
	"github.com/searchktools/stream-server/core/pools"
)

// Metrics holds the server's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	ConnectionsActive prometheus.Gauge
	ConnectionsTotal  prometheus.Counter
	ParseErrorsTotal  prometheus.Counter
}

// NewMetrics creates and registers the collectors. Buffer pool traffic is
// exported through gauge functions reading the pool counters directly.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "streamserver_requests_total",
			Help: "Requests served, by method and status code.",
		}, []string{"method", "code"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "streamserver_request_duration_seconds",
			Help:    "Handler latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "streamserver_connections_active",
			Help: "Open client connections.",
		}),
		ConnectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "streamserver_connections_total",
			Help: "Accepted client connections.",
		}),
		ParseErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "streamserver_parse_errors_total",
			Help: "Requests rejected by the tokenizer.",
		}),
	}

	m.registry.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.ConnectionsActive,
		m.ConnectionsTotal,
		m.ParseErrorsTotal,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "streamserver_buffer_pool_gets_total",
			Help: "Buffers handed out by the shared pool.",
		}, func() float64 {
			gets, _ := pools.GlobalStats()
			return float64(gets)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "streamserver_buffer_pool_puts_total",
			Help: "Buffers returned to the shared pool.",
		}, func() float64 {
			_, puts := pools.GlobalStats()
			return float64(puts)
		}),
	)
	return m
}

// Instrument returns a middleware recording count and latency per request.
func (m *Metrics) Instrument() middleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, msg *http.Message) error {
			start := time.Now()
			err := next.ServeHTTP(w, msg)
			m.RequestsTotal.WithLabelValues(msg.Method(), strconv.Itoa(w.Status())).Inc()
			m.RequestDuration.WithLabelValues(msg.Method()).Observe(time.Since(start).Seconds())
			return err
		})
	}
}

// ServeHTTP renders the registry in the Prometheus text exposition format, so
// the metrics endpoint can be mounted on the server's own mux.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, msg *http.Message) error {
	mfs, err := m.registry.Gather()
	if err != nil {
		return http.Error(w, http.StatusInternalServerError)
	}

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode metrics: %w", err)
		}
	}

	w.Header().SetContentType("text/plain; version=0.0.4; charset=utf-8")
	w.Header().SetContentLength(int64(buf.Len()))
	if _, err := w.Write(buf.Bytes()); err != nil {
		return err
	}
	return w.FinalRequest()
}
