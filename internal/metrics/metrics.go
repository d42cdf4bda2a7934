package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"proccount/internal/logger"
	"proccount/pkg/models"
)

const namespace = "proccount"

// Metrics mirrors the aggregation counters into a private Prometheus registry.
type Metrics struct {
	registry  *prometheus.Registry
	events    prometheus.Counter
	nodes     prometheus.Counter
	uniqueIDs prometheus.Gauge
	bytesRead prometheus.Counter

	mu        sync.Mutex
	lastBytes int64
	server    *http.Server
	addr      string
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_processed_total",
			Help:      "Audit records folded into the counters.",
		}),
		nodes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "process_nodes_observed_total",
			Help:      "Process nodes observed so far.",
		}),
		uniqueIDs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "unique_ids_observed",
			Help:      "Distinct process identifiers seen so far.",
		}),
		bytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "input_bytes_read_total",
			Help:      "Raw input bytes consumed, before decompression.",
		}),
	}
	m.registry.MustRegister(m.events, m.nodes, m.uniqueIDs, m.bytesRead)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Observe applies the delta between two summaries.
func (m *Metrics) Observe(before, after models.Summary) {
	if d := after.EventsProcessed - before.EventsProcessed; d > 0 {
		m.events.Add(float64(d))
	}
	if d := after.ProcessNodesObserved - before.ProcessNodesObserved; d > 0 {
		m.nodes.Add(float64(d))
	}
	m.uniqueIDs.Set(float64(after.UniqueIDsObserved))
}

// SetBytesRead advances the bytes counter to total.
func (m *Metrics) SetBytesRead(total int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if total > m.lastBytes {
		m.bytesRead.Add(float64(total - m.lastBytes))
		m.lastBytes = total
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve starts a background listener exposing /metrics.
func (m *Metrics) Serve(addr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.server != nil {
		return errors.New("metrics listener already running")
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen metrics %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	m.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	m.addr = ln.Addr().String()

	srv := m.server
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Metrics listener error: %v", err)
		}
	}()

	logger.Infof("Metrics listener started: http://%s/metrics", m.addr)
	return nil
}

// Addr returns the bound listener address, or "" when not serving.
func (m *Metrics) Addr() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addr
}

// Close stops the listener, if any.
func (m *Metrics) Close(ctx context.Context) error {
	m.mu.Lock()
	srv := m.server
	m.server = nil
	m.addr = ""
	m.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
