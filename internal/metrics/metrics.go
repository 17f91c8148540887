// Package metrics records bridge and wallet telemetry on Prometheus collectors.
// Each Metrics owns a private registry so several bridges in one process do
// not collide.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mrz1836/linkbridge/internal/version"
)

const namespace = "linkbridge"

// Metrics holds the collectors. It implements bridge.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	messagesReceived *prometheus.CounterVec
	messagesDropped  *prometheus.CounterVec
	walletOps        *prometheus.CounterVec
	walletOpDuration *prometheus.HistogramVec
	deliveryFailures *prometheus.CounterVec
	rpcCalls         *prometheus.CounterVec
	rpcDuration      *prometheus.HistogramVec
	buildInfo        *prometheus.GaugeVec
}

// New creates a Metrics with its own registry, including Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		messagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Frame messages accepted by the bridge, by kind.",
		}, []string{"kind"}),
		messagesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_dropped_total",
			Help:      "Frame messages ignored by the bridge, by reason.",
		}, []string{"reason"}),
		walletOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wallet_operations_total",
			Help:      "Wallet operations run for the frame.",
		}, []string{"family", "operation", "result"}),
		walletOpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "wallet_operation_duration_seconds",
			Help:      "Wallet operation latency, including user approval.",
			Buckets:   []float64{0.05, 0.25, 1, 5, 15, 60, 300},
		}, []string{"family", "operation"}),
		deliveryFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_failures_total",
			Help:      "Outbound messages that could not be posted to the frame.",
		}, []string{"type"}),
		rpcCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_calls_total",
			Help:      "Node and wallet RPC calls, by family and result.",
		}, []string{"family", "method", "result"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_call_duration_seconds",
			Help:      "Node and wallet RPC latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"family"}),
		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build information for linkbridge.",
		}, []string{"version", "commit", "platform"}),
	}

	m.registry.MustRegister(
		m.messagesReceived,
		m.messagesDropped,
		m.walletOps,
		m.walletOpDuration,
		m.deliveryFailures,
		m.rpcCalls,
		m.rpcDuration,
		m.buildInfo,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m.buildInfo.WithLabelValues(version.Version, version.Commit, version.Platform).Set(1)
	return m
}

var (
	defaultOnce sync.Once //nolint:gochecknoglobals // lazily created process metrics
	defaultM    *Metrics  //nolint:gochecknoglobals // lazily created process metrics
)

// Default returns the process-wide Metrics used by the CLI.
func Default() *Metrics {
	defaultOnce.Do(func() { defaultM = New() })
	return defaultM
}

// Registry exposes the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// MessageReceived records an accepted frame message.
func (m *Metrics) MessageReceived(kind string) {
	m.messagesReceived.WithLabelValues(kind).Inc()
}

// MessageDropped records an ignored frame message.
func (m *Metrics) MessageDropped(reason string) {
	m.messagesDropped.WithLabelValues(reason).Inc()
}

// WalletOperation records a finished wallet operation.
func (m *Metrics) WalletOperation(family, operation, result string, elapsed time.Duration) {
	m.walletOps.WithLabelValues(family, operation, result).Inc()
	m.walletOpDuration.WithLabelValues(family, operation).Observe(elapsed.Seconds())
}

// DeliveryFailed records a message that could not be posted.
func (m *Metrics) DeliveryFailed(msgType string) {
	m.deliveryFailures.WithLabelValues(msgType).Inc()
}

// RecordRPCCall records an RPC call with its duration and success status.
func (m *Metrics) RecordRPCCall(family, method string, duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.rpcCalls.WithLabelValues(family, method, result).Inc()
	m.rpcDuration.WithLabelValues(family).Observe(duration.Seconds())
}

// Snapshot is a point-in-time summary of the counters.
type Snapshot struct {
	MessagesReceived int64
	MessagesDropped  int64
	WalletOpsTotal   int64
	WalletOpsErrors  int64
	WalletOpsRejects int64
	DeliveryFailures int64
	RPCCallsTotal    int64
	RPCErrorsTotal   int64
}

// Snapshot sums the counters across their labels.
func (m *Metrics) Snapshot() Snapshot {
	var s Snapshot
	families, err := m.registry.Gather()
	if err != nil {
		return s
	}

	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			v := int64(metric.GetCounter().GetValue())
			switch mf.GetName() {
			case namespace + "_messages_received_total":
				s.MessagesReceived += v
			case namespace + "_messages_dropped_total":
				s.MessagesDropped += v
			case namespace + "_delivery_failures_total":
				s.DeliveryFailures += v
			case namespace + "_wallet_operations_total":
				s.WalletOpsTotal += v
				switch label(metric.GetLabel(), "result") {
				case "error":
					s.WalletOpsErrors += v
				case "rejected":
					s.WalletOpsRejects += v
				}
			case namespace + "_rpc_calls_total":
				s.RPCCallsTotal += v
				if label(metric.GetLabel(), "result") == "error" {
					s.RPCErrorsTotal += v
				}
			}
		}
	}
	return s
}

type labelPair interface {
	GetName() string
	GetValue() string
}

func label[L labelPair](pairs []L, name string) string {
	for _, p := range pairs {
		if p.GetName() == name {
			return p.GetValue()
		}
	}
	return ""
}
