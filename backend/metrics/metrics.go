// Package metrics exposes Prometheus collectors for the chat session core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "groupchat"

type Metrics struct {
	gatherer prometheus.Gatherer

	connections prometheus.Gauge
	identities  prometheus.Gauge
	typing      prometheus.Gauge
	messages    *prometheus.CounterVec
	deleted     prometheus.Counter
	reads       prometheus.Counter
	dropped     prometheus.Counter
}

// New registers collectors in a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		gatherer: reg,
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Number of open transport connections.",
		}),
		identities: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_identities",
			Help:      "Number of registered identities.",
		}),
		typing: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "typing_identities",
			Help:      "Number of identities currently typing.",
		}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Messages appended to the store.",
		}, []string{"kind"}),
		deleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_deleted_total",
			Help:      "Messages deleted by their authors.",
		}),
		reads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "read_receipts_total",
			Help:      "Accepted read acknowledgements.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_announcements_total",
			Help:      "Announcements dropped because an endpoint could not keep up.",
		}),
	}
	reg.MustRegister(
		m.connections,
		m.identities,
		m.typing,
		m.messages,
		m.deleted,
		m.reads,
		m.dropped,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) SetConnections(n int)    { m.connections.Set(float64(n)) }
func (m *Metrics) SetIdentities(n int)     { m.identities.Set(float64(n)) }
func (m *Metrics) SetTyping(n int)         { m.typing.Set(float64(n)) }
func (m *Metrics) IncMessages(kind string) { m.messages.WithLabelValues(kind).Inc() }
func (m *Metrics) IncDeleted()             { m.deleted.Inc() }
func (m *Metrics) IncReads()               { m.reads.Inc() }
func (m *Metrics) IncDropped()             { m.dropped.Inc() }
