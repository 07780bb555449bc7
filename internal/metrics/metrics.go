// Package metrics exposes Prometheus metrics for the relay.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Message kinds.
const (
	KindChat    = "chat"
	KindCommand = "command"
	KindIgnored = "ignored"
)

// Metrics holds the relay's collectors. A nil *Metrics records nothing.
type Metrics struct {
	MessagesTotal          *prometheus.CounterVec
	CompletionsTotal       *prometheus.CounterVec
	CompletionDuration     prometheus.Histogram
	ReplyFragmentsTotal    prometheus.Counter
	ReplySendFailuresTotal prometheus.Counter

	registry *prometheus.Registry
}

// New creates the collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		MessagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_messages_total",
				Help: "Inbound messages by kind",
			},
			[]string{"kind"},
		),
		CompletionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_completions_total",
				Help: "Completion API calls by result",
			},
			[]string{"result"},
		),
		CompletionDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "relay_completion_duration_seconds",
				Help:    "Duration of completion API calls in seconds",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
			},
		),
		ReplyFragmentsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "relay_reply_fragments_total",
				Help: "Reply messages sent to chats",
			},
		),
		ReplySendFailuresTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "relay_reply_send_failures_total",
				Help: "Reply messages the chat platform refused",
			},
		),
		registry: reg,
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveMessage(kind string) {
	if m == nil {
		return
	}
	m.MessagesTotal.WithLabelValues(kind).Inc()
}

// ObserveCompletion records one completion call. result is "ok" or an
// error kind.
func (m *Metrics) ObserveCompletion(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.CompletionsTotal.WithLabelValues(result).Inc()
	m.CompletionDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveFragments(sent int, failed bool) {
	if m == nil {
		return
	}
	m.ReplyFragmentsTotal.Add(float64(sent))
	if failed {
		m.ReplySendFailuresTotal.Inc()
	}
}
