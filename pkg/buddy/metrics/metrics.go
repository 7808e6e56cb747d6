// Package metrics exposes the Prometheus collectors for the assistant: chat
// traffic per intent and latency/outcome of every upstream API call.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "buddy"

// Metrics holds the registered collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	chatMessages     *prometheus.CounterVec
	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	reminders        *prometheus.CounterVec
}

// MustNewMetrics registers the collectors with reg (the default registerer
// when nil). Collectors already registered under the same name are reused so
// tests and multiple servers in one process can share a registry.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	chatMessages := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_messages_total",
			Help:      "Chat messages answered, by matched intent.",
		},
		[]string{"intent"},
	)
	upstreamRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Requests to external services, by service and outcome.",
		},
		[]string{"service", "status"},
	)
	upstreamDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Latency of requests to external services.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	reminders := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_total",
			Help:      "Reminder lifecycle events (scheduled, fired).",
		},
		[]string{"event"},
	)

	chatMessages = register(reg, chatMessages)
	upstreamRequests = register(reg, upstreamRequests)
	upstreamDuration = register(reg, upstreamDuration)
	reminders = register(reg, reminders)

	return &Metrics{
		chatMessages:     chatMessages,
		upstreamRequests: upstreamRequests,
		upstreamDuration: upstreamDuration,
		reminders:        reminders,
	}
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// ObserveChat counts one answered message.
func (m *Metrics) ObserveChat(intent string) {
	if m == nil {
		return
	}
	m.chatMessages.WithLabelValues(intent).Inc()
}

// ObserveUpstream records one external call. err decides the status label.
func (m *Metrics) ObserveUpstream(service string, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.upstreamRequests.WithLabelValues(service, status).Inc()
	m.upstreamDuration.WithLabelValues(service).Observe(d.Seconds())
}

// ObserveCacheHit counts a lookup answered from cache.
func (m *Metrics) ObserveCacheHit(service string) {
	if m == nil {
		return
	}
	m.upstreamRequests.WithLabelValues(service, "cached").Inc()
}

// ObserveReminder counts a reminder event ("scheduled" or "fired").
func (m *Metrics) ObserveReminder(event string) {
	if m == nil {
		return
	}
	m.reminders.WithLabelValues(event).Inc()
}
