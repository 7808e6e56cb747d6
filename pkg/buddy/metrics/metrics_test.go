package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordsChatAndUpstream(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := MustNewMetrics(reg)

	m.ObserveChat("weather")
	m.ObserveChat("weather")
	m.ObserveChat("joke")
	m.ObserveUpstream("weather", 20*time.Millisecond, nil)
	m.ObserveUpstream("weather", 10*time.Millisecond, errors.New("boom"))
	m.ObserveCacheHit("weather")
	m.ObserveReminder("scheduled")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.chatMessages.WithLabelValues("weather")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.chatMessages.WithLabelValues("joke")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.upstreamRequests.WithLabelValues("weather", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.upstreamRequests.WithLabelValues("weather", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.upstreamRequests.WithLabelValues("weather", "cached")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reminders.WithLabelValues("scheduled")))

	count, err := testutil.GatherAndCount(reg, "buddy_upstream_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMustNewMetrics_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := MustNewMetrics(reg)
	second := MustNewMetrics(reg)

	first.ObserveChat("greeting")
	second.ObserveChat("greeting")

	assert.Equal(t, 2.0, testutil.ToFloat64(first.chatMessages.WithLabelValues("greeting")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveChat("x")
		m.ObserveUpstream("x", time.Second, nil)
		m.ObserveCacheHit("x")
		m.ObserveReminder("fired")
	})
}
