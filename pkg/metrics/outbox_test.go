package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestOutboxMetricsCountsByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)

	m.Delivery("quote_submitted", DeliveryPublished)
	m.Delivery("quote_submitted", DeliveryPublished)
	m.Delivery("", DeliveryDeadLettered)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.deliveries.WithLabelValues("quote_submitted", DeliveryPublished)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deliveries.WithLabelValues("unknown", DeliveryDeadLettered)))
}

func TestOutboxMetricsNilSafe(t *testing.T) {
	var m *OutboxMetrics
	m.Delivery("quote_submitted", DeliveryRetry)
	NewOutboxMetrics(nil).Delivery("quote_submitted", DeliveryRetry)
}
