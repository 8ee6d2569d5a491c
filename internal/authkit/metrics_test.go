package authkit

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestServiceDefaultsToNoopMetrics(t *testing.T) {
	configuration := newTestServerConfig()
	codec, err := configuration.NewCodec(newControllableClock())
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	service, err := NewService(configuration, codec, newTestUserDirectory(), WithMetrics(nil))
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	if _, ok := service.metrics.(noopMetrics); !ok {
		t.Fatalf("expected noop recorder when no metrics are configured, got %T", service.metrics)
	}
}

func TestPrometheusMetricsIncrement(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewPrometheusMetrics(registry)
	metrics.Increment(metricGateAccessReissued)
	metrics.Increment(metricGateAccessReissued)

	if value := testutil.ToFloat64(metrics.events.WithLabelValues(metricGateAccessReissued)); value != 2 {
		t.Fatalf("expected 2, got %v", value)
	}
	if count := testutil.CollectAndCount(metrics.events); count != 1 {
		t.Fatalf("expected one labelled series, got %d", count)
	}
}
