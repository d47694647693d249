package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/luphord/remcall/metrics"
)

func TestCountersIncrement(t *testing.T) {
	metrics.CallsSent.With(prometheus.Labels{"interface": "Main"}).Inc()
	metrics.CallsReceived.With(prometheus.Labels{"interface": "Main"}).Inc()
	metrics.MethodErrorCount.Inc()
	metrics.SchemaExchangeCount.Inc()
	metrics.DisconnectCount.Inc()
	metrics.ProtocolErrorCount.With(prometheus.Labels{"kind": "SchemaMismatchError"}).Inc()

	if got := testutil.ToFloat64(metrics.CallsSent.With(prometheus.Labels{"interface": "Main"})); got != 1 {
		t.Errorf("CallsSent = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.MethodErrorCount); got != 1 {
		t.Errorf("MethodErrorCount = %v, want 1", got)
	}
}

func TestGaugeTracksInFlightCalls(t *testing.T) {
	metrics.InFlightCalls.Inc()
	metrics.InFlightCalls.Inc()
	metrics.InFlightCalls.Dec()
	if got := testutil.ToFloat64(metrics.InFlightCalls); got != 1 {
		t.Errorf("InFlightCalls = %v, want 1", got)
	}
}

func TestLatencyHistogramRecordsObservations(t *testing.T) {
	metrics.CallLatencyHistogram.With(prometheus.Labels{"interface": "Main"}).Observe(0.01)
	if n := testutil.CollectAndCount(metrics.CallLatencyHistogram); n == 0 {
		t.Error("expected at least one series collected for CallLatencyHistogram")
	}
}
