// Package metrics defines prometheus metric types and provides convenience
// methods to add accounting to a bridge's call traffic and protocol errors.
//
// When defining new operations or metrics, these are helpful values to track:
//  - things coming into or go out of the system: calls, schemas, frames.
//  - the success or error status of any of the above.
//  - the distribution of processing latency.
package metrics

import (
	"log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CallLatencyHistogram tracks the time between a CALL_METHOD frame being
	// sent and its RETURN_FROM_METHOD or METHOD_ERROR response arriving,
	// labeled by the flattened method ordinal's declaring interface name.
	CallLatencyHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "remcall_call_latency_seconds",
			Help: "round-trip latency of a remote method call (seconds)",
			Buckets: []float64{
				0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05,
				0.1, 0.25, 0.5, 1, 2.5, 5, 10,
			},
		},
		[]string{"interface"})

	// CallsSent counts outbound CALL_METHOD frames, labeled by interface.
	CallsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remcall_calls_sent_total",
			Help: "Number of CALL_METHOD frames written to the peer.",
		}, []string{"interface"})

	// CallsReceived counts inbound CALL_METHOD frames dispatched to a local
	// implementation object, labeled by interface.
	CallsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remcall_calls_received_total",
			Help: "Number of CALL_METHOD frames dispatched to a local implementation.",
		}, []string{"interface"})

	// InFlightCalls tracks the number of CALL_METHOD requests awaiting a
	// response at this instant.
	InFlightCalls = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "remcall_calls_in_flight",
			Help: "Number of outbound calls awaiting a response.",
		},
	)

	// ProtocolErrorCount measures the number of protocol-level errors
	// surfaced by the codec or communication packages, by kind (the Go type
	// name of the RemcallError encountered, e.g. "SchemaMismatchError").
	//
	// Example usage:
	//   metrics.ProtocolErrorCount.With(prometheus.Labels{"kind": "SchemaMismatchError"}).Inc()
	ProtocolErrorCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remcall_protocol_errors_total",
			Help: "The total number of protocol-level errors encountered.",
		}, []string{"kind"})

	// MethodErrorCount counts METHOD_ERROR responses received, i.e. calls
	// that reached the peer but whose implementation method was missing or
	// itself failed.
	MethodErrorCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "remcall_method_errors_total",
			Help: "Number of METHOD_ERROR responses received.",
		},
	)

	// SchemaExchangeCount counts completed schema handshakes (a SEND_SCHEMA
	// frame received and matched against the locally expected schema).
	SchemaExchangeCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "remcall_schema_exchanges_total",
			Help: "Number of peer schemas received and verified.",
		},
	)

	// DisconnectCount counts graceful DISCONNECT/ACKNOWLEDGE_DISCONNECT
	// handshakes completed.
	DisconnectCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "remcall_disconnects_total",
			Help: "Number of graceful disconnect handshakes completed.",
		},
	)
)

// init() prints a log message to let the user know that the package has been
// loaded and the metrics registered. The metrics are auto-registered, which
// means they are registered as soon as this package is loaded, and the exact
// time this occurs (and whether this occurs at all in a given context) can be
// opaque.
func init() {
	log.Println("Prometheus metrics in remcall.metrics are registered.")
}
