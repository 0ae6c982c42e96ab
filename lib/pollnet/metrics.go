package pollnet

import (
	"github.com/VictoriaMetrics/metrics"
)

// Engine counters, shared by all clients and servers of the process.
// Expose them with metrics.WritePrometheus.
var (
	acceptsTotal         = metrics.GetOrCreateCounter("pollnet_accepts_total")
	acceptErrorsTotal    = metrics.GetOrCreateCounter("pollnet_accept_errors_total")
	connectsTotal        = metrics.GetOrCreateCounter("pollnet_connects_total")
	connectFailuresTotal = metrics.GetOrCreateCounter("pollnet_connect_failures_total")
	disconnectsTotal     = metrics.GetOrCreateCounter("pollnet_disconnects_total")
	bytesReceivedTotal   = metrics.GetOrCreateCounter("pollnet_bytes_received_total")
	bytesSentTotal       = metrics.GetOrCreateCounter("pollnet_bytes_sent_total")
	compactionsTotal     = metrics.GetOrCreateCounter("pollnet_compactions_total")
	overflowsTotal       = metrics.GetOrCreateCounter("pollnet_recv_buffer_overflows_total")
)
