// Package telemetry exposes the prometheus endpoint and the process-wide
// decode outcome counters.
package telemetry

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var decodeEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "avroflow_decode_events_total",
	Help: "Decoded records by payload format and outcome.",
}, []string{"format", "outcome"})

var sinkErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "avroflow_sink_errors_total",
	Help: "Tuples a sink failed to deliver, by sink name.",
}, []string{"sink"})

// SinkErrors resolves the delivery-failure counter for a sink name.
func SinkErrors(name string) prometheus.Counter {
	return sinkErrors.WithLabelValues(name)
}

// EventCounters is one format's slice of the decode counter vec. Decoder
// adapters publish their per-batch totals into it at flush time.
type EventCounters struct {
	Success prometheus.Counter
	Error   prometheus.Counter
}

// DecodeEvents resolves the counter pair for a payload format ("avro").
func DecodeEvents(format string) EventCounters {
	return EventCounters{
		Success: decodeEvents.WithLabelValues(format, "success"),
		Error:   decodeEvents.WithLabelValues(format, "error"),
	}
}

// Expose serves /metrics on the given port for the process lifetime.
func Expose(port int) {
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		_ = http.ListenAndServe(fmt.Sprintf(":%d", port), nil)
	}()
}
