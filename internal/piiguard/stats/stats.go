// Package stats holds the Prometheus metrics of the service. Label values
// are fixed vocabularies; keys, user ids and field values never become
// labels.
package stats

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FilterKeyOpsCounter counts filter key operations by "op" (create, get,
	// extend, remove) and "result" (ok, not_found, owner_mismatch,
	// malformed, error).
	FilterKeyOpsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "piiguard_filter_key_operations_total",
			Help: "Number of filter key operations by outcome.",
		},
		[]string{"op", "result"})

	// RedactionsCounter counts values masked for display, by PII kind.
	RedactionsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "piiguard_redactions_total",
			Help: "Number of values redacted for display.",
		},
		[]string{"kind"})

	ScrubbedRecordsCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "piiguard_scrubbed_records_total",
		Help: "Number of NDJSON records scrubbed.",
	})

	// HttpRequestsTotalCounter is labelled with the route template, never
	// the raw path.
	HttpRequestsTotalCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "piiguard_http_requests_total",
			Help: "Number of HTTP requests.",
		},
		[]string{"route", "code"})

	HttpResponseTimeSecondsHist = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "piiguard_http_response_time_seconds",
			Help: "Duration of HTTP requests.",
		},
		[]string{"route"})
)
