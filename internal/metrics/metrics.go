// Package metrics exposes the Prometheus collectors of the graph service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// VerticesCreated counts vertices written to the store.
	VerticesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spacetime_vertices_total",
		Help: "Vertices inserted",
	})

	// EdgesCreated counts edges whose links were new, by semantic type.
	EdgesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spacetime_edges_total",
		Help: "Committed edges by semantic type",
	}, []string{"sttype"})

	// EdgeErrors counts rejected edges by reason.
	EdgeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spacetime_edge_errors_total",
		Help: "Rejected edge creations by reason",
	}, []string{"reason"})

	// PathQueryDuration tracks path search latency.
	PathQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "spacetime_path_query_duration_seconds",
		Help:    "Path search duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	}, []string{"kind"})

	// PathsReturned tracks the number of decoded paths per search.
	PathsReturned = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "spacetime_paths_returned",
		Help:    "Decoded paths per search",
		Buckets: []float64{0, 1, 5, 10, 50, 100, 500},
	}, []string{"kind"})

	// MalformedPaths counts path results that failed to decode.
	MalformedPaths = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spacetime_malformed_paths_total",
		Help: "Path results that did not match the wire grammar",
	})

	// ImportedFiles counts import files by outcome.
	ImportedFiles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spacetime_imported_files_total",
		Help: "Graph import files by outcome",
	}, []string{"result"})
)

// ObservePathQuery records one path search that started at start.
func ObservePathQuery(kind string, start time.Time, paths int) {
	PathQueryDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	PathsReturned.WithLabelValues(kind).Observe(float64(paths))
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
