package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bestsellers_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	HttpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bestsellers_http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	SummariesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bestsellers_summaries_total",
		Help: "Summary requests by provider and outcome",
	}, []string{"provider", "outcome"})

	SummaryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bestsellers_summary_duration_seconds",
		Help:    "Time spent waiting for the summary provider",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
	}, []string{"provider"})

	DatasetEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bestsellers_dataset_entries",
		Help: "Number of entries in the loaded dataset",
	})
)

// Instrument records request count and latency labelled by the chi route
// pattern, so path parameters do not blow up label cardinality.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if pattern := rc.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		HttpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		HttpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
