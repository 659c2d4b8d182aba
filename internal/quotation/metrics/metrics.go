// Package metrics defines the Prometheus collectors of the quotation service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	QuotationsCreated  prometheus.Counter
	QuotationsDeleted  prometheus.Counter
	QuotationFailures  *prometheus.CounterVec
	DocumentsRendered  *prometheus.CounterVec
	DocumentRenderTime *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New registers every collector on reg. Tests pass a fresh registry.
func New(reg *prometheus.Registry, prefix string) *Metrics {
	f := promauto.With(reg)
	if prefix == "" {
		prefix = "quotation"
	}

	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		QuotationsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_quotations_created_total",
			Help: "Quotations persisted with a newly allocated reference number",
		}),
		QuotationsDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_quotations_deleted_total",
			Help: "Quotations deleted",
		}),
		QuotationFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_quotation_failures_total",
				Help: "Failed quotation operations by operation and error kind",
			},
			[]string{"operation", "kind"},
		),
		DocumentsRendered: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_documents_rendered_total",
				Help: "Rendered quotation documents by format",
			},
			[]string{"format"},
		),
		DocumentRenderTime: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_document_render_duration_seconds",
				Help:    "Time spent assembling a quotation document",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"format"},
		),
		gatherer: reg,
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveRender records one rendered document.
func (m *Metrics) ObserveRender(format string, started time.Time) {
	if m == nil {
		return
	}
	m.DocumentsRendered.WithLabelValues(format).Inc()
	m.DocumentRenderTime.WithLabelValues(format).Observe(time.Since(started).Seconds())
}

// Failure counts a failed operation. kind is a short error class such as
// "validation" or "not_found".
func (m *Metrics) Failure(operation, kind string) {
	if m == nil {
		return
	}
	m.QuotationFailures.WithLabelValues(operation, kind).Inc()
}

// Instrument wraps h so requests are counted under the route template, not
// the raw path, to keep label cardinality bounded.
func (m *Metrics) Instrument(route string, h http.Handler) http.Handler {
	if m == nil {
		return h
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		h.ServeHTTP(rec, r)

		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
