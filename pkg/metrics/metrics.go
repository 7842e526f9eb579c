// Package metrics exports storage handler operations as Prometheus metrics.
//
//	obs := metrics.New(prometheus.DefaultRegisterer)
//	h := filestorage.NewHandler(backend, filestorage.WithObserver(obs))
//
// Every completed operation increments filestorage_operations_total and
// records its latency in filestorage_operation_duration_seconds, both
// labelled by handler name, operation and result.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/filestorage"
)

const namespace = "filestorage"

// Operation results used as the "result" label.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultConfig   = "config_error"
	ResultCanceled = "canceled"
	ResultError    = "error"
)

// Observer implements filestorage.Observer.
type Observer struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	rejected   *prometheus.CounterVec
}

var _ filestorage.Observer = (*Observer)(nil)

// Option configures an Observer.
type Option func(*options)

type options struct {
	buckets []float64
}

// WithBuckets overrides the latency histogram buckets.
func WithBuckets(buckets ...float64) Option {
	return func(o *options) {
		if len(buckets) > 0 {
			o.buckets = buckets
		}
	}
}

// New creates an Observer and registers its collectors with reg. A nil reg
// leaves them unregistered.
func New(reg prometheus.Registerer, opts ...Option) *Observer {
	o := options{buckets: prometheus.DefBuckets}
	for _, opt := range opts {
		opt(&o)
	}

	m := &Observer{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Total number of completed storage operations.",
		}, []string{"handler", "op", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Storage operation latency in seconds.",
			Buckets:   o.buckets,
		}, []string{"handler", "op", "result"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_files_total",
			Help:      "Files rejected by a filter, by rejection code.",
		}, []string{"handler", "code"}),
	}
	if reg != nil {
		reg.MustRegister(m.operations, m.duration, m.rejected)
	}
	return m
}

// ObserveOperation implements filestorage.Observer.
func (m *Observer) ObserveOperation(_ context.Context, handler, op string, d time.Duration, err error) {
	if handler == "" {
		handler = "default"
	}
	result := Result(err)
	m.operations.WithLabelValues(handler, op, result).Inc()
	m.duration.WithLabelValues(handler, op, result).Observe(d.Seconds())

	var rej *filestorage.FileRejectedError
	if errors.As(err, &rej) {
		code := rej.Code
		if code == "" {
			code = "unknown"
		}
		m.rejected.WithLabelValues(handler, code).Inc()
	}
}

// Result classifies an operation error for the "result" label.
func Result(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, filestorage.ErrFileNotAllowed):
		return ResultRejected
	case errors.Is(err, filestorage.ErrConfig):
		return ResultConfig
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ResultCanceled
	default:
		return ResultError
	}
}

// Handler serves the metrics gathered by g, or the default gatherer when g
// is nil.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
