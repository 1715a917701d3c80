// Package metrics содержит счетчики Prometheus сервиса и HTTP middleware.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storagedrive"

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status.",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	QuotaRejections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "quota_rejections_total",
		Help:      "Writes rejected because the owner quota would be exceeded.",
	})

	ActivitiesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "activities_dropped_total",
		Help:      "Activity events dropped because the recorder buffer was full.",
	})

	ActivitiesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "activities_failed_total",
		Help:      "Activity events that could not be written.",
	})

	UploadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "upload_duration_seconds",
		Help:      "Object storage upload latency.",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"provider", "result"})

	ReconcileRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconcile_runs_total",
		Help:      "Counter reconciliation runs per owner by result.",
	}, []string{"result"})
)

// Middleware считает запросы по шаблону маршрута chi, а не по сырому пути
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Handler отдает метрики в формате Prometheus
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveUpload записывает длительность загрузки в хранилище
func ObserveUpload(provider string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	UploadDuration.WithLabelValues(provider, result).Observe(time.Since(start).Seconds())
}
