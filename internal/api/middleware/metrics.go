package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/edvin/commerce-messaging/internal/model"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "messaging",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, workflow type and status class",
		},
		[]string{"method", "route", "workflow_type", "status_class"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "messaging",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds by route and workflow type",
			// Sync starts can block for the whole wait budget.
			Buckets: []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "route", "workflow_type"},
	)

	httpInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "messaging",
			Name:      "http_inflight_requests",
			Help:      "Requests currently being served, sync starts included",
		},
		[]string{"method"},
	)
)

// Metrics is a chi middleware that records request metrics. Start requests
// are labelled with their workflow type; unmatched routes share one label so
// scanners cannot blow up cardinality.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		inflight := httpInFlight.WithLabelValues(r.Method)
		inflight.Inc()
		defer inflight.Dec()

		next.ServeHTTP(ww, r)

		route, wfType := routeLabels(r)
		httpRequestsTotal.WithLabelValues(r.Method, route, wfType, statusClass(ww.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route, wfType).Observe(time.Since(start).Seconds())
	})
}

// routeLabels returns the matched chi pattern and, for start requests, the
// workflow type named in the path. Unknown types collapse to "unknown".
func routeLabels(r *http.Request) (route, wfType string) {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || rctx.RoutePattern() == "" {
		return "unmatched", ""
	}
	route = rctx.RoutePattern()
	if raw := rctx.URLParam("type"); raw != "" {
		t, err := model.ParseWorkflowType(raw)
		if err != nil {
			return route, "unknown"
		}
		return route, string(t)
	}
	return route, ""
}

func statusClass(status int) string {
	return strconv.Itoa(status/100) + "xx"
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
