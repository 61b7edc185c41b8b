package http

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
	gatewayDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_http_request_duration_seconds",
		Help:    "Latency of gateway HTTP requests by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method", "status"})

	gatewayRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_http_requests_total",
		Help: "Gateway HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})
)

// MetricsMiddleware counts and times every gateway request per route. The
// socket upgrade path goes through it too, so a websocket connection shows
// up as a single long request when it ends.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		// Route pattern keeps cardinality bounded; raw path only when
		// the request never matched a route.
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}

		status := strconv.Itoa(ww.Status())
		gatewayDuration.WithLabelValues(route, r.Method, status).Observe(time.Since(start).Seconds())
		gatewayRequests.WithLabelValues(route, r.Method, status).Inc()
	})
}
