package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// unmatchedRoute labels requests no chi route matched, so that scanners
// probing random paths cannot blow up series cardinality.
const unmatchedRoute = "unmatched"

var (
	httpRequests = counterVec("http_requests_total",
		"HTTP requests by route pattern and status", "method", "route", "status")

	httpLatency = histogramVec("http_request_duration_seconds",
		"HTTP request latency by route pattern",
		[]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		"method", "route", "status")

	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "http_requests_in_flight",
		Help:      "HTTP requests currently being served",
	})
)

// HTTP records count, latency and concurrency of the requests served by next.
// Mount it with Router.Use so the route pattern is known once next returns.
func HTTP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		labels := []string{r.Method, route(r), strconv.Itoa(status)}
		httpLatency.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
		httpRequests.WithLabelValues(labels...).Inc()
	})
}

func route(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return unmatchedRoute
}
