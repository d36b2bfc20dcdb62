package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTP operation labels. Unrouted requests are "unknown".
const (
	OpUnknown = "unknown"
	OpOther   = "other"
)

// routeOperations names each API route by the engine operation it serves.
var routeOperations = map[string]string{
	"PUT /entities/{id}":        "upsert_entity",
	"GET /entities/{id}":        "get_entity",
	"DELETE /entities/{id}":     "delete_entity",
	"POST /entities/batch":      "upsert_entities",
	"GET /jobs/{id}/matches":    "match",
	"GET /candidates/{id}/jobs": "recommend_jobs",
	"POST /matches/batch":       "match_many",
	"POST /admin/rebuild":       "rebuild",
	"POST /admin/snapshot":      "snapshot",
	"GET /admin/stats":          "stats",
	"GET /health":               "health",
	"GET /metrics":              "metrics",
}

var (
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration by engine operation",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"operation", "outcome"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by engine operation and status",
		},
		[]string{"operation", "status"},
	)
)

func httpCollectors() []prometheus.Collector {
	return []prometheus.Collector{httpRequestDuration, httpRequestsTotal}
}

// Operation maps a chi route pattern to its engine operation name.
func Operation(method, route string) string {
	if route == "" {
		return OpUnknown
	}
	if op, ok := routeOperations[method+" "+route]; ok {
		return op
	}
	return OpOther
}

// Outcome buckets an HTTP status: ok, client_error or server_error.
func Outcome(status int) string {
	switch {
	case status >= http.StatusInternalServerError:
		return "server_error"
	case status >= http.StatusBadRequest:
		return "client_error"
	default:
		return "ok"
	}
}

// Middleware records request duration and count per engine operation.
func Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			op := Operation(r.Method, chi.RouteContext(r.Context()).RoutePattern())

			httpRequestDuration.WithLabelValues(op, Outcome(status)).Observe(time.Since(start).Seconds())
			httpRequestsTotal.WithLabelValues(op, strconv.Itoa(status)).Inc()
		})
	}
}
