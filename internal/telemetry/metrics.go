package telemetry

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	httpDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	SessionsStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sessions_started_total",
		Help: "Total onboarding sessions started",
	})
	SessionsCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sessions_completed_total",
		Help: "Total onboarding sessions that finished the flow",
	})
	SurfaceMessages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "surface_messages_total",
		Help: "Inbound surface messages by parsed type",
	}, []string{"type"})
	TrackingDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tracking_events_dropped_total",
		Help: "Tracking events dropped because the egress queue was full",
	})

	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "active_sessions",
		Help: "Number of live onboarding sessions",
	})
	SSEClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sse_clients",
		Help: "Number of currently connected SSE clients",
	})
)

func Init() {
	prometheus.MustRegister(httpReqs, httpDur,
		SessionsStarted, SessionsCompleted, SurfaceMessages, TrackingDropped,
		ActiveSessions, SSEClients)
}

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// get route pattern if available
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}

		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(ww, r)

		httpReqs.WithLabelValues(route, r.Method, http.StatusText(ww.status)).Inc()
		httpDur.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
