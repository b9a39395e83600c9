package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviews", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "reviews", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	RPCRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviews", Name: "rpc_requests_total", Help: "gRPC requests."},
		[]string{"method", "code"},
	)
	RPCLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "reviews", Name: "rpc_request_duration_seconds",
			Help:    "gRPC request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
	StorageOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviews", Name: "storage_operations_total", Help: "Repository calls."},
		[]string{"backend", "op", "outcome"}, // outcome: ok|not_found|error
	)
	StorageLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "reviews", Name: "storage_operation_duration_seconds",
			Help:    "Repository call duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "op"},
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviews", Name: "cache_events_total", Help: "Cache hits/misses/sets/dels."},
		[]string{"cache", "event"}, // event: hit|miss|set|del|incr
	)
)

// Serve exposes reg on a dedicated listener; an empty addr disables it.
func Serve(addr string, reg *prometheus.Registry) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler(reg))

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(HTTPRequests, HTTPLatency, RPCRequests, RPCLatency, StorageOps, StorageLatency, CacheEvents)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveRPC(method, code string, dur time.Duration) {
	RPCRequests.WithLabelValues(method, code).Inc()
	RPCLatency.WithLabelValues(method).Observe(dur.Seconds())
}

func ObserveStorage(backend, op, outcome string, dur time.Duration) {
	StorageOps.WithLabelValues(backend, op, outcome).Inc()
	StorageLatency.WithLabelValues(backend, op).Observe(dur.Seconds())
}

func ObserveCache(cache, event string) {
	CacheEvents.WithLabelValues(cache, event).Inc()
}
