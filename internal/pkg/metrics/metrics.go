package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "civic311",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "civic311",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "civic311",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Routing metrics
	ResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "civic311",
		Subsystem: "routing",
		Name:      "resolutions_total",
		Help:      "Total point-to-jurisdiction resolutions by outcome",
	}, []string{"outcome"})

	ResolutionCandidates = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "civic311",
		Subsystem: "routing",
		Name:      "resolution_candidates",
		Help:      "Candidate boundaries returned by the boundary store per resolution",
		Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
	})

	ResolutionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "civic311",
		Subsystem: "routing",
		Name:      "resolution_duration_seconds",
		Help:      "Duration of candidate lookup plus resolution",
		Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
	})

	RequestsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "civic311",
		Subsystem: "requests",
		Name:      "submitted_total",
		Help:      "Total service requests accepted, by resulting status",
	}, []string{"status"})

	RequestsRerouted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "civic311",
		Subsystem: "requests",
		Name:      "rerouted_total",
		Help:      "Total unrouted requests assigned a jurisdiction after a boundary change",
	})

	BoundariesImported = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "civic311",
		Subsystem: "boundaries",
		Name:      "imported_total",
		Help:      "Boundary features processed by the importer",
	}, []string{"result"})

	SafeSearchChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "civic311",
		Subsystem: "safesearch",
		Name:      "checks_total",
		Help:      "Media safe-search checks by result",
	}, []string{"result"})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "civic311",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "civic311",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "civic311",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "civic311",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "civic311",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "civic311",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// UpdateDBPoolMetrics updates database pool gauges from a *pgxpool.Stat.
func UpdateDBPoolMetrics(stat interface{}) {
	type poolStat interface {
		AcquiredConns() int32
		IdleConns() int32
		TotalConns() int32
	}

	if s, ok := stat.(poolStat); ok {
		DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
		DBPoolConnsIdle.Set(float64(s.IdleConns()))
		DBPoolConnsOpen.Set(float64(s.TotalConns()))
	}
}
