package middleware

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis command failures by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapfeed_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// LikesToggled counts like/unlike operations by action.
	LikesToggled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapfeed_likes_toggled_total",
		Help: "Total number of like and unlike operations",
	}, []string{"action"})

	// AttachmentBytes records the size of accepted image attachments.
	AttachmentBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "snapfeed_attachment_bytes",
		Help:    "Size in bytes of accepted image attachments",
		Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
	})
)

// InitMetrics creates the Prometheus HTTP middleware for the given service name.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	return fiberprometheus.New(serviceName)
}

// MetricsMiddleware returns the Fiber handler that records HTTP metrics.
func MetricsMiddleware(prom *fiberprometheus.FiberPrometheus) fiber.Handler {
	return prom.Middleware
}
