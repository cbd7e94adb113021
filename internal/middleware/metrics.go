package middleware

import (
	"sync"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matchday_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// ActiveWebSockets is the gauge of active realtime connections.
	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "matchday_realtime_connections",
		Help: "Number of active realtime websocket connections",
	})

	// ChangeEventsTotal counts change events fanned out by collection and event kind.
	ChangeEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matchday_change_events_total",
		Help: "Total change events delivered to subscribers",
	}, []string{"collection", "event"})
)

var (
	promOnce       sync.Once
	promMiddleware *fiberprometheus.FiberPrometheus
)

// InitMetrics creates the Prometheus middleware for the given service name.
// The instance is shared: fiberprometheus registers its collectors with the
// default registry, and a second registration panics.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		promMiddleware = fiberprometheus.New(serviceName)
	})
	return promMiddleware
}

// MetricsMiddleware wraps the fiberprometheus middleware as a fiber.Handler.
func MetricsMiddleware(p *fiberprometheus.FiberPrometheus) fiber.Handler {
	return p.Middleware
}
