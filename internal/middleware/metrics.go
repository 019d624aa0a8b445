package middleware

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
)

// InitMetrics builds the HTTP metrics collector for serviceName.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	p := fiberprometheus.New(serviceName)
	// Probes and the scrape endpoint would otherwise dominate the request counters.
	p.SetSkipPaths([]string{"/metrics", "/health/live", "/health/ready", "/health"})
	return p
}

// MetricsMiddleware records request counts and latencies.
func MetricsMiddleware(p *fiberprometheus.FiberPrometheus) fiber.Handler {
	return p.Middleware
}
