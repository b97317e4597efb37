package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthCheck probes one optional dependency.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// RegisterRoutes registers all HTTP routes on the Fiber app.
func RegisterRoutes(app *fiber.App, keeperHandler *KeeperHandler, checks ...HealthCheck) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Get("/health", func(c *fiber.Ctx) error {
		count, limit, remaining := keeperHandler.service.QuotaState()

		quotaState := "open"
		if count >= limit {
			quotaState = "closed"
		}
		resp := HealthResponse{
			Status:        "ok",
			Checks:        map[string]string{"quota": quotaState},
			RealCallCount: count,
			Limit:         limit,
			Remaining:     remaining,
		}
		code := fiber.StatusOK

		healthCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		for _, hc := range checks {
			if err := hc.Check(healthCtx); err != nil {
				resp.Checks[hc.Name] = err.Error()
				resp.Status = "degraded"
				code = fiber.StatusServiceUnavailable
				continue
			}
			resp.Checks[hc.Name] = "ok"
		}

		return c.Status(code).JSON(resp)
	})

	app.Get("/keeper/get-secret", keeperHandler.GetSecret)
}
