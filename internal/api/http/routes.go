package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/i474232898/weather-bridge/internal/weather"
)

// ingestPaths are the endpoints stations push to. Both behave the same; the
// second is the Weather Underground upload path many stations hard-code.
var ingestPaths = []string{
	"/weather",
	"/weatherstation/updateweatherstation.php",
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service, gatherer prometheus.Gatherer) {
	ingest := func(c *fiber.Ctx) error {
		service.Ingest(queryFields(c))
		return c.Status(fiber.StatusOK).SendString("OK")
	}
	for _, p := range ingestPaths {
		app.Get(p, ingest)
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "ok",
			"service":  "weather-bridge",
			"buffered": service.Buffered(),
		})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}

// queryFields returns the query parameters in the order they were sent.
// fasthttp reuses the underlying buffers, so keys and values are copied.
func queryFields(c *fiber.Ctx) []weather.Field {
	args := c.Context().QueryArgs()
	fields := make([]weather.Field, 0, args.Len())
	args.VisitAll(func(k, v []byte) {
		fields = append(fields, weather.Field{Key: string(k), Value: string(v)})
	})
	return fields
}
