package httpapi

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/i474232898/place-info/internal/metrics"
	"github.com/i474232898/place-info/internal/render"
	"github.com/i474232898/place-info/internal/store"
)

var validate = validator.New()

// Views yields the latest rendered view.
type Views interface {
	Current() render.View
}

// States yields a copy of the render state.
type States interface {
	Snapshot() store.Snapshot
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, views Views, states States) {
	v1 := app.Group("/api/v1")

	v1.Get("/view", func(c *fiber.Ctx) error {
		return c.JSON(views.Current())
	})

	v1.Get("/state", func(c *fiber.Ctx) error {
		return c.JSON(states.Snapshot())
	})

	v1.Get("/places/:id", func(c *fiber.Ctx) error {
		req := placeRequest{ID: c.Params("id")}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		view := views.Current()
		cell, ok := view.Cell(req.ID)
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "unknown place")
		}
		return c.JSON(fiber.Map{
			"place":      cell,
			"renderedAt": view.RenderedAt,
		})
	})
}

// RegisterMetrics exposes the gatherer on /metrics and counts every request
// passing through app.
func RegisterMetrics(app *fiber.App, gatherer prometheus.Gatherer, m *metrics.Metrics) {
	app.Use(func(c *fiber.Ctx) error {
		err := c.Next()
		status := c.Response().StatusCode()
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}
		path := c.Route().Path
		m.HTTPRequest(path, c.Method(), strconv.Itoa(status))
		return err
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}

// placeRequest holds the path parameters of the single-place endpoint.
type placeRequest struct {
	ID string `validate:"required,max=64,printascii"`
}
