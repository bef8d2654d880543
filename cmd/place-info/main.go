package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	httpapi "github.com/i474232898/place-info/internal/api/http"
	"github.com/i474232898/place-info/internal/config"
	"github.com/i474232898/place-info/internal/logging"
	"github.com/i474232898/place-info/internal/metrics"
	"github.com/i474232898/place-info/internal/placeinfo"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr := logging.NewLogger(cfg.LogLevel)

	// Dedicated registry so /metrics only carries this service's collectors.
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg)

	startCtx, cancelStart := context.WithTimeout(context.Background(), cfg.HTTPTimeout)
	module, err := placeinfo.New(startCtx, cfg, logr, m)
	cancelStart()
	if err != nil {
		log.Fatalf("failed to build module: %v", err)
	}

	if err := module.Start(); err != nil {
		log.Fatalf("failed to start module: %v", err)
	}
	defer module.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "place-info",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())
	httpapi.RegisterMetrics(app, reg, m)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "place-info",
			"places":  len(module.Places()),
		})
	})

	httpapi.RegisterRoutes(app, module.Renderer(), module.State())

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logr.Error("fiber server stopped", "error", err)
		}
	}()
	logr.Info("listening", "port", cfg.Port)

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logr.Error("error during shutdown", "error", err)
	}
}
