package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	httpapi "github.com/i474232898/weather-bridge/internal/api/http"
	"github.com/i474232898/weather-bridge/internal/bus"
	"github.com/i474232898/weather-bridge/internal/config"
	"github.com/i474232898/weather-bridge/internal/discovery"
	"github.com/i474232898/weather-bridge/internal/metrics"
	"github.com/i474232898/weather-bridge/internal/scheduler"
	"github.com/i474232898/weather-bridge/internal/store"
	"github.com/i474232898/weather-bridge/internal/weather"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      cfg.LogLevel,
		TimeFormat: time.DateTime,
	}))
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("weather-bridge stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.AppConfig, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// Readings live here until the daily flush.
	buffer := store.NewMemoryBuffer()
	sink := store.NewDailyCSV(cfg.DataDir)

	client := bus.New(bus.Config{
		Host:     cfg.MQTTBroker,
		Port:     cfg.MQTTPort,
		Username: cfg.MQTTUsername,
		Password: cfg.MQTTPassword,
	}, log)

	connectCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	if err := client.Connect(connectCtx); err != nil {
		log.Warn("broker not reachable at startup; will retry on next publish", "error", err)
	}
	cancel()

	service := weather.NewService(buffer, client, sink, m, log, weather.ServiceConfig{
		StateTopic: cfg.MQTTTopic,
		Location:   cfg.Location,
	})

	// Discovery runs once, before the recurring tasks.
	catalog, err := discovery.Load()
	if err != nil {
		return err
	}
	announcer := discovery.NewAnnouncer(client, catalog, discovery.Options{
		Prefix:     cfg.DiscoveryPrefix,
		DeviceID:   cfg.DeviceID,
		StateTopic: cfg.MQTTTopic,
	}, m, log)

	announceCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := announcer.Announce(announceCtx); err != nil {
		log.Warn("some discovery configs were not published", "error", err)
	}
	cancel()

	flushAt, err := scheduler.ParseDailyAt(cfg.FlushAt, cfg.Location)
	if err != nil {
		return err
	}
	sched := scheduler.New(service, cfg.PublishInterval, flushAt, log)
	if err := sched.Start(); err != nil {
		return err
	}

	app := fiber.New(fiber.Config{
		AppName:               "weather-bridge",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
	})
	app.Use(logger.New())
	app.Use(recover.New())
	httpapi.RegisterRoutes(app, service, reg)

	listenErr := make(chan error, 1)
	go func() {
		addr := ":" + strconv.Itoa(cfg.Port)
		log.Info("listening for station uploads", "addr", addr)
		listenErr <- app.Listen(addr)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case runErr = <-listenErr:
		log.Error("http server stopped", "error", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during http shutdown", "error", err)
	}

	sched.Stop()

	if cfg.FlushOnShutdown {
		if err := service.Flush(); err != nil {
			log.Error("final flush failed", "error", err)
		}
	} else if n := service.Buffered(); n > 0 {
		log.Warn("discarding buffered readings", "count", n)
	}

	if err := client.Close(); err != nil {
		log.Warn("error disconnecting from broker", "error", err)
	}
	return runErr
}
