package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/jusunglee/njt-go/api/handlers"
	"github.com/jusunglee/njt-go/internal/config"
	"github.com/jusunglee/njt-go/internal/sensor"
	"github.com/jusunglee/njt-go/pkg/njtransit"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "Config file")
		listen     = flag.String("listen", "", "Listen address (overrides config)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	client, err := njtransit.NewLocal(clientConfig(cfg, logger))
	if err != nil {
		logger.Error("Failed to create NJ Transit client", "error", err)
		os.Exit(1)
	}
	client.Start()
	defer client.Close()

	// Create HTTP server
	r := mux.NewRouter()
	h := handlers.NewHandler(client)
	h.RegisterRoutes(r)

	srv := &http.Server{
		Addr:         cfg.Listen,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	go func() {
		logger.Info("Server starting", "addr", cfg.Listen, "sensors", len(cfg.Sensors))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server stopped")
}

func clientConfig(cfg *config.Config, logger *slog.Logger) njtransit.Config {
	sensors := make([]sensor.Config, 0, len(cfg.Sensors))
	for _, s := range cfg.Sensors {
		sensors = append(sensors, sensor.Config{
			ID:          s.ID,
			Name:        s.Name,
			Station:     s.Station,
			Destination: s.Destination,
			Limit:       s.Limit,
		})
	}
	return njtransit.Config{
		Credentials:    cfg.Credentials,
		BaseURL:        cfg.BaseURL,
		UpdateInterval: cfg.UpdateInterval,
		Timeout:        cfg.Timeout,
		TokenTTL:       cfg.TokenTTL,
		NJTOnly:        cfg.NJTOnly,
		Sensors:        sensors,
		Logger:         logger,
	}
}
