package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/zvonrelay/golang_services/internal/platform/config"
	"github.com/zvonrelay/golang_services/internal/platform/logger"
	"github.com/zvonrelay/golang_services/internal/platform/messagebroker"
	"github.com/zvonrelay/golang_services/internal/relay_service/app"
	"github.com/zvonrelay/golang_services/internal/relay_service/domain"
	"github.com/zvonrelay/golang_services/internal/relay_service/provider"
	httptransport "github.com/zvonrelay/golang_services/internal/relay_service/transport/http"
	"github.com/zvonrelay/golang_services/web"
	"golang.org/x/sync/errgroup"
)

const serviceName = "relay_service"

func main() {
	mainCtx, mainCancel := context.WithCancel(context.Background())
	defer mainCancel()

	cfg, err := config.Load(serviceName)
	if err != nil {
		slog.Error("Failed to load configuration", "service", serviceName, "error", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.LogLevel).With("service", serviceName)
	if err := cfg.Validate(); err != nil {
		appLogger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	appLogger.Info("Relay service starting...", "port", cfg.RelayServicePort, "provider_base_url", cfg.ProviderBaseURL)

	// Dispatch events are optional; the relay works without a broker.
	var publisher app.EventPublisher
	if cfg.NATSUrl != "" {
		natsClient, err := messagebroker.NewNatsClient(cfg.NATSUrl, "relay-service", appLogger)
		if err != nil {
			appLogger.Warn("Failed to connect to NATS, dispatch events disabled", "error", err)
		} else {
			defer natsClient.Close()
			publisher = natsClient
			appLogger.Info("Successfully connected to NATS")
		}
	}

	httpClient := &http.Client{Timeout: cfg.ProviderTimeout()}
	zvonobot := provider.NewZvonobotClient(appLogger, cfg.ProviderBaseURL, cfg.ProviderAPIKey, httpClient)
	relayApp := app.NewRelayService(zvonobot, publisher, appLogger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Service:        relayApp,
		Validate:       domain.NewValidator(),
		Logger:         appLogger,
		AllowedOrigins: cfg.AllowedOrigins(),
		RequestTimeout: cfg.RequestTimeout(),
		Static:         web.StaticFS(),
	})

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.RelayServicePort),
		Handler: router,
	}

	g, groupCtx := errgroup.WithContext(mainCtx)

	g.Go(func() error {
		appLogger.Info("HTTP server starting", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("HTTP server ListenAndServe error", "error", err)
			return err
		}
		appLogger.Info("HTTP server shut down gracefully.")
		return nil
	})

	stopSignal := make(chan os.Signal, 1)
	signal.Notify(stopSignal, syscall.SIGINT, syscall.SIGTERM)

	g.Go(func() error {
		select {
		case sig := <-stopSignal:
			appLogger.Info("Received termination signal", "signal", sig.String())
			mainCancel()
		case <-groupCtx.Done():
		}
		return nil
	})

	g.Go(func() error {
		<-groupCtx.Done()
		appLogger.Info("Initiating graceful shutdown of HTTP server...")

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancelShutdown()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("HTTP server graceful shutdown failed", "error", err)
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		appLogger.Error("Relay service exited with error", "error", err)
		os.Exit(1)
	}
	appLogger.Info("Relay service shut down.")
}
