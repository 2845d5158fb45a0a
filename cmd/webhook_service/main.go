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
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/hookroom/webhook-gateway/internal/platform/config"
	"github.com/hookroom/webhook-gateway/internal/platform/database"
	"github.com/hookroom/webhook-gateway/internal/platform/logger"
	"github.com/hookroom/webhook-gateway/internal/platform/messagebroker"
	"github.com/hookroom/webhook-gateway/internal/webhook_service/adapters/chat"
	transporthttp "github.com/hookroom/webhook-gateway/internal/webhook_service/adapters/http"
	"github.com/hookroom/webhook-gateway/internal/webhook_service/app"
	"github.com/hookroom/webhook-gateway/internal/webhook_service/repository/postgres"
	"github.com/hookroom/webhook-gateway/internal/webhook_service/template"
)

const (
	serviceName     = "webhook_service"
	shutdownTimeout = 10 * time.Second
)

func main() {
	mainCtx, mainCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer mainCancel()

	cfg, err := config.Load(serviceName)
	if err != nil {
		slog.Error("Failed to load configuration", "service", serviceName, "error", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.LogLevel).With("service", serviceName)
	appLogger.Info("Starting service...",
		"http_port", cfg.HTTPPort,
		"metrics_port", cfg.MetricsPort,
		"nats_url", cfg.NATSURL,
		"postgres_dsn_present", cfg.PostgresDSN != "",
	)

	dbPool, err := database.NewDBPool(mainCtx, cfg.PostgresDSN)
	if err != nil {
		appLogger.Error("Failed to initialize database connection pool", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()
	appLogger.Info("Database connection pool initialized")

	natsClient, err := messagebroker.NewNatsClient(cfg.NATSURL, serviceName, appLogger)
	if err != nil {
		appLogger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer natsClient.Close()
	appLogger.Info("NATS connection initialized")

	outgoingRepo := postgres.NewPgOutgoingRepository(dbPool, appLogger)
	incomingRepo := postgres.NewPgIncomingRepository(dbPool, appLogger)
	chatClient := chat.NewNATSClient(natsClient, cfg.ChatSendSubject, appLogger)

	defaultTemplate := defaultTemplateFromConfig(cfg)
	renderer := template.NewRenderer(customFieldsFromConfig(cfg), cfg.IncludeEmptyFields)

	dispatcher := app.NewDispatcher(outgoingRepo, chatClient, renderer, defaultTemplate, app.DispatcherOptions{
		UserAgent:        cfg.WebhookUserAgent,
		ResponseTemplate: cfg.ResponseTemplate,
		Timeout:          cfg.WebhookTimeout(),
		MaxRetries:       cfg.MaxWebhookRetries,
	}, appLogger)

	consumer := app.NewEventConsumer(
		natsClient, dispatcher, outgoingRepo, incomingRepo,
		dispatchBudget(cfg), appLogger,
	)

	lifecycle := app.NewLifecycleService(outgoingRepo, incomingRepo, appLogger)
	validate := validator.New()
	inboundHandler := transporthttp.NewInboundHandler(incomingRepo, chatClient, validate, appLogger)
	adminHandler := transporthttp.NewAdminHandler(lifecycle, validate, appLogger)
	router := transporthttp.NewRouter(inboundHandler, adminHandler, cfg.JWTSecret, appLogger)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: router,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler: metricsMux,
	}

	g, groupCtx := errgroup.WithContext(mainCtx)

	g.Go(func() error {
		return consumer.StartConsuming(groupCtx, cfg.ChatEventSubject, cfg.TombstoneSubject, cfg.ConsumerQueueName)
	})

	g.Go(func() error {
		appLogger.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		appLogger.Info("Metrics server listening", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-groupCtx.Done()
		appLogger.Info("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		consumer.Stop()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			appLogger.Warn("HTTP server shutdown error", "error", err)
		}
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			appLogger.Warn("Metrics server shutdown error", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		appLogger.Error("Service exited with error", "error", err)
		os.Exit(1)
	}
	appLogger.Info("Service stopped")
}

func defaultTemplateFromConfig(cfg *config.Config) *template.Template {
	fields := make([]template.Field, 0, len(cfg.MessageDataTemplate))
	for _, f := range cfg.MessageDataTemplate {
		fields = append(fields, template.Field{Name: f.Field, Spec: f.Value})
	}
	return template.New(fields)
}

func customFieldsFromConfig(cfg *config.Config) map[string]any {
	custom := make(map[string]any, len(cfg.CustomFields))
	for k, v := range cfg.CustomFields {
		custom[k] = v
	}
	return custom
}

// dispatchBudget bounds one event's whole fan-out: every attempt at its full
// timeout plus the complete backoff ladder, with some slack for scheduling.
func dispatchBudget(cfg *config.Config) time.Duration {
	attempts := time.Duration(cfg.MaxWebhookRetries + 1)
	backoff := time.Duration((1<<uint(cfg.MaxWebhookRetries))-1) * time.Second
	return attempts*cfg.WebhookTimeout() + backoff + 30*time.Second
}
