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

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/loopintegra/boleto-notifier/internal/notifier_service/adapters/messaging"
	"github.com/loopintegra/boleto-notifier/internal/notifier_service/adapters/omie"
	"github.com/loopintegra/boleto-notifier/internal/notifier_service/app"
	"github.com/loopintegra/boleto-notifier/internal/platform/config"
	"github.com/loopintegra/boleto-notifier/internal/platform/logger"

	httpadapter "github.com/loopintegra/boleto-notifier/internal/notifier_service/adapters/http"
)

const (
	serviceName     = "notifier_service"
	shutdownTimeout = 15 * time.Second
)

// httpLogger is a middleware that logs HTTP requests using slog.
func httpLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			requestID := chimiddleware.GetReqID(r.Context())

			next.ServeHTTP(ww, r)

			logger.LogAttrs(r.Context(), slog.LevelInfo, "HTTP request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status_code", ww.Status()),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
				slog.String("request_id", requestID),
			)
		}
		return http.HandlerFunc(fn)
	}
}

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		slog.Error("Failed to load configuration", "service", serviceName, "error", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.LogLevel)

	// Required credentials are validated once here; a missing app key or
	// provider token is a boot failure, never a silent per-request skip.
	if err := cfg.Validate(); err != nil {
		appLogger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	appLogger.Info("Notifier service starting...", "port", cfg.ServerPort, "lookup_strategy", cfg.LookupStrategy)

	mainCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// One outbound HTTP client for both collaborators; the timeout bounds
	// every remote call in the pipeline.
	outboundClient := &http.Client{Timeout: cfg.HTTPClientTimeout()}

	omieClient := omie.NewClient(appLogger, cfg.OmieBaseURL, cfg.OmieAppKey, cfg.OmieAppSecret, outboundClient)
	sender := messaging.NewDigisacProvider(appLogger, cfg.MessagingAPIURL, cfg.MessagingAPIToken, outboundClient)

	notificationApp := app.NewNotificationAppService(omieClient, sender, appLogger, app.Options{
		SubjectFilter:      cfg.WebhookSubjectFilter,
		LookupStrategy:     cfg.LookupStrategy,
		MessagingServiceID: cfg.MessagingServiceID,
	})

	webhookHandler := httpadapter.NewWebhookHandler(notificationApp, appLogger)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(httpLogger(appLogger))
	r.Use(httpadapter.PrometheusMetricsMiddleware)

	r.Get("/health", httpadapter.HandleHealth)
	r.Handle("/metrics", promhttp.Handler())
	webhookHandler.RegisterRoutes(r)

	httpServer := &http.Server{Addr: fmt.Sprintf(":%d", cfg.ServerPort), Handler: r}

	g, groupCtx := errgroup.WithContext(mainCtx)

	g.Go(func() error {
		appLogger.Info("HTTP server listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("HTTP server failed to serve", "error", err)
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-groupCtx.Done()
		appLogger.Info("Shutdown signal received, shutting down HTTP server...")
		ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		return httpServer.Shutdown(ctxShutdown)
	})

	if err := g.Wait(); err != nil {
		appLogger.Error("Service exited with error", "error", err)
		os.Exit(1)
	}
	appLogger.Info("Notifier service stopped")
}
