// Entry point for the webhook ingestion API
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"clocksync.service/internal/api"
	"clocksync.service/internal/api/handler"
	"clocksync.service/internal/config"
	"clocksync.service/internal/core"
	"clocksync.service/internal/dedupe"
	"clocksync.service/internal/directory"
	"clocksync.service/internal/dispatch"
	"clocksync.service/internal/ports/presence"
	"clocksync.service/internal/ports/statusboard"
	"clocksync.service/internal/timesheet"
	"clocksync.service/pkg/logger"
	"clocksync.service/pkg/redisconn"
	"clocksync.service/pkg/telemetry"
)

func main() {
	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Could not load configuration")
	}

	// Configure structured logging
	logger.Setup(cfg.LocalDev)

	// Configure OpenTelemetry Tracing
	shutdownTracer, err := telemetry.InitTracer("webhook-api", cfg.OTLPEndpoint, cfg.LocalDev)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to init tracer")
	}
	defer func() {
		_ = shutdownTracer(context.Background())
	}()

	// Dedupe store connection
	rdb, err := redisconn.NewInstrumentedClient(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error connecting to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Successfully connected to Redis.")

	// Employee directory, reloaded on file change
	dir := directory.New(cfg.DirectoryFile)
	if err := dir.Load(); err != nil {
		log.Fatal().Err(err).Msg("Could not load employee directory")
	}

	bgCtx, cancelBg := context.WithCancel(context.Background())
	defer cancelBg()
	go func() {
		if err := dir.Watch(bgCtx); err != nil {
			log.Error().Err(err).Msg("Directory watcher stopped")
		}
	}()

	// Initialize dependencies
	locker := dedupe.NewRedisLocker(rdb,
		time.Duration(cfg.DedupeProcessingTTLSeconds)*time.Second,
		time.Duration(cfg.DedupeCompletedTTLSeconds)*time.Second,
	)
	dispatcher := core.NewDispatcher(
		locker,
		dir,
		presence.NewHTTPClient(cfg.PresenceAPIURL),
		statusboard.NewHTTPClient(cfg.BoardURL, cfg.BoardInternalSecret),
	)

	queue := dispatch.NewQueue(dispatcher)
	queue.Concurrency = cfg.DispatchConcurrency
	queue.Start(bgCtx)

	webhookHandler := &handler.WebhookHandler{
		Parser:   timesheet.NewParser(time.Duration(cfg.BreakEndWindowSeconds) * time.Second),
		Locker:   locker,
		Queue:    queue,
		Redis:    rdb,
		FailOpen: cfg.DedupeFailOpen,
	}

	// Setup router and server
	router := api.NewRouter(webhookHandler)

	// Middleware to inject logger with trace ID
	loggerMiddleware := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ctx = logger.EnrichContextWithLogger(ctx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}

	// Wrap the router with OpenTelemetry middleware to create spans for each request
	handlerChain := otelhttp.NewHandler(loggerMiddleware(router), "webhook-api")

	serverAddr := ":" + cfg.ServerPort
	srv := &http.Server{
		Addr:    serverAddr,
		Handler: handlerChain,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.ServerPort).Msg("Webhook API starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	// The context is used to inform the server it has 5 seconds to finish
	// the requests it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// No new webhooks can arrive now; let the pool finish what it holds.
	queue.Stop()

	log.Info().Msg("Server exiting")
}
