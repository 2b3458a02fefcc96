// Entry point for the live status board
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"clocksync.service/internal/board"
	"clocksync.service/internal/config"
	"clocksync.service/internal/core/model"
	"clocksync.service/internal/directory"
	"clocksync.service/internal/ports/shiftfeed"
	"clocksync.service/pkg/logger"
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
	shutdownTracer, err := telemetry.InitTracer("status-board", cfg.OTLPEndpoint, cfg.LocalDev)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to init tracer")
	}
	defer func() {
		_ = shutdownTracer(context.Background())
	}()

	// Employee directory, used to seed the table at startup
	dir := directory.New(cfg.DirectoryFile)
	if err := dir.Load(); err != nil {
		log.Fatal().Err(err).Msg("Could not load employee directory")
	}

	tokens := board.NewTokenSet(splitTokens(cfg.BoardAPITokens))
	if tokens.Empty() {
		token, err := tokens.Mint()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to mint startup token")
		}
		log.Warn().Str("token", token).Msg("No API tokens configured, minted one for this run")
	}

	hub := board.NewHub()

	// Recover current statuses in the background so the server is up
	// immediately; until seeding lands, clients just see fewer rows.
	bgCtx, cancelBg := context.WithCancel(context.Background())
	defer cancelBg()
	go seedStatuses(bgCtx, hub, dir, shiftfeed.NewHTTPClient(cfg.ShiftFeedURL))

	statusHandler := &board.StatusHandler{
		Hub:            hub,
		Tokens:         tokens,
		InternalSecret: cfg.BoardInternalSecret,
	}

	// Setup router and server
	router := board.NewRouter(statusHandler)

	// Middleware to inject logger with trace ID
	loggerMiddleware := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ctx = logger.EnrichContextWithLogger(ctx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}

	// Wrap the router with OpenTelemetry middleware to create spans for each request
	handlerChain := otelhttp.NewHandler(loggerMiddleware(router), "status-board")

	serverAddr := ":" + cfg.BoardPort
	srv := &http.Server{
		Addr:    serverAddr,
		Handler: handlerChain,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.BoardPort).Msg("Status board starting")
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
	hub.Close()

	log.Info().Msg("Server exiting")
}

// seedStatuses fills the table from the directory, marking everyone the
// shift feed reports as on shift. When the feed is down the board still
// starts, with every row Unknown until live updates arrive.
func seedStatuses(ctx context.Context, hub *board.Hub, dir *directory.Directory, feed *shiftfeed.HTTPClient) {
	shifts, err := feed.ActiveShiftsRetry(ctx, 3)
	if err != nil {
		log.Warn().Err(err).Msg("Shift feed unavailable, starting with unknown statuses")
	}

	onShift := make(map[string]model.ClockStatus, len(shifts))
	for _, s := range shifts {
		status := model.StatusClockedIn
		if s.OnBreak {
			status = model.StatusOnBreak
		}
		onShift[s.EmployeeID] = status
	}

	now := time.Now()
	employees := dir.All()
	for _, emp := range employees {
		status, ok := onShift[emp.ID]
		if !ok {
			status = model.StatusUnknown
		}
		hub.InitializeEmployee(model.EmployeeStatus{
			EmployeeID:  emp.ID,
			Name:        emp.Name,
			ExtensionID: emp.ExtensionID,
			ClockStatus: status,
			LastUpdated: now,
		})
	}

	log.Info().
		Int("employees", len(employees)).
		Int("active_shifts", len(shifts)).
		Msg("Status table seeded")
}

func splitTokens(raw string) []string {
	var tokens []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}
