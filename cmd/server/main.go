package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"listing-chat/auth"
	"listing-chat/autoreply"
	"listing-chat/domain"
	"listing-chat/infrastructure/api"
	"listing-chat/infrastructure/grpc/health"
	"listing-chat/infrastructure/websocket"
	"listing-chat/internal"
	"listing-chat/repositories"
	"listing-chat/runtime"
	"listing-chat/runtime/workers"
	"listing-chat/search"
	"listing-chat/services"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes reported to the service manager.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const shutdownTimeout = 10 * time.Second

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component and blocks until a signal.
// Returning instead of exiting lets the deferred closes run.
func run() (int, error) {
	// 1. Configuration & Logger
	config, err := internal.LoadConfig()
	if err != nil {
		return exitConfig, err
	}
	logger := logs.GetLoggerFromString(config.LogLevel)

	ctx := context.Background()

	// 2. Storage (BadgerDB + Bluge)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	defer func() {
		logger.Info("Closing Bluge...")
		_ = blugeWriter.Close()
	}()

	conversationRepository := repositories.NewConversationRepository(db, logger)
	messageRepository := repositories.NewMessageRepository(db, logger, config.LimitMessages)
	index := search.NewIndex(blugeWriter, logger)
	messageStore := repositories.NewIndexedMessageStore(messageRepository, index, logger)

	// 3. Hub
	matcher, err := autoreply.NewMatcher(autoreply.DefaultRules)
	if err != nil {
		return exitRuntime, fmt.Errorf("auto reply table: %w", err)
	}
	verifier := auth.NewVerifier([]byte(config.JwtSecret))
	registry := runtime.NewRegistry()
	router := runtime.NewMessageRouter(logger, messageStore, registry, config.StoreTimeout)
	scheduler := autoreply.NewScheduler(logger)
	engine := autoreply.NewEngine(logger, conversationRepository, router, matcher, scheduler,
		config.AutoReplyDelay, config.StoreTimeout)
	router.UseAutoReplier(engine)
	handshake := runtime.NewHandshake(logger, verifier, registry)
	hub := runtime.NewHub(logger, registry, handshake, router,
		domain.NewFrameParser(config.MaxContentLength), config.AuthTimeout)

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Supervised workers: HTTP (API + websocket), gRPC health, heartbeat
	service := services.NewConversationService(logger, conversationRepository, messageRepository, index)
	wsHandler := websocket.NewHandler(logger, hub, websocket.Options{SendBufferSize: config.ConnectionBufferSize})
	httpServer := api.NewServer(logger, config.Address(), api.NewRouter(logger, verifier, service, wsHandler))
	healthServer := health.NewServer(logger, config.HealthAddress())
	heartbeat := workers.NewHeartbeatWorker(logger, config.HeartbeatInterval, func() workers.HubStats {
		return workers.HubStats{LiveConnections: hub.Live(), PendingReplies: engine.Pending()}
	})

	sup := workers.NewSupervisor(logger, config.RestartInterval)
	sup.Add(httpServer, healthServer, heartbeat)

	// 6. Block until a signal; the supervisor restarts failing listeners meanwhile
	sup.Run(ctx)

	// 7. Graceful shutdown: listeners are down, close sessions, let pending replies land.
	logger.Info("Shutting down gracefully...")
	hub.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := scheduler.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Pending auto replies abandoned", "pending", scheduler.Pending(), "error", err)
	}
	logger.Info("Program stopped cleanly")

	return exitOK, nil
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG)
	} else {
		options = options.WithLoggingLevel(badger.WARNING)
	}

	return options
}
