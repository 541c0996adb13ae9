package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mmuslimabdulj/pet-lobby/internal/config"
	httpHandler "github.com/mmuslimabdulj/pet-lobby/internal/delivery/http"
	"github.com/mmuslimabdulj/pet-lobby/internal/delivery/ws"
	"github.com/mmuslimabdulj/pet-lobby/internal/domain"
	"github.com/mmuslimabdulj/pet-lobby/internal/events"
	"github.com/mmuslimabdulj/pet-lobby/internal/logging"
	"github.com/mmuslimabdulj/pet-lobby/internal/middleware"
	"github.com/mmuslimabdulj/pet-lobby/internal/usecase"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file (ignore error if not exists, e.g. in production)
	_ = godotenv.Load()

	cfg := config.LoadFromEnv()

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Event feed is optional
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.NATSURL != "" {
		p, err := events.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubjectPrefix, cfg.ServerName, logger.Named("events"))
		if err != nil {
			logger.Warn("event feed disabled", zap.Error(err))
		} else {
			publisher = p
			logger.Info("event feed connected", zap.String("url", cfg.NATSURL))
		}
	}
	defer publisher.Close()

	hub := ws.NewHub(ws.Options{
		ServerID:       cfg.ServerID,
		SendBufferSize: cfg.SendBufferSize,
		MaxMessageSize: int64(cfg.MaxMessageSize),
		Presence:       usecase.NewPresenceBuilder(cfg.WorldWidth, cfg.WorldHeight),
		Events:         publisher,
		Logger:         logger.Named("hub"),
	})
	go hub.Run(ctx)

	handler := httpHandler.NewHandler(hub, cfg, logger.Named("http"))
	wsLimiter := middleware.NewIPRateLimiter(ctx, cfg.RateLimitWS, cfg.RateLimitWSBurst, logger.Named("ratelimit"))
	statsLimiter := middleware.NewIPRateLimiter(ctx, cfg.RateLimitWS, cfg.RateLimitWSBurst, logger.Named("ratelimit"))

	// Setup routes
	mux := http.NewServeMux()
	mux.HandleFunc("/", handler.HandleHealth)
	mux.Handle("/stats", middleware.RateLimitMiddleware(statsLimiter)(http.HandlerFunc(handler.HandleStats)))

	// WebSocket routes with rate limiting
	wsHandler := middleware.RateLimitFunc(wsLimiter, handler.HandleWebSocket)
	mux.HandleFunc("/ws", wsHandler)
	mux.HandleFunc("/ws/", wsHandler)

	// Create server with timeouts
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      middleware.SecurityHeaders(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("lobby server running",
			zap.String("addr", server.Addr),
			zap.String("server_id", cfg.ServerID),
			zap.String("name", cfg.ServerName),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Graceful shutdown
	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down server")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), domain.ShutdownGracePeriod)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	<-hub.Done()

	logger.Info("server exited gracefully")
	return nil
}
