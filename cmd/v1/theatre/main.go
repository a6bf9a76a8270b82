package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"theatre/internal/v1/catalog"
	"theatre/internal/v1/config"
	"theatre/internal/v1/health"
	"theatre/internal/v1/logging"
	"theatre/internal/v1/middleware"
	"theatre/internal/v1/transport"
)

func main() {
	// Load .env file for local development.
	// Try multiple paths to handle different ways of running the app
	envPaths := []string{".env", "../../../.env", "../../.env"}
	var envLoaded bool

	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			slog.Info("Loaded environment from", "path", path)
			envLoaded = true
			break
		}
	}

	if !envLoaded {
		slog.Info("No .env file found in any expected location, relying on environment variables")
	}

	// Validate environment variables before starting the server
	cfg, err := config.ValidateEnv()
	if err != nil {
		slog.Error("Environment validation failed", "error", err)
		os.Exit(1)
	}

	// Command line flags override the environment.
	host := flag.String("host", cfg.Host, "address to bind the listener to")
	port := flag.Int("port", cfg.Port, "port to bind the listener to")
	flag.Parse()

	if err := logging.Initialize(cfg.Development()); err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}

	if cfg.Development() {
		slog.Info("Running in DEVELOPMENT MODE")
	}

	// The avatar catalog is embedded in the binary; a load failure means the
	// build itself is bad.
	cat, err := catalog.Load()
	if err != nil {
		slog.Error("Failed to load avatar catalog", "error", err)
		os.Exit(1)
	}
	slog.Info("Avatar catalog loaded", "entries", cat.Len())

	hub := transport.NewHub(cat.IDSet())

	// --- Set up Server ---
	router := gin.Default()
	// Cors. The room code is the only credential this service has, so any
	// origin may call it.
	router.Use(cors.Default())

	// Error handling
	router.Use(gin.Recovery())

	// Correlation IDs for request tracing
	router.Use(middleware.CorrelationID())

	// Routing
	router.GET("/entries", cat.Handler)
	router.GET("/connect", hub.ServeWs)

	// Prometheus metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check endpoints
	healthHandler := health.NewHandler(cat)
	router.GET("/health/live", healthHandler.Liveness)
	router.GET("/health/ready", healthHandler.Readiness)

	// Start the server.
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", *host, *port),
		Handler: router,
	}

	// --- Graceful Shutdown ---
	// Start the server in a goroutine so it doesn't block.
	go func() {
		slog.Info("Signaling server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Failed to run server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for an interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	// The context is used to inform the server it has 30 seconds to finish
	// the requests it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Close all active rooms and WebSocket connections gracefully
	if err := hub.Shutdown(ctx); err != nil {
		slog.Error("Error during Hub shutdown:", "error", err)
	}

	// Shutdown HTTP server
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown:", "error", err)
	}

	slog.Info("Server exiting")
}
