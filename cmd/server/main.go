package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"pdf-layer-service/internal/config"
	"pdf-layer-service/internal/handler"
)

// shutdownTimeout bounds how long in-flight requests and processing jobs may
// run after a termination signal.
const shutdownTimeout = 2 * time.Minute

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	// Wiring
	container, err := config.NewContainer()
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer container.Close()

	// Handlers
	systemHandler := handler.NewSystemHandler(container.Config)
	authHandler := handler.NewAuthHandler(container.Logger)
	documentHandler := handler.NewDocumentHandler(
		container.DocumentService,
		container.Config.GetMaxFileSize(),
		container.Logger,
	)
	authMiddleware := handler.NewAuthMiddleware(
		container.AuthService,
		container.Logger,
	)

	// Router
	router := handler.NewRouter(
		systemHandler,
		authHandler,
		documentHandler,
		authMiddleware.Middleware,
	)

	// start server
	server := &http.Server{
		Addr:              ":" + container.Config.GetServerPort(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Run server
	go func() {
		container.Logger.Info("Server listening", "address", server.Addr, "env", container.Config.GetAppEnv())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			container.Logger.Error("Server failed to start", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	container.Logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		container.Logger.Error("Server shutdown failed", err)
	}
	if err := container.DocumentService.Wait(ctx); err != nil {
		container.Logger.Warn("Processing jobs canceled at shutdown", "error", err)
	}

	container.Logger.Info("Server exited")
}
