package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flashcards-client/internal/di"
	"flashcards-client/internal/session/config"
	"flashcards-client/internal/shared/logger"

	"github.com/joho/godotenv"
)

func main() {
	fmt.Println("Flashcards client - starting session gateway...")

	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	appLogger := logger.NewLogger()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	appLogger.Info("Application configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container := di.NewContainer(appLogger)
	defer func() {
		if err := container.Close(); err != nil {
			appLogger.Errorf("Failed to close container: %v", err)
		}
	}()

	if err := container.InitializeSession(ctx, cfg); err != nil {
		log.Fatalf("Failed to initialize session module: %v", err)
	}
	if err := container.InitializeActivity(); err != nil {
		log.Fatalf("Failed to initialize activity module: %v", err)
	}
	if err := container.InitializeFeedback(); err != nil {
		log.Fatalf("Failed to initialize feedback module: %v", err)
	}

	app, err := container.BuildApp()
	if err != nil {
		log.Fatalf("Failed to build gateway: %v", err)
	}

	// Screens report "pending" until the stored session has been checked.
	container.GetSessionModule().StartRestore(ctx)

	serverAddr := cfg.GatewayAddr()
	appLogger.Infof("Session gateway listening on %s, API at %s", serverAddr, cfg.APIBaseURL)

	serverShutdown := make(chan error, 1)
	go func() {
		serverShutdown <- app.Listen(serverAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverShutdown:
		if err != nil {
			appLogger.Errorf("Server failed to start: %v", err)
			cancel()
			return
		}
	case sig := <-quit:
		appLogger.Infof("Received shutdown signal: %v", sig)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			appLogger.Errorf("Server forced to shutdown: %v", err)
		}
		appLogger.Info("Gateway stopped")
	}

	fmt.Println("Flashcards client stopped.")
}
