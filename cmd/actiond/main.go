package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tjfontaine/actionpipe/internal/app/greeter"
	"github.com/tjfontaine/actionpipe/pkg/actionpipe"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	// Load .env file if it exists
	_ = godotenv.Load()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	rt, err := actionpipe.New(
		actionpipe.WithFileConfig(*configPath),
		actionpipe.WithApplication(greeter.New()),
		actionpipe.WithLogger(logger),
	)
	if err != nil {
		log.Fatalf("Failed to create runtime: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rt.Start(ctx); err != nil {
		log.Fatalf("Failed to start runtime: %v", err)
	}

	exitCode := 0
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received, stopping runtime...")
	case err := <-rt.Errors():
		logger.Error("server stopped", slog.String("error", err.Error()))
		exitCode = 1
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := rt.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		exitCode = 1
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
