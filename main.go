package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/aceclub-io/ace-engine/app"
	"github.com/aceclub-io/ace-engine/config"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application := &app.App{}
	if err := application.Initialize(ctx, cfg); err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(ctx); err != nil {
		application.Logger.Error("application stopped", "error", err)
	}

	application.Close(context.Background())
	application.Logger.Info("shutdown complete")
}
