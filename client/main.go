package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/phillip-england/locsetup/internal/config"
	"github.com/phillip-england/locsetup/internal/envutil"
	"github.com/phillip-england/locsetup/internal/logger"
	"github.com/phillip-england/locsetup/internal/tasks"
	"github.com/phillip-england/locsetup/internal/webapp"
)

func main() {
	log := logger.Default()
	if err := envutil.LoadDotEnv(".env"); err != nil {
		log.Error("load .env", "error", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}
	log = logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.LogLevel),
		Output:     os.Stderr,
		JSON:       cfg.LogJSON,
		TimeFormat: "15:04:05",
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := webapp.Run(ctx, webapp.ConfigFrom(cfg), tasks.NewStore(), log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
