package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/httplog/v2"
	"github.com/vadimbarashkov/shortlink/internal/app"
	"github.com/vadimbarashkov/shortlink/internal/config"
)

const appName = "shortlink"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	logger := newLogger(cfg.Env)

	if err := app.Run(ctx, cfg, logger); err != nil {
		logger.Error("application stopped with error", slog.Any("err", err))
		os.Exit(1)
	}
}

func newLogger(env string) *httplog.Logger {
	opts := httplog.Options{
		LogLevel: slog.LevelInfo,
		JSON:     true,
		Concise:  true,
		Tags: map[string]string{
			"env": env,
		},
	}

	if env == config.EnvDev {
		opts.LogLevel = slog.LevelDebug
		opts.JSON = false
	}

	return httplog.NewLogger(appName, opts)
}
