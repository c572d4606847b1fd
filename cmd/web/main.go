package main

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"adforge/internal/api"
	"adforge/internal/app"
	"adforge/internal/config"
)

//go:embed static/*
var staticFS embed.FS

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := api.NewHub(api.HubOptions{
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger,
	})
	defer hub.Close()

	a, err := app.New(ctx, app.Options{
		Config:   cfg,
		Logger:   logger,
		Observer: hub.Publish,
	})
	if err != nil {
		logger.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer a.Close()

	go a.RunJanitor(ctx)

	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}

	uploadDir := ""
	if cfg.GalleryObjects == config.ObjectsLocal {
		uploadDir = cfg.UploadDir
	}

	s := api.New(api.Options{
		Studio:          a.Studio,
		Gallery:         a.Gallery,
		Hub:             hub,
		Logger:          logger,
		AllowedOrigins:  cfg.AllowedOrigins,
		GenerateTimeout: cfg.RequestTimeout,
		Static:          staticSub,
		UploadDir:       uploadDir,
	})

	srv := &http.Server{
		Addr:              cfg.WebAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 30*time.Second,
		IdleTimeout:       90 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown failed", "err", err)
		}
	}()

	logger.Info("web started", "addr", cfg.WebAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "err", err)
		stop()
	}
	<-shutdownDone
}

func newLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}
