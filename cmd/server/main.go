// Package main is the env-only FileDrop binary: it reads configuration,
// opens the upload directory and serves until SIGINT or SIGTERM.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/dharsanguruparan/FileDrop/internal/config"
	"github.com/dharsanguruparan/FileDrop/internal/files"
	"github.com/dharsanguruparan/FileDrop/internal/server"
	"github.com/dharsanguruparan/FileDrop/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := cfg.Logger()
	slog.SetDefault(logger)
	gin.SetMode(gin.ReleaseMode)

	dir, err := storage.New(cfg.UploadDir, cfg.NamingPolicy)
	if err != nil {
		logger.Error("open upload directory", "dir", cfg.UploadDir, "error", err)
		os.Exit(1)
	}
	svc := files.NewService(dir, files.Options{
		MaxFileSize:   cfg.MaxFileSize,
		MaxBatchFiles: cfg.MaxBatchFiles,
		Logger:        logger,
	})
	srv := server.New(cfg, svc, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := srv.Serve(ctx); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
