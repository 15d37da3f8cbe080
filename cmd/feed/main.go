// Command feed runs the article API with the feed media layout
// (article/{user}/{id}/{user}{n}.{ext}) regardless of MEDIA_LAYOUT.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mutsasns/mutsasns/backend/go-services/internal/config"
	"github.com/mutsasns/mutsasns/backend/go-services/internal/media"
	"github.com/mutsasns/mutsasns/backend/go-services/internal/server"
	"github.com/mutsasns/mutsasns/backend/go-services/pkg/logger"
)

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	cfg.Media.Layout = media.FeedLayout.Name
	if os.Getenv("SERVER_PORT") == "" {
		cfg.Server.Port = "8081"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := server.New(ctx, cfg)
	if err != nil {
		logger.Fatalf("startup failed: %v", err)
	}
	if err := app.Run(ctx); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}
