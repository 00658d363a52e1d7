package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dan9191/fee-service/internal/config"
	"github.com/Dan9191/fee-service/internal/dispatch"
	"github.com/Dan9191/fee-service/internal/integrations/whatsapp"
	"github.com/Dan9191/fee-service/internal/repository"
	"github.com/Dan9191/fee-service/internal/service"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetOutput(os.Stderr)

	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := repository.Open(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to open %s store: %v", cfg.StoreDriver, err)
	}
	defer store.Close(context.Background())

	var channel dispatch.Channel
	if cfg.WhatsAppEnabled() {
		channel = whatsapp.NewClient(cfg, logger)
	}

	cli := &commandLine{
		svc:         service.NewService(store, logger, cfg, channel),
		institution: cfg.InstitutionName,
		out:         os.Stdout,
		now:         time.Now,
	}
	if err := cli.rootCmd().ExecuteContext(ctx); err != nil {
		logger.Errorf("feectl: %v", err)
		stop()
		store.Close(context.Background())
		os.Exit(1)
	}
}
