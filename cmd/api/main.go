package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dan9191/fee-service/internal/config"
	"github.com/Dan9191/fee-service/internal/dispatch"
	"github.com/Dan9191/fee-service/internal/handler"
	"github.com/Dan9191/fee-service/internal/integrations/whatsapp"
	"github.com/Dan9191/fee-service/internal/jobs"
	"github.com/Dan9191/fee-service/internal/middleware"
	"github.com/Dan9191/fee-service/internal/repository"
	"github.com/Dan9191/fee-service/internal/service"
	"github.com/Dan9191/fee-service/internal/utils/email"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize store
	store, err := repository.Open(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to open %s store: %v", cfg.StoreDriver, err)
	}
	defer store.Close(context.Background())

	// Initialize layers
	var channel dispatch.Channel
	if cfg.WhatsAppEnabled() {
		channel = whatsapp.NewClient(cfg, logger)
	} else {
		logger.Warn("WhatsApp credentials not configured, reminders will only be logged")
	}
	svc := service.NewService(store, logger, cfg, channel)
	h := handler.NewHandler(svc, logger)

	var mailer jobs.SummaryMailer
	if cfg.SMTPEnabled() {
		mailer = email.NewSender(cfg, logger)
	}
	job := jobs.NewReminderJob(svc, mailer, logger)

	// Setup router
	r := mux.NewRouter()
	h.Register(r, middleware.AuthMiddleware(cfg))

	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Minute,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if cfg.ReminderCron == "" {
			logger.Info("REMINDER_CRON is empty, scheduled reminders disabled")
			return nil
		}
		if err := job.Start(gctx, cfg.ReminderCron); err != nil {
			return err
		}
		<-gctx.Done()
		job.Stop()
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		logger.Info("Shutting down server")
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatalf("Service stopped: %v", err)
	}
}
