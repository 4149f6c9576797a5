package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"wedding-planner/internal/auth"
	"wedding-planner/internal/config"
	"wedding-planner/internal/guest"
	"wedding-planner/internal/handler"
	"wedding-planner/internal/mail"
	"wedding-planner/internal/storage"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Str("component", "server").Logger()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	store, err := storage.NewStore(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing storage")
	}
	defer store.Close()

	var sender mail.Sender
	if cfg.SendGridAPIKey != "" {
		sender = mail.NewSendGridSender(cfg.SendGridAPIKey)
	} else {
		log.Warn().Msg("SENDGRID_API_KEY not set, invitation emails will only be logged")
		sender = mail.NewLogSender()
	}

	authSvc := auth.NewService(store)
	guestSvc := guest.NewService(store, authSvc, sender, cfg.EmailFromName, cfg.EmailFrom)

	api := handler.New(authSvc, guestSvc, handler.Config{
		BaseURL:       cfg.BaseURL,
		SecureCookies: cfg.SecureCookies,
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("Wedding planner API listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	log.Info().Msg("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
	}
}
