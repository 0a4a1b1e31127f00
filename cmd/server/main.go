package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/jivahealth/registration-relay/internal/config"
	"github.com/jivahealth/registration-relay/internal/httpapi"
	"github.com/jivahealth/registration-relay/internal/mail"
	"github.com/jivahealth/registration-relay/pkg/logging"
)

func main() {
	// Optional in production, where the environment is supplied directly.
	_ = godotenv.Load(".env")

	configuration, configErr := config.LoadConfig()
	if configErr != nil {
		fallbackLogger := logging.NewLogger("INFO")
		for _, errMsg := range strings.Split(configErr.Error(), ", ") {
			fallbackLogger.Error("Configuration error", "detail", errMsg)
		}
		os.Exit(1)
	}

	mainLogger := logging.NewLogger(configuration.LogLevel)

	sender := mail.NewSMTPSender(mail.SMTPConfig{
		Host:     configuration.SMTPHost,
		Port:     configuration.SMTPPort,
		Username: configuration.SMTPUser,
		Password: configuration.SMTPPass,
	})

	server, serverErr := httpapi.NewServer(httpapi.Config{
		ListenAddr:         configuration.ListenAddr,
		AllowedOrigins:     configuration.AllowedOrigins,
		RateLimitPerMinute: float64(configuration.RateLimitPerMinute),
		Sender:             sender,
		Mail: mail.Config{
			FromAddress: configuration.FromEmail,
			ToAddress:   configuration.ToEmail,
		},
		DispatchTimeout: time.Duration(configuration.DispatchTimeoutSec) * time.Second,
		Logger:          mainLogger,
	})
	if serverErr != nil {
		mainLogger.Error("Failed to construct HTTP server", "error", serverErr)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErrors := make(chan error, 1)
	go func() {
		serveErrors <- server.Start()
	}()
	mainLogger.Info("Registration relay listening", "addr", configuration.ListenAddr)

	select {
	case <-ctx.Done():
		mainLogger.Info("Shutting down")
		if shutdownErr := server.Shutdown(context.Background()); shutdownErr != nil {
			mainLogger.Error("Shutdown error", "error", shutdownErr)
			os.Exit(1)
		}
	case serveErr := <-serveErrors:
		if serveErr != nil {
			mainLogger.Error("HTTP server crashed", "error", serveErr)
			os.Exit(1)
		}
	}
}
