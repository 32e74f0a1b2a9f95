package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clinic-portal/internal/delivery/http/middleware"
	"clinic-portal/internal/mailrelay"
	"clinic-portal/pkg/validator"

	"github.com/sirupsen/logrus"
)

func main() {
	log := logrus.StandardLogger()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)

	cfg, err := mailrelay.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	sender := mailrelay.NewSMTPSender(cfg.SMTP)
	handler := mailrelay.NewHandler(sender, validator.NewValidator(), log)
	logging := middleware.NewLoggingMiddleware(log)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           logging.Handle(handler.Routes()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("Mail relay listening on port %s (smtp %s:%d)", cfg.Port, cfg.SMTP.Host, cfg.SMTP.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start mail relay: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Errorf("Mail relay forced to shutdown: %v", err)
	}
	log.Info("Mail relay stopped")
}
