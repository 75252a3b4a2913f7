package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smartbite/pkg/config"
	"smartbite/pkg/logging"

	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, cleanup, err := buildApp(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to start")
	}

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.WithFields(logrus.Fields{"port": cfg.AppPort, "env": cfg.AppEnv, "db": cfg.DBDriver}).Info("starting server")
		if err := app.Listen(cfg.AppPort); err != nil {
			log.WithError(err).Error("server stopped")
			quit <- syscall.SIGTERM
		}
	}()

	<-quit
	log.Info("shutting down server")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.WithError(err).Warn("error during Fiber shutdown")
	}
	cancel()
	cleanup()
	log.Info("server gracefully stopped")
}
