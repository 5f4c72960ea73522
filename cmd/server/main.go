package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andresuchdata/controltower/backend-go/internal/api"
	"github.com/andresuchdata/controltower/backend-go/internal/app"
	"github.com/andresuchdata/controltower/backend-go/internal/config"
	"github.com/andresuchdata/controltower/backend-go/internal/scheduler"
	"github.com/andresuchdata/controltower/backend-go/pkg/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.SetFormat(cfg.Log.Format)
	logger.SetLevel(cfg.Log.Level)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	application, err := app.New(cfg)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer application.Close()

	services := &api.Services{
		KPI:      application.Service,
		Database: application.DB,
	}
	if cfg.Metrics.Enabled {
		services.Metrics = application.Metrics.Handler()
	}

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = application.Scheduler()
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to configure scheduler")
		}
		sched.Start()
	}

	router := api.NewRouter(services, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if sched != nil {
		sched.Stop(ctx)
	}
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
