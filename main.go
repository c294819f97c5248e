package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mkc909/cryptointel-data-system-sub000/internal/api"
	"github.com/mkc909/cryptointel-data-system-sub000/internal/collector"
	"github.com/mkc909/cryptointel-data-system-sub000/internal/config"
	"github.com/mkc909/cryptointel-data-system-sub000/internal/database"
	"github.com/mkc909/cryptointel-data-system-sub000/internal/logger"
	"github.com/mkc909/cryptointel-data-system-sub000/internal/monitoring"
	"github.com/mkc909/cryptointel-data-system-sub000/internal/services"
	"github.com/mkc909/cryptointel-data-system-sub000/internal/signals"
	"github.com/mkc909/cryptointel-data-system-sub000/internal/ws"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel)

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Set up the broadcast hub and its liveness supervisor
	hub := ws.NewHub(cfg.SendBufferLen)
	supervisor := ws.NewSupervisor(hub, cfg.PingInterval, cfg.IdleTimeout)
	go supervisor.Run()

	// Set up services
	priceService := services.NewPriceService(db)
	signalService := services.NewSignalService(db)
	eventService := services.NewEventService(db)
	userService := services.NewUserService(db)

	// Set up and run the background producers
	priceCollector := collector.NewPriceCollector(cfg.TickerBaseURL, cfg.Symbols, priceService, eventService, hub)
	if err := priceCollector.Start(cfg.CollectorCron); err != nil {
		log.Fatal().Err(err).Msg("Failed to start price collector")
	}

	detector := signals.NewDetector(cfg.Symbols, priceService, signalService, hub, cfg.DetectorInterval)
	go detector.Run()

	statusReporter := monitoring.NewStatusReporter(hub, cfg.StatusInterval)
	go statusReporter.Run()

	summaryPublisher := monitoring.NewSummaryPublisher(hub, priceService, signalService, cfg.SummaryInterval)
	go summaryPublisher.Run()

	// Set up router
	router := api.NewRouter(hub, cfg.CORSOrigin, priceService, signalService, eventService, userService)

	// Set up server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Msg("Server starting")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe()")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	priceCollector.Stop()
	detector.Stop()
	statusReporter.Stop()
	summaryPublisher.Stop()
	supervisor.Stop()
	hub.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
