package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/navikt/mrooms/internal/api"
	"github.com/navikt/mrooms/internal/calendar"
	"github.com/navikt/mrooms/internal/config"
	"github.com/navikt/mrooms/internal/occupancy"
	"github.com/navikt/mrooms/internal/repository"
	"github.com/navikt/mrooms/internal/service"
	"github.com/navikt/mrooms/internal/web"
)

func main() {
	// Load a local .env when present; real deployments configure the
	// environment directly.
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env")
	}

	calendarConfig := config.GetCalendarConfig()
	filterConfig := config.GetRoomFilterConfig()
	schedulerConfig := config.GetSchedulerConfig()
	redisConfig := config.GetRedisConfig()

	if !calendarConfig.IsValid() {
		log.Println("Warning: calendar API credentials are not fully configured; running unauthenticated")
	}

	// Initialize the cache repository using the factory
	repo, err := repository.NewRepository(redisConfig)
	if err != nil {
		log.Fatalf("Failed to initialize repository: %v", err)
	}

	// Check if we're using a Redis repository, and if so, close it properly on exit
	if redisRepo, ok := repo.(interface{ Close() error }); ok {
		defer func() {
			if err := redisRepo.Close(); err != nil {
				log.Printf("Error closing Redis connection: %v", err)
			}
		}()
	}

	// Calendar API client and the shared fetch/normalize/evaluate pipeline
	client := calendar.NewClient(calendarConfig)
	normalizer := calendar.NewNormalizer(filterConfig)
	fetcher := calendar.NewFetcher(client, normalizer, calendarConfig)

	evaluator := occupancy.NewEvaluator()
	evaluator.StartingSoonWindow = schedulerConfig.StartingSoonWindow

	roomService := service.NewRoomService(client, fetcher, evaluator, repo, filterConfig, schedulerConfig)

	// Set up web UI routes
	webHandler, err := web.NewHandler(roomService, "./internal/web/templates")
	if err != nil {
		log.Fatalf("Failed to initialize web handler: %v", err)
	}

	// Push occupancy updates and room-freed edges to connected displays
	roomService.RegisterUpdateCallback(webHandler.NotifyViewUpdate)
	roomService.RegisterRoomFreedCallback(webHandler.NotifyRoomFreed)

	// Set up API routes
	mux := api.SetupRoutes(roomService)
	webHandler.SetupRoutes(mux)

	// Root context driving the per-room watchers
	watchCtx, cancelWatch := context.WithCancel(context.Background())
	defer cancelWatch()

	if err := roomService.StartWatching(watchCtx); err != nil {
		log.Printf("Failed to start room watchers: %v", err)
	}

	// Nightly room-directory resync
	resync := cron.New()
	if _, err := resync.AddFunc(schedulerConfig.DirectoryResyncSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := roomService.ResyncRooms(ctx); err != nil {
			log.Printf("Room directory resync failed: %v", err)
		}
	}); err != nil {
		log.Fatalf("Invalid directory resync schedule %q: %v", schedulerConfig.DirectoryResyncSpec, err)
	}
	resync.Start()
	defer resync.Stop()

	// Get port from environment variable or use default
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Configure the HTTP server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Disable write timeout for SSE connections
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)

	go func() {
		log.Printf("Starting mrooms server on port %s", port)
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for an interrupt or terminate signal from the OS
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Fatalf("Error starting server: %v", err)

	case <-shutdown:
		log.Println("Shutting down server...")

		// Stop the refresh loops first so nothing writes during teardown
		cancelWatch()
		roomService.StopWatching()

		// Then close SSE connections
		webHandler.Shutdown()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			server.Close()
			log.Fatalf("Error shutting down server: %v", err)
		}

		log.Println("Server gracefully stopped")
	}
}
