package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"feedsink/app/api"
	"feedsink/app/cfg"
	"feedsink/app/database"
	"feedsink/app/extractor"
	"feedsink/app/feed"
	"feedsink/app/importer"
	"feedsink/app/provider"
	"feedsink/app/registry"
	"feedsink/app/tasks"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	appCfg, err := cfg.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	log.Println("Starting Feedsink server...")

	// Database connection and migrations
	log.Printf("Opening database at %s...", appCfg.DBPath)
	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		log.Fatal("Failed to open database:", err)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		log.Fatal("Failed to run migrations:", err)
	}
	log.Printf("Database schema at version %d (dirty: %v)", version, dirty)

	itemRepo := database.NewItemRepository(db)
	subscriptionRepo := database.NewSubscriptionRepository(db)
	queueRepo := database.NewQueueRepository(db)

	// Seed subscriptions from the feeds directory
	log.Printf("Loading subscription seeds from %s...", appCfg.FeedsDir)
	subscriptionCache := feed.NewSubscriptionCache(appCfg.FeedsDir)
	if err := subscriptionCache.Run(); err != nil {
		log.Fatal("Failed to load subscription seeds:", err)
	}

	seededCount := 0
	for _, sub := range subscriptionCache.All() {
		if err := subscriptionRepo.UpsertSubscription(*sub); err != nil {
			log.Printf("Warning: Failed to register subscription %s: %v", sub.ID, err)
			continue
		}
		seededCount++
	}
	log.Printf("Registered %d/%d seeded subscriptions", seededCount, subscriptionCache.Count())

	// Core components
	httpClient := &http.Client{Timeout: time.Duration(appCfg.FetchTimeout) * time.Second}
	contentExtractor := extractor.NewClient(httpClient, appCfg.UserAgent,
		time.Duration(appCfg.FetchTimeout)*time.Second)

	orchestrator := importer.NewOrchestrator(itemRepo, contentExtractor)
	creator := importer.NewCreator(itemRepo, queueRepo)

	scheduler := tasks.NewScheduler(subscriptionRepo, queueRepo, creator, orchestrator, httpClient)
	creator.SetTrigger(scheduler)

	// Provider selection: one contract, two implementations, chosen once
	// at startup and injected everywhere.
	webhookCallbackURL := appCfg.CallbackBaseURL + "/webhook"

	var feedProvider provider.Provider
	var feedRegistry *registry.Registry
	switch appCfg.Provider {
	case cfg.ProviderLocal:
		feedRegistry = registry.New(appCfg.WebhookSecret, httpClient)
		registryURL := "http://localhost:" + appCfg.RegistryPort
		feedProvider = provider.NewLocalProvider(registryURL, webhookCallbackURL, appCfg.WebhookSecret, httpClient)
		log.Printf("Using local feed registry at %s", registryURL)
	case cfg.ProviderPush:
		feedProvider = provider.NewPushProvider(appCfg.PushEndpoint, webhookCallbackURL, appCfg.WebhookSecret, httpClient)
		log.Printf("Using push provider at %s", appCfg.PushEndpoint)
	}

	// Start background scheduler
	log.Printf("Starting background scheduler with %d workers...", appCfg.WorkerCount)
	if err := scheduler.Start(); err != nil {
		log.Fatal("Failed to start scheduler:", err)
	}
	defer scheduler.Stop()

	// HTTP servers
	apiHandler := api.NewHandler(itemRepo, subscriptionRepo, creator, scheduler, feedProvider)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 2)
	go func() {
		log.Printf("Starting HTTP server on port %s", appCfg.Port)
		log.Printf("  Webhook:      http://localhost:%s/webhook (POST)", appCfg.Port)
		log.Printf("  Health check: http://localhost:%s/health", appCfg.Port)
		log.Printf("  Statistics:   http://localhost:%s/stats", appCfg.Port)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	var registryServer *http.Server
	if feedRegistry != nil {
		registryServer = &http.Server{
			Addr:         ":" + appCfg.RegistryPort,
			Handler:      registry.NewServer(feedRegistry),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		}

		go func() {
			log.Printf("Starting local feed registry on port %s", appCfg.RegistryPort)
			if err := registryServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				serverErrChan <- fmt.Errorf("registry server error: %w", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	log.Println("Feedsink server started successfully!")

	select {
	case sig := <-sigChan:
		log.Printf("Received signal: %v", sig)
	case err := <-serverErrChan:
		log.Printf("Server error: %v", err)
	}

	log.Println("Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	if registryServer != nil {
		if err := registryServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Registry server shutdown error: %v", err)
		}
	}

	// Scheduler is stopped via defer
	log.Println("Feedsink server shutdown complete")
}
