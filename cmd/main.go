package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gamebook/server/internal/config"
	"gamebook/server/internal/graph"
	"gamebook/server/internal/play"
	"gamebook/server/internal/scenario"
	"gamebook/server/internal/storage"
	"gamebook/server/internal/web"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.Logging.Apply()

	// Initialize the relational store
	store, err := storage.NewStore(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()
	log.Printf("Database connected (%s)", cfg.Database.Driver)

	// Optional graph cache
	var cache graph.Cache
	if cfg.Database.Redis.Enabled {
		redisStore, err := storage.NewRedisStore(cfg.Database.Redis)
		if err != nil {
			log.Printf("Warning: Failed to connect to Redis: %v", err)
		} else {
			defer redisStore.Close()
			cache = graph.NewRedisCache(redisStore)
			log.Println("Redis connected successfully")
		}
	}
	graphs := graph.NewLoader(cache)

	// Play event hub
	hub := web.NewEventHub()
	go hub.Run()

	// Engine components
	importer := scenario.NewImporter(store, graphs)
	machine := play.NewMachine(store, graphs, hub)

	// Import scenario files given as positional arguments
	for _, path := range flag.Args() {
		if _, err := importer.ImportFile(context.Background(), path); err != nil {
			log.Printf("Import scenario failed: %s: %v", path, err)
			continue
		}
	}

	// Create router
	r := web.NewRouter(cfg, machine, importer, hub)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in background
	go func() {
		log.Printf("Server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
