package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/voxmath/VoxMath-Engine/api"
	"github.com/voxmath/VoxMath-Engine/broker"
	"github.com/voxmath/VoxMath-Engine/config"
	"github.com/voxmath/VoxMath-Engine/modules"
	"github.com/voxmath/VoxMath-Engine/network"
	"github.com/voxmath/VoxMath-Engine/pipeline"
)

func main() {
	cfg, err := config.ParseEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	var importList *modules.ImportList
	if cfg.ModulesPath != "" {
		importList, err = modules.LoadImportList(cfg.ModulesPath)
		if err != nil {
			log.Fatalf("Failed to load module list from %s: %v", cfg.ModulesPath, err)
		}
	}
	registry, err := modules.NewDefaultRegistry(importList)
	if err != nil {
		log.Fatalf("Failed to build module registry: %v", err)
	}
	log.Printf("Loaded %d pipeline modules", registry.Size())

	store, err := broker.Open(cfg.BrokerPath)
	if err != nil {
		log.Fatalf("Failed to open run store at %s: %v", cfg.BrokerPath, err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("Error closing run store: %v", err)
		}
	}()

	var publisher *network.Publisher
	if cfg.PubEndpoint != "" {
		publisher = network.NewPublisher(cfg.PubEndpoint)
		if err := publisher.Start(); err != nil {
			log.Fatalf("Failed to start event publisher on %s: %v", cfg.PubEndpoint, err)
		}
		defer publisher.Stop()
		log.Printf("Publishing step events on %s", cfg.PubEndpoint)
	}

	metrics := api.NewMetrics("voxmath")
	metricsServer := api.NewMetricsServer(cfg.MetricsAddress)
	metricsServer.StartAsync()
	log.Printf("Metrics available on http://%s/metrics", cfg.MetricsAddress)

	pool := pipeline.NewSizedPool("voxmath", cfg.Workers, cfg.QueueSize)
	pool.SetObserver(metrics)
	defer pool.Shutdown()
	log.Printf("Pipeline pool ready with %d workers, queue size %d", cfg.Workers, cfg.QueueSize)

	auth := api.NewAuthenticator(api.AuthConfig{
		Enabled: cfg.AuthEnabled,
		Token:   cfg.AuthToken,
	})
	if cfg.AuthEnabled && cfg.AuthToken == "" {
		log.Printf("Auth enabled with generated token: %s", auth.GetToken())
	}

	server := api.NewServer(metrics, auth)
	if publisher != nil {
		server.Handler().OnBatch = func(success bool, errText string, duration time.Duration) {
			eventType := network.EventStepCompleted
			if !success {
				eventType = network.EventStepFailed
			}
			event := &network.StepEvent{
				Type:       eventType,
				StepID:     "api-batch",
				Success:    success,
				Error:      errText,
				DurationMs: float64(duration.Microseconds()) / 1000,
			}
			if err := publisher.Publish(event); err != nil {
				log.Printf("Failed to publish batch event: %v", err)
			}
		}
	}

	log.Printf("Starting VoxMath server on %s...", cfg.ListenAddress)
	if err := server.StartAsync(cfg.ListenAddress); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	server.Stop()
	if err := metricsServer.Stop(); err != nil {
		log.Printf("Error stopping metrics server: %v", err)
	}
	log.Println("Server stopped.")
}
