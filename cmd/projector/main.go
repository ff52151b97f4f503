package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/pharmacy-storefront/internal/app"
	"github.com/example/pharmacy-storefront/internal/config"
	"github.com/example/pharmacy-storefront/internal/infrastructure/kafka"
)

const consumerGroup = "pharmacy-projector"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadWorker()
	if err != nil {
		log.Fatalf("[Projector] Invalid configuration: %v", err)
	}
	if !cfg.KafkaEnabled() {
		log.Fatal("[Projector] KAFKA_BROKERS is required")
	}

	worker, err := app.NewProjectorWorker(ctx, cfg)
	if err != nil {
		log.Fatalf("[Projector] Startup failed: %v", err)
	}
	defer worker.Close()

	log.Printf("[Projector] Kafka: %v", cfg.KafkaBrokers)
	log.Printf("[Projector] Topic: %s, group: %s", cfg.KafkaTopic, consumerGroup)

	consumer := kafka.NewConsumer("Projector", cfg.KafkaBrokers, cfg.KafkaTopic, consumerGroup)
	defer consumer.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Println("[Projector] Starting event consumer...")
		if err := consumer.Consume(ctx, worker.Handle); err != nil && ctx.Err() == nil {
			log.Printf("[Projector] Consumer error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-done:
	}

	log.Println("[Projector] Shutting down...")
	cancel()
	<-done
}
