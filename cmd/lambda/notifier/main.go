package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/example/pharmacy-storefront/internal/app"
	"github.com/example/pharmacy-storefront/internal/config"
	"github.com/example/pharmacy-storefront/internal/infrastructure/kinesis"
)

const name = "Lambda Notifier"

var worker *app.Worker

func init() {
	cfg, err := config.LoadWorker()
	if err != nil {
		log.Fatalf("[%s] Invalid configuration: %v", name, err)
	}
	worker, err = app.NewNotifierWorker(context.Background(), cfg)
	if err != nil {
		log.Fatalf("[%s] Startup failed: %v", name, err)
	}
	log.Printf("[%s] Initialized successfully", name)
}

func handler(ctx context.Context, batch events.KinesisEvent) (events.KinesisEventResponse, error) {
	log.Printf("[%s] Received %d records", name, len(batch.Records))
	resp := kinesis.Process(ctx, name, batch, worker.Handle)
	log.Printf("[%s] %d records failed", name, len(resp.BatchItemFailures))
	return resp, nil
}

func main() {
	lambda.Start(handler)
}
