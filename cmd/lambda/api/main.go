package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"

	"github.com/example/pharmacy-storefront/internal/app"
	"github.com/example/pharmacy-storefront/internal/config"
)

var adapter *httpadapter.HandlerAdapter

func init() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[Lambda API] Invalid configuration: %v", err)
	}
	service, err := app.NewAPI(context.Background(), cfg)
	if err != nil {
		log.Fatalf("[Lambda API] Startup failed: %v", err)
	}
	adapter = httpadapter.New(service.Handler)
	log.Println("[Lambda API] Initialized successfully")
}

func handler(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return adapter.ProxyWithContext(ctx, req)
}

func main() {
	lambda.Start(handler)
}
