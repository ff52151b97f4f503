package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/pharmacy-storefront/internal/app"
	"github.com/example/pharmacy-storefront/internal/config"
	"github.com/example/pharmacy-storefront/internal/infrastructure/telemetry"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[API] Invalid configuration: %v", err)
	}

	log.Println("[API] ========================================")
	log.Println("[API] Pharmacy Storefront")
	log.Println("[API] ========================================")

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName: app.ServiceName,
		Endpoint:    cfg.OTLPEndpoint,
		Stdout:      cfg.TracesStdout,
	})
	if err != nil {
		log.Fatalf("[API] Failed to set up tracing: %v", err)
	}

	service, err := app.NewAPI(ctx, cfg)
	if err != nil {
		log.Fatalf("[API] Startup failed: %v", err)
	}
	service.Start(ctx)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           service.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[API] Server started on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[API] Server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[API] Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[API] Shutdown error: %v", err)
	}

	cancel()
	service.Close()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Printf("[API] Tracer shutdown error: %v", err)
	}
}
