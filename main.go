package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"microtrader/internal/apiserver"
	"microtrader/internal/config"
	"microtrader/internal/trading"

	_ "microtrader/internal/graph" // registers the sandbox/trading ProcessorConfigs via init
)

func main() {
	cfgPath := os.Getenv("MICROTRADER_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Listening on %s", cfg.ListenAddr)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	orderRepo, err := trading.NewOrderRepo(ctx, cfg.PostgresDSN)
	cancel()
	if err != nil {
		log.Fatalf("Failed to connect order repository: %v", err)
	}
	defer orderRepo.Close()
	trading.SetActiveRepo(orderRepo)

	server, err := apiserver.NewServer(cfg, orderRepo)
	if err != nil {
		log.Fatalf("Failed to build API server: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("API server failed: %v", err)
		}
	}()

	<-sigChan
	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
