// Command ordervox-web serves the voice pipeline behind the HTTP analytics
// and voice API surface.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ordervox/ordervox/internal/config"
	"github.com/ordervox/ordervox/internal/engine"
	"github.com/ordervox/ordervox/internal/server"
	"github.com/ordervox/ordervox/internal/storage"
	"github.com/ordervox/ordervox/internal/storage/postgres"
	"github.com/ordervox/ordervox/internal/storage/sqlite"
	"github.com/ordervox/ordervox/pkg/types"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The web surface carries no host application, so domain callbacks are
	// log-only. A real deployment supplies callbacks that mutate its cart.
	callbacks := types.Callbacks{
		OnProductAdd: func(item types.CartItem) error {
			log.Printf("cart add: %d x %s", item.Quantity, item.Name)
			return nil
		},
		OnProductRemove: func(item types.CartItem, qty int) error {
			log.Printf("cart remove: %d x %s", qty, item.Name)
			return nil
		},
		OnNavigate: func(target string) error {
			log.Printf("navigate: %s", target)
			return nil
		},
		OnOrderComplete: func(tx *types.Transaction) error {
			log.Printf("order complete: %s total CHF %.2f", tx.ID, tx.Total)
			return nil
		},
	}

	eng, err := engine.NewVoiceEngine(ctx, cfg, store, callbacks)
	if err != nil {
		log.Fatalf("Failed to initialize voice engine: %v", err)
	}
	if err := eng.Start(ctx); err != nil {
		log.Fatalf("Failed to start voice engine: %v", err)
	}

	addr, _, err := server.Start(ctx, cfg, eng)
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	log.Printf("ordervox running at http://%s", addr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down gracefully...")
	if err := eng.Shutdown(ctx); err != nil {
		log.Printf("Error shutting down voice engine: %v", err)
	}
	cancel()
	time.Sleep(time.Second)
}

// openStore creates the key-value store selected by configuration.
func openStore(cfg *config.Config) (storage.KVStore, error) {
	switch cfg.Storage.StorageEngine {
	case "memory":
		return storage.NewMemoryStore(), nil
	case "sqlite":
		if err := os.MkdirAll(cfg.Storage.DataPath, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		return sqlite.NewKVStore(cfg.Storage.DataPath + "/ordervox.db")
	case "postgres":
		return postgres.NewKVStore(cfg.Storage.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage engine %q", cfg.Storage.StorageEngine)
	}
}
