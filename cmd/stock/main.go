package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/cartshop/pkg/config"
	"github.com/example/cartshop/pkg/discovery"
	"github.com/example/cartshop/pkg/grpc"
	"github.com/example/cartshop/pkg/logger"
	"github.com/example/cartshop/pkg/repository"
	"github.com/example/cartshop/pkg/shop"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", os.Getenv("CARTSHOP_CONFIG"), "path to a YAML config file")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Setup logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting stock service",
		zap.String("name", cfg.Server.Name),
		zap.Int("port", cfg.Server.Port))

	db, err := repository.OpenDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	store := repository.NewSQLStore(db)
	defer store.Close()

	ctx := context.Background()
	if err := store.Ping(ctx); err != nil {
		log.Fatal("Database connection failed", zap.Error(err))
	}

	// Create server
	server := grpc.NewStockServer(shop.NewLedger(store, log.Named("ledger")), log)

	// Connect to etcd for service discovery
	sd, err := discovery.NewServiceDiscovery(&cfg.Etcd)
	if err != nil {
		log.Fatal("Failed to connect to etcd", zap.Error(err))
	}
	defer sd.Close()

	instance := &discovery.ServiceInstance{
		Name: cfg.Server.Name,
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	}

	// Register service
	if err := sd.Register(ctx, instance); err != nil {
		log.Fatal("Failed to register service", zap.Error(err))
	}

	log.Info("Service registered in etcd",
		zap.String("name", instance.Name),
		zap.String("address", instance.Address()))

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(cfg.Server.Addr()); err != nil {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info("Received shutdown signal")
	case err := <-serverErr:
		log.Error("Server error", zap.Error(err))
	}

	// Deregister service
	if err := sd.Deregister(ctx, instance); err != nil {
		log.Error("Failed to deregister service", zap.Error(err))
	}
	server.Stop()

	log.Info("Service stopped")
}
