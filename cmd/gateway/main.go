package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/cartshop/gateway"
	"github.com/example/cartshop/pkg/config"
	"github.com/example/cartshop/pkg/discovery"
	"github.com/example/cartshop/pkg/grpc"
	"github.com/example/cartshop/pkg/logger"
	"github.com/example/cartshop/pkg/notify"
	"github.com/example/cartshop/pkg/payment"
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

	log.Info("Starting API Gateway",
		zap.Int("port", cfg.Gateway.Port),
		zap.String("host", cfg.Gateway.Host),
		zap.String("database", cfg.Database.Driver))

	db, err := repository.OpenDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	store := repository.NewSQLStore(db)
	defer store.Close()
	if cfg.Database.AutoMigrate {
		if err := store.Migrate(context.Background()); err != nil {
			log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	redisRepo := repository.NewRedisRepository(&cfg.Redis)
	defer redisRepo.Close()
	if err := redisRepo.Ping(context.Background()); err != nil {
		log.Fatal("Redis connection failed", zap.Error(err))
	}

	opts := shop.Options{
		Payments:    payment.NewPaystack(&cfg.Payment),
		CashMethods: cfg.Checkout.CashMethods,
		Logger:      log,
	}

	var auditReader gateway.AuditReader
	if cfg.MongoDB.URI != "" {
		audit, err := repository.NewMongoRepository(&cfg.MongoDB, "gateway")
		if err != nil {
			log.Warn("Failed to connect to MongoDB, audit log disabled", zap.Error(err))
		} else {
			defer audit.Close(context.Background())
			opts.Audit = audit
			auditReader = audit
		}
	}

	var notifiers []shop.Notifier
	if cfg.Notification.PostmarkServerToken != "" {
		notifiers = append(notifiers, notify.NewEmailNotifier(&cfg.Notification))
	}
	if cfg.RabbitMQ.URL != "" {
		bus, err := notify.NewBusNotifier(&cfg.RabbitMQ)
		if err != nil {
			log.Warn("Failed to connect to RabbitMQ, order events disabled", zap.Error(err))
		} else {
			defer bus.Close()
			notifiers = append(notifiers, bus)
		}
	}
	dispatcher, err := notify.NewDispatcher(log.Named("notify"), notifiers...)
	if err != nil {
		log.Fatal("Failed to start notification dispatcher", zap.Error(err))
	}
	opts.Notifier = dispatcher

	svc := shop.NewService(store, repository.NewRedisSessions(redisRepo, cfg.Session.TTL), opts)

	gwOpts := []gateway.Option{
		gateway.WithOrderCache(repository.NewOrderCache(redisRepo, 5*time.Minute)),
	}

	if auditReader != nil {
		gwOpts = append(gwOpts, gateway.WithAuditReader(auditReader))
	}

	if cfg.Gateway.RemoteStock {
		// Setup service discovery
		sd, err := discovery.NewServiceDiscovery(&cfg.Etcd)
		if err != nil {
			log.Warn("Failed to connect to etcd, continuing without service discovery", zap.Error(err))
		} else {
			defer sd.Close()
		}

		clients := grpc.NewClientManager(cfg.Server.Name, cfg.Server.Addr(), sd, log)
		if err := clients.Connect(); err != nil {
			log.Fatal("Failed to connect to stock service", zap.Error(err))
		}
		defer clients.Close()
		gwOpts = append(gwOpts, gateway.WithStockReader(clients.StockClient()))
	}

	// Create gateway
	gw := gateway.NewGateway(cfg, log, svc, gwOpts...)
	gw.SetupRoutes()

	// Start gateway in goroutine
	gwErr := make(chan error, 1)
	go func() {
		if err := gw.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			gwErr <- err
		}
	}()

	log.Info("Gateway started successfully")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info("Received shutdown signal")
	case err := <-gwErr:
		log.Error("Gateway error", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := gw.Shutdown(ctx); err != nil {
		log.Error("Gateway shutdown failed", zap.Error(err))
	}
	if err := dispatcher.Stop(); err != nil {
		log.Error("Notification dispatcher stop failed", zap.Error(err))
	}

	log.Info("Gateway stopped")
}
