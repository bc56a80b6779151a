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

	"golang.org/x/sync/errgroup"

	"restaurant-pos/internal/adapter/memory"
	"restaurant-pos/internal/config"
	"restaurant-pos/internal/database"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/messaging"
	"restaurant-pos/internal/services/analytics"
	"restaurant-pos/internal/services/api"
	"restaurant-pos/internal/services/bridge"
	"restaurant-pos/internal/services/catalog"
	"restaurant-pos/internal/services/facade"
	"restaurant-pos/internal/services/ledger"
	"restaurant-pos/internal/services/notification"
)

// store is everything the core services need from storage
type store interface {
	catalog.Repository
	ledger.Repository
	analytics.Source
	api.Pinger
}

func main() {
	var (
		mode       = flag.String("mode", "", "Service mode (pos-service, bridge-worker, notification-subscriber)")
		configPath = flag.String("config", "config.yaml", "Path to the YAML config file")
		port       = flag.Int("port", 0, "HTTP port, overrides server.port")
		prefetch   = flag.Int("prefetch", 1, "RabbitMQ prefetch count")
	)
	flag.Parse()

	if *mode == "" {
		fmt.Fprintf(os.Stderr, "Error: --mode flag is required\n")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	log := logger.New(*mode)
	requestID := logger.GenerateRequestID()

	log.Info("service_started", fmt.Sprintf("Starting %s", *mode), requestID, map[string]interface{}{
		"mode":     *mode,
		"storage":  cfg.Storage.Driver,
		"rabbitmq": cfg.RabbitMQ.Enabled,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info("graceful_shutdown", "Received shutdown signal", requestID, nil)
		cancel()
	}()

	switch *mode {
	case "pos-service":
		err = runPOSService(ctx, cfg, log)
	case "bridge-worker":
		err = runBridgeWorker(ctx, cfg, log, *prefetch)
	case "notification-subscriber":
		err = runNotificationSubscriber(ctx, cfg, log, *prefetch)
	default:
		err = fmt.Errorf("unknown mode: %s", *mode)
	}
	if err != nil {
		log.Error("service_failed", fmt.Sprintf("%s failed", *mode), requestID, err, nil)
		os.Exit(1)
	}

	log.Info("service_stopped", "Service stopped gracefully", requestID, nil)
}

// openStore connects the configured storage driver and returns its release func
func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (store, func(), error) {
	if cfg.Storage.Driver == "memory" {
		log.Info("storage_ready", "Using in-memory storage", "", map[string]interface{}{
			"dishes": len(catalog.DefaultDishes),
		})
		return memory.New(catalog.DefaultDishes...), func() {}, nil
	}

	db, err := database.New(ctx, cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.RunMigrations(ctx, cfg.Database.Migrations); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return database.NewRepository(db), db.Close, nil
}

// buildFacade wires the core services over one store
func buildFacade(cfg *config.Config, st store, pub ledger.Publisher, log *logger.Logger) (*facade.Facade, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	cat := catalog.NewService(st, log)
	led := ledger.NewService(st, cat, pub, log, ledger.Options{
		Location:       loc,
		RecalcOnDelete: cfg.Ledger.RecalcOnDelete,
	})
	an := analytics.NewService(st, log, loc)

	return facade.New(cat, led, an, log), nil
}

// runPOSService serves the HTTP adapter
func runPOSService(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	requestID := logger.GenerateRequestID()

	st, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	var pub ledger.Publisher
	if cfg.RabbitMQ.Enabled {
		conn, err := messaging.New(cfg, log)
		if err != nil {
			return fmt.Errorf("failed to initialize messaging: %w", err)
		}
		defer conn.Close()
		log.Info("rabbitmq_connected", "Connected to RabbitMQ", requestID, nil)
		pub = messaging.NewPublisher(conn, log)
	}

	f, err := buildFacade(cfg, st, pub, log)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewHandler(f, st, log).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("service_started", fmt.Sprintf("POS service started on port %d", cfg.Server.Port), requestID, map[string]interface{}{
			"port": cfg.Server.Port,
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// runBridgeWorker serves facade requests from the RabbitMQ request queue
func runBridgeWorker(ctx context.Context, cfg *config.Config, log *logger.Logger, prefetch int) error {
	st, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	pubConn, err := messaging.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}
	defer pubConn.Close()
	publisher := messaging.NewPublisher(pubConn, log)

	consumerConn, err := messaging.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}
	consumer := messaging.NewConsumer(consumerConn, log, messaging.RequestQueue, "bridge-worker", prefetch)

	f, err := buildFacade(cfg, st, publisher, log)
	if err != nil {
		consumer.Close()
		return err
	}

	return bridge.NewWorker(consumer, f, publisher, log).Start(ctx)
}

// runNotificationSubscriber prints order events as they happen
func runNotificationSubscriber(ctx context.Context, cfg *config.Config, log *logger.Logger, prefetch int) error {
	conn, err := messaging.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}

	consumer := messaging.NewConsumer(conn, log, messaging.OrderEventsQueue, "notification-subscriber", prefetch)
	return notification.NewSubscriber(consumer, log).Start(ctx)
}
