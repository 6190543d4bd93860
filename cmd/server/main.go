package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"decobot/internal/cart"
	cartrepo "decobot/internal/cart/repository"
	"decobot/internal/commons"
	"decobot/internal/config"
	"decobot/internal/customer"
	"decobot/internal/domain"
	"decobot/internal/infrastructure/logger"
	mongoinfra "decobot/internal/infrastructure/mongo"
	"decobot/internal/infrastructure/mysql"
	"decobot/internal/infrastructure/rabbitmq"
	"decobot/internal/notify"
	"decobot/internal/order"
	orderrepo "decobot/internal/order/repository"
	"decobot/internal/order/service"
	"decobot/internal/pricing"
	"decobot/internal/product"
	productrepo "decobot/internal/product/repository"
	"decobot/internal/server"
	"decobot/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer zapLogger.Sync()

	if cfg.Server.WebhookSecret == "" {
		zapLogger.Fatal("WEBHOOK_SECRET is required, inbound events would all be rejected")
	}

	ref, err := commons.LoadReferenceData(cfg.Reference.Path)
	if err != nil {
		zapLogger.Fatal("loading reference data", zap.Error(err))
	}
	directory := customer.NewDirectory(ref.Customers)
	zapLogger.Info("reference data loaded",
		zap.Int("customers", directory.Len()),
		zap.Int("recipients", len(ref.Recipients)),
		zap.Int("products", len(ref.Catalog)))

	ctx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	repo, catalogRepo, closeStore, err := newRepositories(ctx, cfg, ref, zapLogger)
	if err != nil {
		zapLogger.Fatal("opening order store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer closeStore()

	transport, closeTransport, err := newTransport(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("opening chat transport", zap.String("driver", cfg.Transport.Driver), zap.Error(err))
	}
	defer closeTransport()

	dispatcher := notify.NewDispatcher(transport, notify.NewRenderer(ref), cfg.Dispatch.Workers, cfg.Dispatch.QueueSize, zapLogger)
	dispatcher.Start()

	calculator, err := pricing.NewCalculator(cfg.Pricing.TaxRate)
	if err != nil {
		zapLogger.Fatal("configuring pricing", zap.Error(err))
	}

	cartRepo, err := cartrepo.NewFileCartRepository(cfg.Cart.DataDir)
	if err != nil {
		zapLogger.Fatal("opening cart storage", zap.Error(err))
	}

	catalogModule := product.NewModule(catalogRepo, zapLogger)

	sessions := session.NewStore(directory, cfg.Session.IdleTimeout, zapLogger)
	go sessions.RunEviction(ctx, cfg.Session.SweepInterval)

	orderModule := order.NewModule(order.Dependencies{
		Repository: repo,
		Pricing:    calculator,
		Notifier:   dispatcher,
		Sessions:   sessions,
		Cart:       cart.NewService(cartRepo, cfg.Cart.MaxItems, zapLogger),
		Catalog:    catalogModule.Service,
		Reference:  ref,
	}, cfg, zapLogger)
	go orderModule.Reminders.Run(ctx)

	router := server.NewRouter(orderModule.Controller, catalogModule.Controller, zapLogger)

	srv := server.New(cfg.Server, router, zapLogger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil {
			zapLogger.Fatal("server error", zap.Error(err))
		}
	}()

	<-quit
	zapLogger.Info("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server shutdown failed", zap.Error(err))
	}

	stopWorkers()

	// Flush notifications produced by requests that finished before shutdown.
	dispatcher.Close()

	zapLogger.Info("server stopped gracefully")
}

// newRepositories opens the order store for the configured driver. The
// catalog lives in MySQL when that driver is selected, seeded from the
// reference data; every other driver serves it from memory.
func newRepositories(ctx context.Context, cfg *config.Config, ref *domain.ReferenceData, logger *zap.Logger) (service.OrderRepository, product.Repository, func(), error) {
	memCatalog := productrepo.NewMemoryRepository(ref.Catalog)

	switch cfg.Store.Driver {
	case "memory":
		logger.Warn("using in-memory order store, orders are lost on restart")
		return orderrepo.NewMemoryOrderRepository(), memCatalog, func() {}, nil

	case "mysql":
		db, err := mysql.NewConnection(cfg.Database)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := mysql.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		catalog := productrepo.NewMySQLRepository(db)
		if err := catalog.Upsert(ctx, ref.Catalog); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		logger.Info("database connected", zap.String("driver", "mysql"))
		return orderrepo.NewMySQLOrderRepository(db), catalog, func() { db.Close() }, nil

	case "mongo":
		client, db, err := mongoinfra.NewConnection(ctx, cfg.Mongo)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := mongoinfra.EnsureOrderIndexes(ctx, db, logger); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, nil, err
		}
		logger.Info("database connected", zap.String("driver", "mongo"), zap.String("database", cfg.Mongo.Database))
		closeFn := func() {
			if err := client.Disconnect(context.Background()); err != nil {
				logger.Warn("mongo disconnect failed", zap.Error(err))
			}
		}
		return orderrepo.NewMongoOrderRepository(db.Collection(mongoinfra.OrderRecordsCollection)), memCatalog, closeFn, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

func newTransport(cfg *config.Config, logger *zap.Logger) (notify.Transport, func(), error) {
	switch cfg.Transport.Driver {
	case "log":
		return notify.NewLogTransport(logger), func() {}, nil

	case "amqp":
		client, err := rabbitmq.NewClient(cfg.RabbitMQ, logger)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := client.Close(); err != nil {
				logger.Warn("rabbitmq close failed", zap.Error(err))
			}
		}
		return notify.NewAMQPTransport(client), closeFn, nil

	case "telegram":
		if cfg.Bot.Token == "" {
			return nil, nil, fmt.Errorf("BOT_TOKEN is required for the telegram transport")
		}
		transport, err := notify.NewTelegramTransport(cfg.Bot.APIBaseURL, cfg.Bot.Token)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("telegram bot connected", zap.String("username", transport.Username()))
		return transport, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown transport driver %q", cfg.Transport.Driver)
}
