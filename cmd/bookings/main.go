package main

import (
	"context"
	"time"

	"repairdesk/internal/bookings/handler"
	"repairdesk/internal/bookings/repository"
	"repairdesk/internal/bookings/service"
	"repairdesk/internal/bookings/validator"
	"repairdesk/internal/catalog"
	"repairdesk/internal/events/relay"
	eventsrepo "repairdesk/internal/events/repository"
	"repairdesk/internal/pricing"
	slothandler "repairdesk/internal/slots/handler"
	slotrepo "repairdesk/internal/slots/repository"
	slotservice "repairdesk/internal/slots/service"
	slotvalidator "repairdesk/internal/slots/validator"
	"repairdesk/pkg/app"
	"repairdesk/pkg/config"
	mongotx "repairdesk/pkg/db/mongo"
	"repairdesk/pkg/kafka"
	kafka_config "repairdesk/pkg/kafka/config"
	kafka_middleware "repairdesk/pkg/kafka/middleware"
	otelx "repairdesk/pkg/otel"
	"repairdesk/pkg/sealer"
)

const (
	ServiceName = "bookings"

	catalogStartupWait = 30 * time.Second
)

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting Bookings service")
	serverApp := app.NewApplication(cfg)

	shutdownTracing, err := otelx.Setup(context.Background(), cfg, ServiceName)
	if err != nil {
		cfg.Log.Fatal("Failed to set up tracing", "error", err)
	}

	producer := initProducer(cfg, serverApp)
	bookingService, slotService := initServices(cfg)

	serverApp.OnShutdown(func(context.Context) error {
		return producer.Close()
	})
	serverApp.OnShutdown(shutdownTracing)
	serverApp.OnShutdown(func(context.Context) error {
		cfg.GracefulShutdown()
		return nil
	})

	serverApp.SetApp(
		cfg.Client.Mongo,
		handler.NewBookingHandler(bookingService, cfg.Log),
		slothandler.NewSlotHandler(slotService, cfg.Log),
	)
	serverApp.Run()
}

func initProducer(cfg *config.Config, serverApp *app.Application) *kafka.Producer {
	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create kafka producer", "error", err)
	}

	if kafkaCfg.EnableMiddleware {
		metrics := kafka_middleware.NewMetrics()
		producer.Use(kafka_middleware.MetricsProducerMiddleware(metrics))
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
		serverApp.OnShutdown(func(context.Context) error {
			cfg.Log.Info("Kafka producer summary",
				"published", metrics.Published(),
				"failed", metrics.Failed(),
				"avg_publish_duration", metrics.AvgPublishDuration(),
			)
			return nil
		})
	}

	outbox := eventsrepo.NewMongoOutboxRepository(cfg)
	serverApp.AddWorker(relay.NewRelay(outbox, producer, kafkaCfg.ProducerSchemaVersion, cfg))
	return producer
}

func initServices(cfg *config.Config) (service.BookingService, slotservice.SlotService) {
	tokenKey := cfg.ReservationTokenKey
	if tokenKey == "" {
		cfg.Log.Warn("RESERVATION_TOKEN_KEY not set, using the development key")
		tokenKey = sealer.DevelopmentKey
	}
	tokenSealer, err := sealer.New(tokenKey)
	if err != nil {
		cfg.Log.Fatal("Invalid reservation token key", "error", err)
	}

	txManager := mongotx.NewTransactionManager(cfg.Client.Mongo)

	slotService := slotservice.NewSlotService(
		slotrepo.NewMongoSlotRepository(cfg),
		slotrepo.NewMongoReservationRepository(cfg),
		slotrepo.NewMongoSpecialDateRepository(cfg),
		txManager,
		tokenSealer,
		slotvalidator.NewSlotValidator(cfg.Log),
		cfg,
	)

	bookingService := service.NewBookingService(
		repository.NewMongoBookingRepository(cfg),
		repository.NewMongoTransitionRepository(cfg),
		eventsrepo.NewMongoOutboxRepository(cfg),
		txManager,
		initCatalog(cfg),
		pricing.NewCalculator(cfg.Pricing),
		slotService,
		validator.NewBookingValidator(cfg.Log),
		cfg,
	)

	cfg.Log.Info("Booking services initialized",
		"database", cfg.MongoDatabaseName,
		"catalog_source", cfg.CatalogSource,
	)
	return bookingService, slotService
}

func initCatalog(cfg *config.Config) catalog.Provider {
	provider := catalog.New(cfg)
	if remote, ok := provider.(*catalog.HTTPProvider); ok {
		if err := remote.WaitForHealthy(context.Background(), catalogStartupWait); err != nil {
			cfg.Log.Warn("Catalog service not healthy at startup, quotes fail until it recovers",
				"catalog_url", cfg.CatalogURL,
				"error", err,
			)
		} else {
			cfg.Log.Info("Catalog service healthy", "catalog_url", cfg.CatalogURL)
		}
	}
	return provider
}
