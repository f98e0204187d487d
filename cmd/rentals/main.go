package main

import (
	bikeshandler "keiteki/internal/bikes/handler"
	bikesrepo "keiteki/internal/bikes/repository"
	bikesservice "keiteki/internal/bikes/service"
	billinghandler "keiteki/internal/billing/handler"
	billingrepo "keiteki/internal/billing/repository"
	billingservice "keiteki/internal/billing/service"
	rentalshandler "keiteki/internal/rentals/handler"
	rentalsrepo "keiteki/internal/rentals/repository"
	rentalsservice "keiteki/internal/rentals/service"
	rentalsvalidator "keiteki/internal/rentals/validator"
	residentshandler "keiteki/internal/residents/handler"
	residentsrepo "keiteki/internal/residents/repository"
	residentsservice "keiteki/internal/residents/service"
	residentsvalidator "keiteki/internal/residents/validator"
	"keiteki/pkg/app"
	"keiteki/pkg/config"
	"keiteki/pkg/kafka"
	kafka_config "keiteki/pkg/kafka/config"
	kafka_middleware "keiteki/pkg/kafka/middleware"
)

const (
	ServiceName  = "rentals"
	rentalsTopic = "keiteki.rentals"
)

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Rentals service")

	producer := initProducer(cfg)
	if producer != nil {
		defer producer.Close()
	}

	rentalService, billingLedger, residentService, bikeService := initServices(cfg, producer)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(
		rentalshandler.NewRentalHandler(rentalService, cfg.Log),
		billinghandler.NewBillingHandler(billingLedger, cfg.Log),
		residentshandler.NewResidentHandler(residentService, cfg.Log),
		bikeshandler.NewBikeHandler(bikeService, cfg.Log),
	)
	serverApp.Run()
}

func initProducer(cfg *config.Config) *kafka.Producer {
	if !cfg.EventsEnabled {
		cfg.Log.Info("Rental events disabled")
		return nil
	}

	kafkaCfg := kafka_config.Load()
	producer, err := kafka.NewProducer(kafkaCfg, rentalsTopic, rentalsTopic+".dlq")
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware())
	}

	cfg.Log.Info("Rental events enabled", "topic", rentalsTopic, "brokers", kafkaCfg.Brokers)
	return producer
}

func initServices(cfg *config.Config, producer *kafka.Producer) (
	rentalsservice.RentalService,
	billingservice.BillingLedger,
	residentsservice.ResidentService,
	bikesservice.BikeService,
) {
	billingRepo := billingrepo.NewMongoBillingRepository(cfg)
	billingLedger := billingservice.NewBillingLedger(billingRepo, cfg)

	bikeRepo := bikesrepo.NewMongoBikeRepository(cfg)
	bikeService := bikesservice.NewBikeService(bikeRepo, cfg)

	rentalRepo := rentalsrepo.NewMongoRentalRepository(cfg)
	usageRepo := rentalsrepo.NewMongoDailyUsageRepository(cfg)
	accumulator := rentalsservice.NewUsageAccumulator(usageRepo, billingLedger, cfg)
	rentalValidator := rentalsvalidator.NewRentalValidator(cfg.Log)

	// A nil interface must stay nil: wrap the concrete producer only
	// when it exists.
	var events rentalsservice.EventPublisher
	if producer != nil {
		events = producer
	}

	rentalService := rentalsservice.NewRentalService(
		rentalRepo,
		bikeRepo,
		accumulator,
		billingLedger,
		rentalValidator,
		events,
		cfg,
	)

	residentRepo := residentsrepo.NewMongoResidentRepository(cfg)
	residentValidator := residentsvalidator.NewResidentValidator(cfg.Log)
	residentService := residentsservice.NewResidentService(residentRepo, residentValidator, cfg)

	cfg.Log.Info("Rental services initialized", "database", cfg.MongoDatabaseName)
	return rentalService, billingLedger, residentService, bikeService
}
