package main

import (
	"context"
	"time"

	bookinghandler "shelterwalk/internal/booking/handler"
	bookingrepo "shelterwalk/internal/booking/repository"
	bookingservice "shelterwalk/internal/booking/service"
	"shelterwalk/internal/booking/validator"
	calendarhandler "shelterwalk/internal/calendar/handler"
	calendarrepo "shelterwalk/internal/calendar/repository"
	calendarservice "shelterwalk/internal/calendar/service"
	cataloghandler "shelterwalk/internal/catalog/handler"
	catalogrepo "shelterwalk/internal/catalog/repository"
	catalogservice "shelterwalk/internal/catalog/service"
	directoryrepo "shelterwalk/internal/directory/repository"
	"shelterwalk/internal/events"
	requesthandler "shelterwalk/internal/requests/handler"
	requestrepo "shelterwalk/internal/requests/repository"
	requestservice "shelterwalk/internal/requests/service"
	settingshandler "shelterwalk/internal/settings/handler"
	settingsrepo "shelterwalk/internal/settings/repository"
	settingsservice "shelterwalk/internal/settings/service"
	"shelterwalk/pkg/app"
	"shelterwalk/pkg/config"
	"shelterwalk/pkg/contracts"
	"shelterwalk/pkg/kafka"
	kafka_config "shelterwalk/pkg/kafka/config"

	"github.com/joho/godotenv"
)

const ServiceName = "scheduler"

func main() {
	_ = godotenv.Load()

	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting scheduler service")

	handlers := initServices(cfg)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handlers...)
	serverApp.Run()
}

func initServices(cfg *config.Config) []contracts.Handler {
	emitter := newEmitter(cfg)

	bookings := bookingrepo.NewMongoBookingRepository(cfg)
	slotLocks := bookingrepo.NewSlotLockRepository(cfg)
	users := directoryrepo.NewMongoUserRepository(cfg)
	dogs := catalogrepo.NewMongoDogRepository(cfg)
	blockedDates := calendarrepo.NewMongoBlockedDateRepository(cfg)
	settings := settingsrepo.NewMongoSettingsRepository(cfg)
	requests := requestrepo.NewMongoRequestRepository(cfg)

	ensureIndexes(cfg, bookings, slotLocks, users, requests)

	policy := settingsservice.NewPolicyStore(settings, cfg)
	bookingValidator := validator.NewBookingValidator(cfg.Log)

	bookingSvc := bookingservice.NewBookingService(
		bookings,
		slotLocks,
		users,
		dogs,
		blockedDates,
		policy,
		bookingValidator,
		emitter,
		cfg,
	)
	requestSvc := requestservice.NewRequestService(requests, users, emitter, cfg)
	calendarSvc := calendarservice.NewCalendarService(blockedDates, cfg)
	catalogSvc := catalogservice.NewCatalogService(dogs, cfg)

	cfg.Log.Info("Scheduler services initialized", "database", cfg.MongoDatabaseName)

	return []contracts.Handler{
		bookinghandler.NewBookingHandler(bookingSvc, cfg.Log),
		requesthandler.NewRequestHandler(requestSvc, cfg.Log),
		settingshandler.NewSettingsHandler(policy, cfg.Log),
		calendarhandler.NewCalendarHandler(calendarSvc, cfg.Log),
		cataloghandler.NewDogHandler(catalogSvc, cfg.Log),
	}
}

type indexed interface {
	EnsureIndexes(ctx context.Context) error
}

func ensureIndexes(cfg *config.Config, repos ...indexed) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, r := range repos {
		if err := r.EnsureIndexes(ctx); err != nil {
			cfg.Log.Fatal("Failed to create indexes", "error", err)
		}
	}
}

func newEmitter(cfg *config.Config) events.Emitter {
	if len(cfg.KafkaBrokers) == 0 {
		cfg.Log.Info("No Kafka brokers configured, events will be logged only")
		return events.NewLogEmitter(cfg.Log)
	}

	kafkaCfg, err := kafka_config.Load(cfg.KafkaBrokers)
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	producer, err := kafka.NewProducer(kafkaCfg, cfg.EventsTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}

	cfg.Log.Info("Kafka emitter configured", "brokers", cfg.KafkaBrokers, "topic", cfg.EventsTopic)
	return events.NewKafkaEmitter(producer, ServiceName)
}
