package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	directoryrepo "shelterwalk/internal/directory/repository"
	"shelterwalk/internal/events"
	settingsrepo "shelterwalk/internal/settings/repository"
	settingsservice "shelterwalk/internal/settings/service"
	leaserepo "shelterwalk/internal/sweeper/repository"
	sweeperservice "shelterwalk/internal/sweeper/service"
	"shelterwalk/pkg/config"
	"shelterwalk/pkg/kafka"
	kafka_config "shelterwalk/pkg/kafka/config"

	"github.com/joho/godotenv"
)

const ServiceName = "sweeper"

func main() {
	_ = godotenv.Load()

	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting sweeper service", "interval", cfg.SweepInterval)

	leases := leaserepo.NewLeaseRepository(cfg)
	users := directoryrepo.NewMongoUserRepository(cfg)
	settings := settingsrepo.NewMongoSettingsRepository(cfg)

	ensureCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := leases.EnsureIndexes(ensureCtx); err != nil {
		cancel()
		cfg.Log.Fatal("Failed to create lease indexes", "error", err)
	}
	cancel()

	policy := settingsservice.NewPolicyStore(settings, cfg)
	sweeper := sweeperservice.NewSweeper(leases, users, policy, newEmitter(cfg), cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeper.Loop(ctx)
	cfg.Log.Info("Sweeper stopped")
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
