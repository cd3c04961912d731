package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/DimaJoyti/go-coffee/internal/kitchen/application"
	"github.com/DimaJoyti/go-coffee/internal/kitchen/config"
	"github.com/DimaJoyti/go-coffee/internal/kitchen/infrastructure/messaging"
	"github.com/DimaJoyti/go-coffee/internal/kitchen/infrastructure/repository"
	"github.com/DimaJoyti/go-coffee/internal/kitchen/workers"
	"github.com/DimaJoyti/go-coffee/pkg/logger"
	pkgmessaging "github.com/DimaJoyti/go-coffee/pkg/messaging"
	"github.com/DimaJoyti/go-coffee/pkg/monitoring"
)

func newRebalanceNowCommand(configPath *string, log *logger.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "rebalance-now",
		Short: "Run a single out-of-band queue rebalance pass and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRebalanceNow(*configPath, log)
		},
	}
}

func runRebalanceNow(configPath string, log *logger.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	db, err := sql.Open("postgres", cfg.Database.GetDSN())
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.Database,
	})
	defer redisClient.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		cancel()
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	cancel()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}

	repoManager := repository.NewRepositoryManager(db, redisClient, log)
	defer repoManager.Close()

	bus := pkgmessaging.NewKafkaMessageBus(&pkgmessaging.KafkaConfig{
		Brokers:       cfg.Kafka.Brokers,
		GroupID:       cfg.Kafka.GroupID,
		BatchSize:     100,
		BatchTimeout:  1 * time.Second,
		RetryAttempts: 3,
		RetryDelay:    500 * time.Millisecond,
	})
	eventPublisher := messaging.NewKafkaEventPublisher(bus, log)

	priorityService := application.NewPriorityService(repoManager, log)
	queueService := application.NewQueueService(
		repoManager, priorityService, eventPublisher,
		0, cfg.Queue.MaxPositionChange, cfg.Queue.FairnessThreshold,
		30*time.Minute, log,
	)
	pricingService := application.NewPricingService(repoManager, eventPublisher, "", nil, 0, log)

	runner := workers.NewRunner(repoManager, priorityService, pricingService, queueService, restaurantListerFromEnv(), workers.Config{}, log)
	runner.SetMetrics(monitoring.NewBusinessMetrics(monitoring.NewPrometheusMetrics()))

	log.Info("running out-of-band rebalance pass")
	runner.RebalanceNow(context.Background())
	log.Info("rebalance pass complete")
	return nil
}
