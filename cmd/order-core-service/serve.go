package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/DimaJoyti/go-coffee/internal/kitchen/application"
	"github.com/DimaJoyti/go-coffee/internal/kitchen/config"
	"github.com/DimaJoyti/go-coffee/internal/kitchen/domain"
	"github.com/DimaJoyti/go-coffee/internal/kitchen/infrastructure/messaging"
	"github.com/DimaJoyti/go-coffee/internal/kitchen/infrastructure/repository"
	"github.com/DimaJoyti/go-coffee/internal/kitchen/workers"
	"github.com/DimaJoyti/go-coffee/pkg/cache"
	"github.com/DimaJoyti/go-coffee/pkg/logger"
	pkgmessaging "github.com/DimaJoyti/go-coffee/pkg/messaging"
	"github.com/DimaJoyti/go-coffee/pkg/monitoring"
)

func newServeCommand(configPath *string, log *logger.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background maintenance workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(*configPath, log)
		},
	}
}

func runServe(configPath string, log *logger.Logger) error {
	log.Info("starting order orchestration core")

	cfg, err := config.Load(configPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	db, err := sql.Open("postgres", cfg.Database.GetDSN())
	if err != nil {
		log.WithError(err).Fatal("failed to open postgres connection")
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	redisClient := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.GetAddr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.Database,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if _, err := redisClient.Ping(pingCtx).Result(); err != nil {
		pingCancel()
		log.WithError(err).Fatal("failed to connect to redis")
	}
	pingCancel()
	if err := db.Ping(); err != nil {
		log.WithError(err).Fatal("failed to connect to postgres")
	}
	log.Info("connected to postgres and redis")

	repoManager := repository.NewRepositoryManager(db, redisClient, log)

	bus := pkgmessaging.NewKafkaMessageBus(&pkgmessaging.KafkaConfig{
		Brokers:       cfg.Kafka.Brokers,
		GroupID:       cfg.Kafka.GroupID,
		BatchSize:     100,
		BatchTimeout:  1 * time.Second,
		RetryAttempts: 3,
		RetryDelay:    500 * time.Millisecond,
	})
	eventPublisher := messaging.NewKafkaEventPublisher(bus, log)

	candidateCache := buildCandidateCache(cfg.Cache, log)

	deductorService := application.NewDeductorService(repoManager, eventPublisher, flatIngredientMappings, cfg.Deduct.UseRecipeBasedDeduction, log)
	pricingService := application.NewPricingService(repoManager, eventPublisher, domain.ConflictStrategy(cfg.Pricing.DefaultConflictResolution), candidateCache, cfg.Pricing.CacheTTLSeconds, log)
	priorityService := application.NewPriorityService(repoManager, log)
	queueService := application.NewQueueService(
		repoManager, priorityService, eventPublisher,
		0, cfg.Queue.MaxPositionChange, cfg.Queue.FairnessThreshold,
		30*time.Minute, log,
	)
	lifecycleService := application.NewLifecycleService(repoManager, pricingService, deductorService, application.LifecycleConfig{
		DeductOnCompletion:        false,
		AutoReverseOnCancellation: true,
	}, log)

	runner := workers.NewRunner(repoManager, priorityService, pricingService, queueService, restaurantListerFromEnv(), workers.Config{
		RebalanceInterval:      cfg.Worker.RebalanceInterval,
		BoostExpiryInterval:    cfg.Worker.BoostExpiryInterval,
		ScoreRecomputeInterval: cfg.Worker.ScoreRecomputeInterval,
		RuleExpiryInterval:     cfg.Worker.RuleExpiryInterval,
		StaleAfter:             10 * time.Minute,
		RescoreThreshold:       5.0,
	}, log)

	metrics := monitoring.NewPrometheusMetrics()
	businessMetrics := monitoring.NewBusinessMetrics(metrics)
	deductorService.SetMetrics(businessMetrics)
	pricingService.SetMetrics(businessMetrics)
	runner.SetMetrics(businessMetrics)

	ctx, cancel := context.WithCancel(context.Background())
	runner.Start(ctx)

	httpServer := startHTTPServer(cfg.Service.Port, lifecycleService, queueService, metrics, log)

	log.WithField("port", cfg.Service.Port).Info("order orchestration core is running")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Info("shutting down order orchestration core")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP server shutdown error")
	}
	if err := repoManager.Close(); err != nil {
		log.WithError(err).Error("error closing repository manager")
	}
	log.Info("order orchestration core stopped gracefully")
	return nil
}

// buildCandidateCache builds the Redis-backed pricing candidate cache (C2),
// falling back to no cache (Evaluate always recomputes candidates) if Redis
// is unreachable rather than failing startup over an optimization.
func buildCandidateCache(cfg config.CacheConfig, log *logger.Logger) cache.Cache {
	if !cfg.Enabled {
		return nil
	}
	redisCache, err := cache.NewRedisCache(&cache.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Password: cfg.Password,
		DB:       cfg.Database,
		Prefix:   cfg.Prefix,
	})
	if err != nil {
		log.WithError(err).Warn("pricing candidate cache unavailable, evaluating without it")
		return nil
	}
	return redisCache
}

// restaurantListerFromEnv supplies the restaurant ids the periodic workers
// and the rebalance-now command sweep. The domain's QueueRepository only
// indexes queues by restaurant id, not as a flat list, so this core has no
// feature to derive it from; production deployments set
// ORDER_CORE_RESTAURANT_IDS from the restaurant directory service.
func restaurantListerFromEnv() workers.RestaurantLister {
	return func(ctx context.Context) ([]string, error) {
		ids := os.Getenv("ORDER_CORE_RESTAURANT_IDS")
		if ids == "" {
			return nil, nil
		}
		return splitCSV(ids), nil
	}
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
