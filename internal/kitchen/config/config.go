package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config is the complete configuration surface for the order-core-service
// composition root.
type Config struct {
	Service    ServiceConfig    `yaml:"service" json:"service"`
	Logger     LoggerConfig     `yaml:"logger" json:"logger"`
	Database   DatabaseConfig   `yaml:"database" json:"database"`
	Redis      RedisConfig      `yaml:"redis" json:"redis"`
	Kafka      KafkaConfig      `yaml:"kafka" json:"kafka"`
	Worker     WorkerConfig     `yaml:"worker" json:"worker"`
	Deduct     DeductionConfig  `yaml:"deduction" json:"deduction"`
	Pricing    PricingConfig    `yaml:"pricing" json:"pricing"`
	Priority   PriorityConfig   `yaml:"priority" json:"priority"`
	Queue      QueueConfig      `yaml:"queue" json:"queue"`
	Monitoring MonitoringConfig `yaml:"monitoring" json:"monitoring"`
	Cache      CacheConfig      `yaml:"cache" json:"cache"`
}

// CacheConfig holds the Redis-backed pricing-candidate cache used by C2.
type CacheConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Password string `yaml:"password" json:"password"`
	Database int    `yaml:"database" json:"database"`
	Prefix   string `yaml:"prefix" json:"prefix"`
}

// ServiceConfig holds service-level identity/listen configuration.
type ServiceConfig struct {
	Name        string `yaml:"name" json:"name"`
	Version     string `yaml:"version" json:"version"`
	Environment string `yaml:"environment" json:"environment"`
	Port        int    `yaml:"port" json:"port"`
	Host        string `yaml:"host" json:"host"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// DatabaseConfig holds PostgreSQL connection configuration for the
// inventory/recipe/pricing/order tables.
type DatabaseConfig struct {
	Host            string        `yaml:"host" json:"host"`
	Port            int           `yaml:"port" json:"port"`
	Database        string        `yaml:"database" json:"database"`
	Username        string        `yaml:"username" json:"username"`
	Password        string        `yaml:"password" json:"password"`
	SSLMode         string        `yaml:"ssl_mode" json:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
}

// GetDSN returns the lib/pq connection string for this database config.
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Password, c.Database, c.SSLMode)
}

// RedisConfig holds Redis connection configuration for queue and priority
// score storage.
type RedisConfig struct {
	Host         string        `yaml:"host" json:"host"`
	Port         int           `yaml:"port" json:"port"`
	Password     string        `yaml:"password" json:"password"`
	Database     int           `yaml:"database" json:"database"`
	PoolSize     int           `yaml:"pool_size" json:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" json:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout" json:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
}

// GetAddr returns the host:port address for the Redis client.
func (c *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// KafkaConfig holds the domain-event bus configuration.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers" json:"brokers"`
	Topic   string   `yaml:"topic" json:"topic"`
	GroupID string   `yaml:"group_id" json:"group_id"`
}

// WorkerConfig tunes the background maintenance workers (rebalancer, boost
// expirer, stale-score recomputer, rule expirer).
type WorkerConfig struct {
	RebalanceInterval      time.Duration `yaml:"rebalance_interval" json:"rebalance_interval"`
	BoostExpiryInterval    time.Duration `yaml:"boost_expiry_interval" json:"boost_expiry_interval"`
	ScoreRecomputeInterval time.Duration `yaml:"score_recompute_interval" json:"score_recompute_interval"`
	RuleExpiryInterval     time.Duration `yaml:"rule_expiry_interval" json:"rule_expiry_interval"`
	CleanupInterval        time.Duration `yaml:"cleanup_interval" json:"cleanup_interval"`
}

// DeductionConfig holds C1 Recipe Inventory Deductor tunables.
type DeductionConfig struct {
	UseRecipeBasedDeduction bool          `yaml:"use_recipe_based_deduction" json:"use_recipe_based_deduction"`
	DefaultMode             string        `yaml:"default_mode" json:"default_mode"`
	AllowNegativeInventory  bool          `yaml:"allow_negative_inventory" json:"allow_negative_inventory"`
	MaxSubRecipeDepth       int           `yaml:"max_sub_recipe_depth" json:"max_sub_recipe_depth"`
	LockTimeout             time.Duration `yaml:"lock_timeout" json:"lock_timeout"`
}

// PricingConfig holds C2 Pricing Rule Engine tunables.
type PricingConfig struct {
	DefaultConflictResolution string        `yaml:"default_conflict_resolution" json:"default_conflict_resolution"`
	DebugMode                 bool          `yaml:"debug_mode" json:"debug_mode"`
	RoundingMode              string        `yaml:"rounding_mode" json:"rounding_mode"`
	CacheTTLSeconds           time.Duration `yaml:"cache_ttl_seconds" json:"cache_ttl_seconds"`
}

// PriorityConfig holds C3 Priority Scorer tunables.
type PriorityConfig struct {
	DefaultAggregation string  `yaml:"default_aggregation" json:"default_aggregation"`
	NormalizeWeights   bool    `yaml:"normalize_weights" json:"normalize_weights"`
	PeakMultiplier     float64 `yaml:"peak_multiplier" json:"peak_multiplier"`
}

// QueueConfig holds C4 Queue Sequencer & Rebalancer tunables.
type QueueConfig struct {
	DefaultCapacity   int     `yaml:"default_capacity" json:"default_capacity"`
	MaxPositionChange int     `yaml:"max_position_change" json:"max_position_change"`
	FairnessThreshold float64 `yaml:"fairness_threshold" json:"fairness_threshold"`
}

// MonitoringConfig holds metrics/health endpoint configuration.
type MonitoringConfig struct {
	Enabled         bool `yaml:"enabled" json:"enabled"`
	MetricsPort     int  `yaml:"metrics_port" json:"metrics_port"`
	HealthCheckPort int  `yaml:"health_check_port" json:"health_check_port"`
}

// Load loads configuration from configPath (or the ./configs, ../configs,
// ../../configs search path when empty), then layers in environment
// variable overrides.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
		v.AddConfigPath("../../configs")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Watch installs a viper hot-reload callback so rule-engine tunables can be
// changed without a restart. configPath must be the same path passed to
// Load; it re-reads and re-unmarshals on every change, handing the new
// Config to onChange.
func Watch(configPath string, onChange func(*Config)) error {
	v := viper.New()
	setDefaults(v)
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	v.WatchConfig()
	v.OnConfigChange(func(_ fsnotify.Event) {
		var cfg Config
		if err := v.Unmarshal(&cfg); err != nil {
			return
		}
		onChange(&cfg)
	})
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.name", "order-core-service")
	v.SetDefault("service.version", "1.0.0")
	v.SetDefault("service.environment", "development")
	v.SetDefault("service.port", 8090)
	v.SetDefault("service.host", "0.0.0.0")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "order_core")
	v.SetDefault("database.username", "postgres")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "kitchen.orchestration")
	v.SetDefault("kafka.group_id", "order-core-service")

	v.SetDefault("worker.rebalance_interval", "1m")
	v.SetDefault("worker.boost_expiry_interval", "30s")
	v.SetDefault("worker.score_recompute_interval", "5m")
	v.SetDefault("worker.rule_expiry_interval", "1h")
	v.SetDefault("worker.cleanup_interval", "24h")

	v.SetDefault("deduction.use_recipe_based_deduction", true)
	v.SetDefault("deduction.default_mode", "ON_START")
	v.SetDefault("deduction.allow_negative_inventory", false)
	v.SetDefault("deduction.max_sub_recipe_depth", 10)
	v.SetDefault("deduction.lock_timeout", "5s")

	v.SetDefault("pricing.default_conflict_resolution", "HIGHEST_DISCOUNT")
	v.SetDefault("pricing.debug_mode", false)
	v.SetDefault("pricing.rounding_mode", "HALF_UP")
	v.SetDefault("pricing.cache_ttl_seconds", "30s")

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.host", "localhost")
	v.SetDefault("cache.port", 6379)
	v.SetDefault("cache.database", 1)
	v.SetDefault("cache.prefix", "order_core")

	v.SetDefault("priority.default_aggregation", "weighted_sum")
	v.SetDefault("priority.normalize_weights", true)
	v.SetDefault("priority.peak_multiplier", 1.5)

	v.SetDefault("queue.default_capacity", 100)
	v.SetDefault("queue.max_position_change", 5)
	v.SetDefault("queue.fairness_threshold", 0.3)

	v.SetDefault("monitoring.enabled", true)
	v.SetDefault("monitoring.metrics_port", 9090)
	v.SetDefault("monitoring.health_check_port", 8091)
}

func validate(cfg *Config) error {
	if cfg.Service.Name == "" {
		return fmt.Errorf("service name is required")
	}
	if cfg.Service.Port <= 0 || cfg.Service.Port > 65535 {
		return fmt.Errorf("invalid service port: %d", cfg.Service.Port)
	}
	if cfg.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if cfg.Redis.Host == "" {
		return fmt.Errorf("redis host is required")
	}
	if cfg.Deduct.MaxSubRecipeDepth <= 0 {
		return fmt.Errorf("deduction.max_sub_recipe_depth must be positive")
	}
	return nil
}
