package main

import (
	"fmt"
	"os"
	"time"

	"algotrack/internal/common/cache"
	"algotrack/internal/common/db"
	"algotrack/internal/common/mq"
	"algotrack/internal/common/storage"
	problemservice "algotrack/internal/problem/service"
	"algotrack/pkg/utils/logger"

	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8080"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
}

// AuthConfig holds token issuing settings.
type AuthConfig struct {
	JWTSecret       string        `yaml:"jwtSecret"`
	JWTIssuer       string        `yaml:"jwtIssuer"`
	AccessTokenTTL  time.Duration `yaml:"accessTokenTTL"`
	RefreshTokenTTL time.Duration `yaml:"refreshTokenTTL"`
	LoginFailTTL    time.Duration `yaml:"loginFailTTL"`
	LoginFailLimit  int           `yaml:"loginFailLimit"`
}

// EventsConfig holds record-event stream settings. Leaving brokers empty
// in the kafka section disables eventing entirely; the tracker then runs
// without background aggregate recomputation.
type EventsConfig struct {
	Topic         string `yaml:"topic"`
	ConsumerGroup string `yaml:"consumerGroup"`
}

// AvatarConfig holds avatar upload settings.
type AvatarConfig struct {
	Bucket     string        `yaml:"bucket"`
	MaxBytes   int64         `yaml:"maxBytes"`
	PresignTTL time.Duration `yaml:"presignTTL"`
}

// LLMConfig holds suggestion provider settings. Any OpenAI-compatible
// endpoint works.
type LLMConfig struct {
	BaseURL string `yaml:"baseURL"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"apiKey"`
}

// AppConfig holds the tracker-service configuration.
type AppConfig struct {
	Server ServerConfig  `yaml:"server"`
	Logger logger.Config `yaml:"logger"`

	Database db.MySQLConfig      `yaml:"database"`
	Redis    cache.RedisConfig   `yaml:"redis"`
	Kafka    mq.KafkaConfig      `yaml:"kafka"`
	MinIO    storage.MinIOConfig `yaml:"minio"`

	Auth   AuthConfig   `yaml:"auth"`
	Events EventsConfig `yaml:"events"`
	Avatar AvatarConfig `yaml:"avatar"`
	LLM    LLMConfig    `yaml:"llm"`
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config file failed: %w", err)
	}
	return nil
}

func loadAppConfig(path string) (*AppConfig, error) {
	var cfg AppConfig
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("database dsn is required")
	}
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth jwt secret is required")
	}
	applyRedisDefaults(&cfg.Redis)
	applyKafkaDefaults(&cfg.Kafka)

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}

	if cfg.Events.Topic == "" {
		cfg.Events.Topic = problemservice.DefaultEventTopic
	}

	return &cfg, nil
}

func applyRedisDefaults(cfg *cache.RedisConfig) {
	if cfg == nil {
		return
	}
	defaults := cache.DefaultRedisConfig()
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaults.MaxRetries
	}
	if cfg.MinRetryBackoff == 0 {
		cfg.MinRetryBackoff = defaults.MinRetryBackoff
	}
	if cfg.MaxRetryBackoff == 0 {
		cfg.MaxRetryBackoff = defaults.MaxRetryBackoff
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = defaults.DialTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaults.ReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.PoolSize == 0 {
		cfg.PoolSize = defaults.PoolSize
	}
	if cfg.MinIdleConns == 0 {
		cfg.MinIdleConns = defaults.MinIdleConns
	}
	if cfg.PoolTimeout == 0 {
		cfg.PoolTimeout = defaults.PoolTimeout
	}
	if cfg.ConnMaxIdleTime == 0 {
		cfg.ConnMaxIdleTime = defaults.ConnMaxIdleTime
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = defaults.ConnMaxLifetime
	}
}

func applyKafkaDefaults(cfg *mq.KafkaConfig) {
	if cfg == nil || len(cfg.Brokers) == 0 {
		return
	}
	defaults := mq.DefaultKafkaConfig()
	if cfg.ClientID == "" {
		cfg.ClientID = defaults.ClientID
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = defaults.BatchSize
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = defaults.BatchTimeout
	}
	if cfg.RequiredAcks == 0 {
		cfg.RequiredAcks = defaults.RequiredAcks
	}
	if cfg.MinBytes == 0 {
		cfg.MinBytes = defaults.MinBytes
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = defaults.MaxBytes
	}
	if cfg.MaxWait == 0 {
		cfg.MaxWait = defaults.MaxWait
	}
}
