package config

import (
	"fmt"
	"os"
	"time"

	"market-structure/src/models"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces environment overrides, e.g. MS_DB_CONNECTION_STRING.
const EnvPrefix = "MS"

// Defaults applied to zero values after parsing.
const (
	DefaultReplayQueueCapacity = 5000
	DefaultDispatchBuffer      = 1024
	DefaultShards              = 32
	DefaultRetentionDays       = 30
	DefaultCleanupCron         = "0 0 3 * * *"
	DefaultRedisChannel        = "market-structure"
	DefaultMIC                 = "XNYS"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new Config from a YAML file, then applies .env and
// environment overrides
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Unmarshal data into the models struct
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}

	// 3. Secrets from the environment win over the file
	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}

	config.ApplyDefaults()

	// 4. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// ApplyEnv loads an optional .env file and overlays MS_* variables
func (c *Config) ApplyEnv() error {
	// missing .env is fine
	_ = godotenv.Load()

	var env models.MEnvOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("failed to read environment overrides: %w", err)
	}

	if env.DBConnectionString != "" {
		c.Storage.DBConnectionString = env.DBConnectionString
	}
	if env.RedisPassword != "" {
		c.Redis.Password = env.RedisPassword
	}
	if env.LogLevel != "" {
		c.LogLevel = env.LogLevel
	}
	return nil
}

// -----------------------------------------------------------------------------

// ApplyDefaults fills optional settings left empty
func (c *Config) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Engine.ReplayQueueCapacity == 0 {
		c.Engine.ReplayQueueCapacity = DefaultReplayQueueCapacity
	}
	if c.Engine.DispatchBuffer == 0 {
		c.Engine.DispatchBuffer = DefaultDispatchBuffer
	}
	if c.Engine.Shards == 0 {
		c.Engine.Shards = DefaultShards
	}
	if c.Storage.RetentionDays == 0 {
		c.Storage.RetentionDays = DefaultRetentionDays
	}
	if c.Storage.CleanupCron == "" {
		c.Storage.CleanupCron = DefaultCleanupCron
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = DefaultRedisChannel
	}
	if c.Session.MIC == "" {
		c.Session.MIC = DefaultMIC
	}
	if c.Network.RequestTimeout == 0 {
		c.Network.RequestTimeout = 10
	}
	if c.Network.RequestsPerSecond == 0 {
		c.Network.RequestsPerSecond = 2
	}
	if c.DataSource.UpdateIntervalSeconds == 0 {
		c.DataSource.UpdateIntervalSeconds = 60
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Server
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}
	if c.GrpcPort != 0 && (c.GrpcPort <= 1024 || c.GrpcPort > 65535) {
		return fmt.Errorf("invalid grpc port number: %d", c.GrpcPort)
	}

	// Storage
	switch c.Storage.DBType {
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	case "postgres", "pgx":
		if c.Storage.DBConnectionString == "" {
			return fmt.Errorf("database connection string cannot be empty for %s", c.Storage.DBType)
		}
	case "none":
	case "":
		return fmt.Errorf("database type cannot be empty")
	default:
		return fmt.Errorf("unsupported database type '%s'", c.Storage.DBType)
	}
	if c.Storage.RetentionDays < 0 {
		return fmt.Errorf("retention days cannot be negative")
	}

	// Redis
	if c.Redis.Enabled && c.Redis.Address == "" {
		return fmt.Errorf("redis address cannot be empty when redis is enabled")
	}

	// Engine
	if c.Engine.ReplayQueueCapacity < 0 || c.Engine.DispatchBuffer < 0 || c.Engine.Shards < 0 {
		return fmt.Errorf("engine sizes cannot be negative")
	}

	// Network
	if c.Network.RequestTimeout < 0 {
		return fmt.Errorf("request timeout cannot be negative")
	}
	if c.Network.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}

	// DataSource
	if c.DataSource.UpdateIntervalSeconds < 0 {
		return fmt.Errorf("update interval cannot be negative")
	}
	if len(c.DataSource.Sources) == 0 {
		return fmt.Errorf("at least one data source must be configured")
	}
	for i, src := range c.DataSource.Sources {
		if src.Name == "" {
			return fmt.Errorf("source %d must have a name", i)
		}
		if len(src.Symbols) == 0 {
			return fmt.Errorf("source '%s' must have at least one symbol", src.Name)
		}
		switch src.Type {
		case "csv":
			if src.Path == "" {
				return fmt.Errorf("csv source '%s' needs a path", src.Name)
			}
			if len(src.Symbols) != 1 {
				return fmt.Errorf("csv source '%s' replays exactly one symbol", src.Name)
			}
		case "yahoo", "":
		default:
			return fmt.Errorf("source '%s' has unsupported type '%s'", src.Name, src.Type)
		}
	}

	// Windows aggregation
	for i, window := range c.WindowsAgg {
		if window == "" {
			return fmt.Errorf("window aggregation %d cannot be empty", i)
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

// RequestTimeout returns the network timeout as a duration
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Network.RequestTimeout) * time.Second
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
