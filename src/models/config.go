package models

// MConfig Structure
type MConfig struct {
	Name       string            `yaml:"name"`
	Host       string            `yaml:"host"`
	Port       int               `yaml:"port"`
	LogLevel   string            `yaml:"log_level"`
	GrpcHost   string            `yaml:"grpc_host"`
	GrpcPort   int               `yaml:"grpc_port"`
	Storage    MStorageConfig    `yaml:"storage"`
	Redis      MRedisConfig      `yaml:"redis"`
	Engine     MEngineConfig     `yaml:"engine"`
	Session    MSessionConfig    `yaml:"session"`
	Network    MNetworkConfig    `yaml:"network"`
	DataSource MDataSourceConfig `yaml:"data_source"`
	WindowsAgg []string          `yaml:"windows_aggregation"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"` // sqlite | postgres | pgx | none
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	RetentionDays      int    `yaml:"retention_days"`
	CleanupCron        string `yaml:"cleanup_cron"`
}

type MRedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

type MEngineConfig struct {
	ReplayQueueCapacity int `yaml:"replay_queue_capacity"`
	DispatchBuffer      int `yaml:"dispatch_buffer"`
	Shards              int `yaml:"shards"`
}

type MSessionConfig struct {
	Enabled bool   `yaml:"enabled"`
	MIC     string `yaml:"mic"`
}

type MNetworkConfig struct {
	RequestTimeout    int     `yaml:"timeout"`
	MaxRetries        int     `yaml:"retries"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	UserAgent         string  `yaml:"user_agent"`
}

type MDataSourceConfig struct {
	UpdateIntervalSeconds int             `yaml:"update_interval_seconds"`
	Sources               []MSourceConfig `yaml:"sources"`
}

type MSourceConfig struct {
	Name    string   `yaml:"name"`
	Type    string   `yaml:"type"` // csv | yahoo
	Symbols []string `yaml:"symbols"`
	Path    string   `yaml:"path"` // csv only
}

// MEnvOverrides are secrets and switches read from the environment (and .env).
type MEnvOverrides struct {
	DBConnectionString string `envconfig:"DB_CONNECTION_STRING"`
	RedisPassword      string `envconfig:"REDIS_PASSWORD"`
	LogLevel           string `envconfig:"LOG_LEVEL"`
}
