package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of all environment variables read by the app.
const EnvPrefix = "BCAT"

// Supported storage engines.
const (
	RedisEngine    = "redis"
	BoltDBEngine   = "boltdb"
	PostgresEngine = "postgres"
)

// Config defines the structure of the configuration file.
type Config struct {
	GitCommit               string         `yaml:"git_commit" envconfig:"BCAT_GIT_COMMIT"`
	GitTag                  string         `yaml:"git_tag" envconfig:"BCAT_GIT_TAG"`
	BuildTime               string         `yaml:"build_time" envconfig:"BCAT_BUILD_TIME"`
	IsProduction            bool           `yaml:"is_production" envconfig:"BCAT_IS_PRODUCTION"`
	LogLevel                zapcore.Level  `yaml:"log_level" envconfig:"BCAT_LOG_LEVEL"`
	LogFolder               string         `yaml:"log_folder" envconfig:"BCAT_LOG_FOLDER"`
	LogMaxSize              int            `yaml:"log_max_size" envconfig:"BCAT_LOG_MAX_SIZE"` // in megabytes
	OpsEndpointsEnable      bool           `yaml:"ops_endpoints_enable" envconfig:"BCAT_OPS_ENDPOINTS_ENABLE"`
	ProfilerEndpointsEnable bool           `yaml:"profiler_endpoints_enable" envconfig:"BCAT_PROFILER_ENDPOINTS_ENABLE"`
	Server                  ServerConfig   `yaml:"server"`
	Storage                 StorageConfig  `yaml:"storage"`
	Redis                   RedisConfig    `yaml:"redis"`
	BoltDB                  BoltDBConfig   `yaml:"boltdb"`
	Postgres                PostgresConfig `yaml:"postgres"`
	Catalog                 CatalogConfig  `yaml:"catalog"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"BCAT_SERVER_HOST"`
	Port            string        `yaml:"port" envconfig:"BCAT_SERVER_PORT"`
	AllowedOrigins  []string      `yaml:"allowed_origins" envconfig:"BCAT_SERVER_ALLOWED_ORIGINS"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"BCAT_SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"BCAT_SERVER_WRITE_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"BCAT_SERVER_REQUEST_TIMEOUT"` // Time to wait for a request to finish
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"BCAT_SERVER_SHUTDOWN_TIMEOUT"`
}

// StorageConfig selects the primary books storage. When MirrorEnable is set
// every write is also pushed to redis queues and replayed into boltdb.
type StorageConfig struct {
	Engine       string `yaml:"engine" envconfig:"BCAT_STORAGE_ENGINE"`
	MirrorEnable bool   `yaml:"mirror_enable" envconfig:"BCAT_STORAGE_MIRROR_ENABLE"`
}

type RedisConfig struct {
	Host          string        `yaml:"host" envconfig:"BCAT_REDIS_HOST"`
	Port          string        `yaml:"port" envconfig:"BCAT_REDIS_PORT"`
	DialTimeout   time.Duration `yaml:"dial_timeout" envconfig:"BCAT_REDIS_DIAL_TIMEOUT"`
	ReadTimeout   time.Duration `yaml:"read_timeout" envconfig:"BCAT_REDIS_READ_TIMEOUT"`
	WriteTimeout  time.Duration `yaml:"write_timeout" envconfig:"BCAT_REDIS_WRITE_TIMEOUT"`
	PoolSize      int           `yaml:"pool_size" envconfig:"BCAT_REDIS_POOL_SIZE"`
	PoolTimeout   time.Duration `yaml:"pool_timeout" envconfig:"BCAT_REDIS_POOL_TIMEOUT"`
	Username      string        `yaml:"username" envconfig:"BCAT_REDIS_USERNAME"`
	Password      string        `yaml:"password" envconfig:"BCAT_REDIS_PASSWORD" json:"-"`
	DatabaseIndex int           `yaml:"db_index" envconfig:"BCAT_REDIS_DATABASE_INDEX"`
}

type BoltDBConfig struct {
	FilePath   string        `yaml:"filepath" envconfig:"BCAT_BOLTDB_FILE_PATH"`
	Timeout    time.Duration `yaml:"timeout" envconfig:"BCAT_BOLTDB_TIMEOUT"`
	BucketName string        `yaml:"bucket_name" envconfig:"BCAT_BOLTDB_BUCKET_NAME"`
}

type PostgresConfig struct {
	DSN            string        `yaml:"dsn" envconfig:"BCAT_POSTGRES_DSN" json:"-"`
	MaxConns       int32         `yaml:"max_conns" envconfig:"BCAT_POSTGRES_MAX_CONNS"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" envconfig:"BCAT_POSTGRES_CONNECT_TIMEOUT"`
}

// CatalogConfig configures the catalog view and the client it uses
// to reach the books collection resource.
type CatalogConfig struct {
	APIBaseURL     string        `yaml:"api_base_url" envconfig:"BCAT_CATALOG_API_BASE_URL"`
	RequestTimeout time.Duration `yaml:"request_timeout" envconfig:"BCAT_CATALOG_REQUEST_TIMEOUT"`
}

// LoadConfigFile provides an instance of config structure for the all application.
func LoadConfigFile(configFile string) (*Config, error) {
	file, err := os.Open(configFile)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	cfg := &Config{}
	if err = yaml.NewDecoder(file).Decode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigEnvs reads the environment variables and overrides the App config.
func LoadConfigEnvs(prefix string, config *Config) error {
	return envconfig.Process(prefix, config)
}

// InitConfig setup defaults values for non provided parameters
// and configures build tags values to be used if provided.
func InitConfig(config *Config, gitCommit, gitTag, buildTime string) error {
	if len(gitCommit) != 0 {
		config.GitCommit = gitCommit
	}

	if len(gitTag) != 0 {
		config.GitTag = gitTag
	}

	if len(buildTime) != 0 {
		config.BuildTime = buildTime
	}

	if len(config.Server.Host) == 0 || len(config.Server.Port) == 0 {
		return errors.New("make sure to set valid server address and port in configuration file")
	}

	if config.LogMaxSize <= 0 {
		config.LogMaxSize = 10
	}

	if len(config.LogFolder) == 0 {
		config.LogFolder = "./logs"
	}

	if len(config.Storage.Engine) == 0 {
		config.Storage.Engine = RedisEngine
	}
	config.Storage.Engine = strings.ToLower(config.Storage.Engine)

	switch config.Storage.Engine {
	case RedisEngine, BoltDBEngine, PostgresEngine:
	default:
		return fmt.Errorf("unsupported storage engine %q", config.Storage.Engine)
	}

	if config.Storage.Engine == RedisEngine || config.Storage.MirrorEnable {
		if len(config.Redis.Host) == 0 || len(config.Redis.Port) == 0 {
			return errors.New("make sure to set valid redis address and port in configuration file")
		}
	}

	if config.Storage.Engine == BoltDBEngine || config.Storage.MirrorEnable {
		if len(config.BoltDB.FilePath) == 0 || len(config.BoltDB.BucketName) == 0 {
			return errors.New("make sure to set valid boltdb file path and bucket name in configuration file")
		}
	}

	if config.Storage.Engine == PostgresEngine && len(config.Postgres.DSN) == 0 {
		return errors.New("make sure to set a valid postgres dsn in configuration file")
	}

	if config.Catalog.RequestTimeout <= 0 {
		config.Catalog.RequestTimeout = 10 * time.Second
	}

	// The catalog view talks to this same server unless told otherwise.
	if len(config.Catalog.APIBaseURL) == 0 {
		config.Catalog.APIBaseURL = fmt.Sprintf("http://%s:%s", config.Server.Host, config.Server.Port)
	}
	if u, err := url.Parse(config.Catalog.APIBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid catalog api base url %q", config.Catalog.APIBaseURL)
	}

	return nil
}

// LoadAndInitConfigs loads in order the configs from various predefined sources
// then build the App configuration data. The environment file is optional.
func LoadAndInitConfigs(configFile, envFile, gitCommit, gitTag, buildTime string) (*Config, error) {
	config, err := LoadConfigFile(configFile)
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from file: %w", err)
	}

	if err = godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return config, fmt.Errorf("failed to set environment configurations: %w", err)
	}

	if err = LoadConfigEnvs(EnvPrefix, config); err != nil {
		return config, fmt.Errorf("failed to load configurations from environment: %w", err)
	}

	if err = InitConfig(config, gitCommit, gitTag, buildTime); err != nil {
		return config, fmt.Errorf("failed to initialize configurations: %w", err)
	}
	return config, nil
}
