package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

const testConfigYAML = `
is_production: false
log_level: warn
log_folder: ./tmp-logs
ops_endpoints_enable: true
server:
  host: 127.0.0.1
  port: "8080"
  allowed_origins:
    - http://a.example
  request_timeout: 5s
storage:
  engine: BoltDB
boltdb:
  filepath: ./tmp/books.db
  bucket_name: books
  timeout: 1s
catalog:
  request_timeout: 3s
`

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigFile(t *testing.T) {
	config, err := LoadConfigFile(writeTestFile(t, "config.yml", testConfigYAML))
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, config.LogLevel)
	assert.Equal(t, "127.0.0.1", config.Server.Host)
	assert.Equal(t, []string{"http://a.example"}, config.Server.AllowedOrigins)
	assert.Equal(t, 5*time.Second, config.Server.RequestTimeout)
	assert.Equal(t, "BoltDB", config.Storage.Engine)
	assert.Equal(t, "books", config.BoltDB.BucketName)

	_, err = LoadConfigFile(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestLoadAndInitConfigs(t *testing.T) {
	configFile := writeTestFile(t, "config.yml", testConfigYAML)

	t.Run("should pass: yaml then env file then environment", func(t *testing.T) {
		envFile := writeTestFile(t, "config.env", "BCAT_SERVER_PORT=9090\nBCAT_CATALOG_API_BASE_URL=http://books.internal:9090/\n")
		t.Cleanup(func() {
			os.Unsetenv("BCAT_SERVER_PORT")
			os.Unsetenv("BCAT_CATALOG_API_BASE_URL")
		})
		t.Setenv("BCAT_LOG_LEVEL", "debug")
		config, err := LoadAndInitConfigs(configFile, envFile, "abc123", "v1.0.0", "now")
		require.NoError(t, err)
		assert.Equal(t, "9090", config.Server.Port)
		assert.Equal(t, zapcore.DebugLevel, config.LogLevel)
		assert.Equal(t, BoltDBEngine, config.Storage.Engine)
		assert.Equal(t, "http://books.internal:9090/", config.Catalog.APIBaseURL)
		assert.Equal(t, 3*time.Second, config.Catalog.RequestTimeout)
		assert.Equal(t, "abc123", config.GitCommit)
		assert.Equal(t, "v1.0.0", config.GitTag)
		assert.Equal(t, "now", config.BuildTime)
		assert.Equal(t, 10, config.LogMaxSize)
	})

	t.Run("should pass: missing env file is ignored", func(t *testing.T) {
		config, err := LoadAndInitConfigs(configFile, filepath.Join(t.TempDir(), "none.env"), "", "", "")
		require.NoError(t, err)
		assert.Equal(t, "http://127.0.0.1:8080", config.Catalog.APIBaseURL)
	})

	t.Run("should fail: missing config file", func(t *testing.T) {
		_, err := LoadAndInitConfigs(filepath.Join(t.TempDir(), "none.yml"), "", "", "", "")
		assert.Error(t, err)
	})
}

func TestInitConfig(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:  ServerConfig{Host: "localhost", Port: "8080"},
			Storage: StorageConfig{Engine: RedisEngine},
			Redis:   RedisConfig{Host: "localhost", Port: "6379"},
		}
	}

	testCases := []struct {
		name   string
		modify func(c *Config)
		fails  bool
	}{
		{"valid redis config", func(c *Config) {}, false},
		{"default engine is redis", func(c *Config) { c.Storage.Engine = "" }, false},
		{"missing server port", func(c *Config) { c.Server.Port = "" }, true},
		{"unknown engine", func(c *Config) { c.Storage.Engine = "mongo" }, true},
		{"redis engine without address", func(c *Config) { c.Redis.Host = "" }, true},
		{"mirror without boltdb", func(c *Config) { c.Storage.MirrorEnable = true }, true},
		{"postgres without dsn", func(c *Config) { c.Storage.Engine = PostgresEngine }, true},
		{"postgres with dsn", func(c *Config) {
			c.Storage.Engine = PostgresEngine
			c.Postgres.DSN = "postgres://u:p@localhost/books"
		}, false},
		{"invalid catalog base url", func(c *Config) { c.Catalog.APIBaseURL = "books-api" }, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			config := valid()
			tc.modify(config)
			err := InitConfig(config, "", "", "")
			if tc.fails {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "./logs", config.LogFolder)
			assert.Equal(t, 10*time.Second, config.Catalog.RequestTimeout)
		})
	}
}
