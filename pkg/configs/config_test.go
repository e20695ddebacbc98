package configs_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/docvault/pkg/configs"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	dir := t.TempDir()

	_, err := configs.Load(dir)
	require.NoError(t, err)

	cfg := configs.GetConfig()
	assert.Equal(t, configs.DefaultPort, cfg.Server.Port)
	assert.Equal(t, "/api", cfg.Server.BasePath)
	assert.Equal(t, configs.SQLite, cfg.DB.Type)
	assert.Equal(t, int64(50<<20), cfg.Storage.MaxUploadBytes)
	assert.Equal(t, filepath.Join("uploads", ".file_records"), cfg.Storage.RegistryPath())
	assert.Equal(t, "Anonymous", cfg.Upload.DefaultCreatedBy)
	assert.Equal(t, configs.MQTypeGoChannel, cfg.MQ.Type)
	assert.Equal(t, "memory", cfg.KV.Type)
	assert.Equal(t, time.Hour, cfg.Storage.OrphanGrace)
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`
server:
  port: 9090
  debug: true
storage:
  upload_dir: /var/lib/docvault
  max_upload_bytes: 1024
upload:
  default_created_by: ""
db:
  type: postgres
  host: db.internal
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0o600))

	_, err := configs.Load(dir)
	require.NoError(t, err)

	cfg := configs.GetConfig()
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Server.Debug)
	assert.Equal(t, int64(1024), cfg.Storage.MaxUploadBytes)
	assert.Equal(t, "/var/lib/docvault/.file_records", cfg.Storage.RegistryPath())
	assert.Empty(t, cfg.Upload.DefaultCreatedBy)
	assert.Equal(t, "PostgreSQL", cfg.DB.GetDBType())
	assert.Contains(t, cfg.DB.GetDSN(), "host=db.internal")
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DOCVAULT_SERVER_PORT", "7070")
	t.Setenv("DOCVAULT_STORAGE_UPLOAD_DIR", "/tmp/dv")

	_, err := configs.Load(dir)
	require.NoError(t, err)

	cfg := configs.GetConfig()
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "/tmp/dv", cfg.Storage.UploadDir)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("storage:\n  backend: ftp\n"), 0o600))

	_, err := configs.Load(dir)
	require.Error(t, err)
}

func TestSQLiteDSN(t *testing.T) {
	c := configs.DBConfig{Type: configs.SQLite, Database: "docvault"}
	assert.Equal(t, "docvault.db", c.GetDSN())

	c.Database = "/data/items.db"
	assert.Equal(t, "/data/items.db", c.GetDSN())

	c.DSN = "file::memory:"
	assert.Equal(t, "file::memory:", c.GetDSN())
}

func TestServerAndProtectionDefaults(t *testing.T) {
	cfg := configs.Defaults()

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, configs.DefaultReadHeaderTimeout, cfg.Server.ReadHeaderTimeout)
	assert.Equal(t, configs.DefaultShutdownTimeout, cfg.Server.ShutdownTimeout)
	assert.Equal(t, configs.DefaultRateLimitIdle, cfg.RateLimit.Idle)
	assert.Equal(t, []string{"/health", "/metrics"}, cfg.RateLimit.ExemptPaths)
	assert.Equal(t, configs.DefaultCBOpenTimeout, cfg.CircuitBreaker.OpenTimeout)
	assert.Equal(t, configs.DefaultTraceBatchTimeout, cfg.Tracing.BatchTimeout)
	assert.Equal(t, "dv.item.", cfg.Cache.Prefix)
	assert.NoError(t, cfg.Validate())
}

func TestDurationsFromYAML(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`
server:
  read_header_timeout: 3s
  shutdown_timeout: 1m
circuit_breaker:
  open_timeout: 45s
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0o600))

	_, err := configs.Load(dir)
	require.NoError(t, err)

	cfg := configs.GetConfig()
	assert.Equal(t, 3*time.Second, cfg.Server.ReadHeaderTimeout)
	assert.Equal(t, time.Minute, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 45*time.Second, cfg.CircuitBreaker.OpenTimeout)
}

func TestS3HostAndTLS(t *testing.T) {
	cases := []struct {
		endpoint string
		useSSL   bool
		host     string
		tls      bool
	}{
		{"localhost:9000", false, "localhost:9000", false},
		{"localhost:9000", true, "localhost:9000", true},
		{"https://s3.example.com", false, "s3.example.com", true},
		{"http://minio:9000", false, "minio:9000", false},
	}

	for _, tc := range cases {
		c := configs.S3Config{Endpoint: tc.endpoint, UseSSL: tc.useSSL}
		host, tls := c.HostAndTLS()
		assert.Equal(t, tc.host, host, tc.endpoint)
		assert.Equal(t, tc.tls, tls, tc.endpoint)
	}
}
