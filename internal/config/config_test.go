package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mautops/claims-gin/internal/config"
	"github.com/mautops/claims-gin/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// TestConfig_Defaults 测试默认配置
func TestConfig_Defaults(t *testing.T) {
	cfg := config.Default()
	require.NotNil(t, cfg)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "claims.db", cfg.Database.Path)
	assert.Equal(t, 1000.0, cfg.Workflow.AutoApproveMaxAmount)
	assert.Equal(t, 10.0, cfg.Workflow.AutoApproveMaxHours)
	assert.Equal(t, 5000.0, cfg.Workflow.HighAmountThreshold)
	assert.Equal(t, 40.0, cfg.Workflow.OvertimeHours)
	assert.Equal(t, 30.0, cfg.Workflow.MinHourlyRate)
	assert.Equal(t, 200.0, cfg.Workflow.MaxHourlyRate)
	assert.True(t, cfg.Workflow.EnforceTerminalStatus)
	assert.Equal(t, int64(10*1024*1024), cfg.Upload.MaxSize)
	assert.Equal(t, 2, cfg.Notification.Workers)
	assert.False(t, cfg.Tracing.Enabled)
	assert.False(t, cfg.Claims.SeedDemo)
	assert.False(t, config.IsProduction(cfg))
}

// TestConfig_LoadFile 测试从文件加载
func TestConfig_LoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
database:
  driver: sqlite
  path: ":memory:"
workflow:
  auto_approve_max_amount: 500
  enforce_terminal_status: false
claims:
  seed_demo: true
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, ":memory:", cfg.Database.Path)
	assert.Equal(t, 500.0, cfg.Workflow.AutoApproveMaxAmount)
	assert.Equal(t, 10.0, cfg.Workflow.AutoApproveMaxHours)
	assert.False(t, cfg.Workflow.EnforceTerminalStatus)
	assert.True(t, cfg.Claims.SeedDemo)
}

// TestConfig_EnvironmentVariables 测试环境变量覆盖
func TestConfig_EnvironmentVariables(t *testing.T) {
	t.Setenv("APP_SERVER_PORT", "9090")
	t.Setenv("APP_DATABASE_DRIVER", "postgres")
	t.Setenv("APP_DATABASE_HOST", "db.example.com")
	t.Setenv("APP_KEYCLOAK_ISSUER", "https://keycloak.example.com/realms/test")
	t.Setenv("APP_WORKFLOW_HIGH_AMOUNT_THRESHOLD", "7500")
	t.Setenv("APP_NOTIFICATION_NATS_URL", "nats://localhost:4222")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "db.example.com", cfg.Database.Host)
	assert.Equal(t, "https://keycloak.example.com/realms/test", cfg.Keycloak.Issuer)
	assert.Equal(t, 7500.0, cfg.Workflow.HighAmountThreshold)
	assert.Equal(t, "nats://localhost:4222", cfg.Notification.NATSURL)
}

// TestConfig_Production 测试生产环境默认值
func TestConfig_Production(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.True(t, config.IsProduction(cfg))
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 200, cfg.Database.MaxOpenConns)
}

// TestConfig_Validate 测试非法配置
func TestConfig_Validate(t *testing.T) {
	_, err := config.Load(writeConfig(t, "database:\n  driver: mysql\n"))
	assert.Error(t, err)

	_, err = config.Load(writeConfig(t, "server:\n  port: 70000\n"))
	assert.Error(t, err)

	_, err = config.Load(writeConfig(t, "workflow:\n  min_hourly_rate: 300\n"))
	assert.Error(t, err)

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

// TestConfigWatcher_ReloadsLogLevel 测试配置变更后更新日志级别
func TestConfigWatcher_ReloadsLogLevel(t *testing.T) {
	path := writeConfig(t, "log:\n  level: info\n")
	cfg, err := config.Load(path)
	require.NoError(t, err)

	logger := logging.Discard()
	logger.SetLevel(logrus.InfoLevel)

	watcher := config.NewConfigWatcher(cfg, path, logger)
	watcher.OnConfigChange(config.LogLevelReloader(logger))
	require.NoError(t, watcher.Start())
	defer watcher.Stop()

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: error\n"), 0o644))

	assert.Eventually(t, func() bool {
		return logger.GetLevel() == logrus.ErrorLevel
	}, 3*time.Second, 50*time.Millisecond)
	assert.Eventually(t, func() bool {
		return watcher.GetConfig().Log.Level == "error"
	}, 3*time.Second, 50*time.Millisecond)
}

// TestConfigWatcher_IgnoresInvalidChange 测试无效配置不生效
func TestConfigWatcher_IgnoresInvalidChange(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 8081\n")
	cfg, err := config.Load(path)
	require.NoError(t, err)

	watcher := config.NewConfigWatcher(cfg, path, logging.Discard())
	called := make(chan struct{}, 1)
	watcher.OnConfigChange(func(*config.Config) { called <- struct{}{} })
	require.NoError(t, watcher.Start())
	defer watcher.Stop()

	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 0\n"), 0o644))

	select {
	case <-called:
		t.Fatal("callback should not run for invalid config")
	case <-time.After(500 * time.Millisecond):
	}
	assert.Equal(t, 8081, watcher.GetConfig().Server.Port)
}
