package database_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/mautops/claims-gin/internal/config"
	"github.com/mautops/claims-gin/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConnect_SQLiteMemory 测试连接内存库并迁移
func TestConnect_SQLiteMemory(t *testing.T) {
	db, err := database.Connect(config.DatabaseConfig{Driver: "sqlite", Path: database.MemoryDSN})
	require.NoError(t, err)
	defer database.Close(db)

	require.NoError(t, database.Migrate(db))
	// 重复迁移是幂等的
	require.NoError(t, database.Migrate(db))

	for _, table := range []string{"claim_state_history", "audit_logs", "notification_events"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	assert.True(t, db.Migrator().HasIndex("claim_state_history", "idx_history_claim_created"))
	assert.True(t, database.CheckHealth(db))
}

// TestConnect_SQLiteFile 测试文件库
func TestConnect_SQLiteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "claims.db")
	db, err := database.ConnectWithRetry(config.DatabaseConfig{Driver: "sqlite", Path: path}, 2, time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.Close(db))

	assert.False(t, database.CheckHealth(db))
	assert.False(t, database.CheckHealth(nil))
}

// TestConnect_UnsupportedDriver 测试不支持的驱动
func TestConnect_UnsupportedDriver(t *testing.T) {
	_, err := database.Connect(config.DatabaseConfig{Driver: "mysql"})
	assert.Error(t, err)

	_, err = database.ConnectWithRetry(config.DatabaseConfig{Driver: "mysql"}, 2, time.Millisecond)
	assert.Error(t, err)
}

// TestGetPoolConfig 测试连接池默认值
func TestGetPoolConfig(t *testing.T) {
	pool := database.GetPoolConfig(config.DatabaseConfig{})
	assert.Equal(t, 10, pool.MaxIdleConns)
	assert.Equal(t, 100, pool.MaxOpenConns)
	assert.Equal(t, 3600, pool.ConnMaxLifetime)
	assert.Equal(t, 600, pool.ConnMaxIdleTime)

	pool = database.GetPoolConfig(config.DatabaseConfig{MaxIdleConns: 5, MaxOpenConns: 50})
	assert.Equal(t, 5, pool.MaxIdleConns)
	assert.Equal(t, 50, pool.MaxOpenConns)
}

// TestBuildDSN 测试 PostgreSQL DSN
func TestBuildDSN(t *testing.T) {
	dsn := database.BuildDSN(config.DatabaseConfig{
		Host: "db", Port: 5432, User: "u", Password: "p", DBName: "claims", SSLMode: "disable",
	})
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=claims sslmode=disable", dsn)
}
