package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	assert.Equal(t, ":4200", cfg.ListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "0 3 * * *", cfg.RetentionCron)
	assert.Equal(t, 30, cfg.RetentionDays)
	assert.Contains(t, cfg.DBPath, "traceviz.db")
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("TRACEVIZ_LISTEN_ADDR", ":9999")
	t.Setenv("TRACEVIZ_DB_PATH", "/tmp/test.db")
	t.Setenv("TRACEVIZ_LOG_LEVEL", "debug")
	t.Setenv("TRACEVIZ_RETENTION_CRON", "30 2 * * *")
	t.Setenv("TRACEVIZ_RETENTION_DAYS", "7")

	cfg := loadConfig()

	assert.Equal(t, ":9999", cfg.ListenAddr)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "30 2 * * *", cfg.RetentionCron)
	assert.Equal(t, 7, cfg.RetentionDays)
}

func TestLoadConfigIgnoresBadRetentionDays(t *testing.T) {
	t.Setenv("TRACEVIZ_RETENTION_DAYS", "not-a-number")

	cfg := loadConfig()

	assert.Equal(t, 30, cfg.RetentionDays)
}
