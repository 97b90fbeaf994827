package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds all traceviz server configuration.
// Priority: env vars > settings.json > defaults.
type Config struct {
	ListenAddr    string `json:"listen_addr"`
	DBPath        string `json:"db_path"`
	LogLevel      string `json:"log_level"`
	RetentionCron string `json:"retention_cron"`
	RetentionDays int    `json:"retention_days"`
}

func defaultConfig() Config {
	return Config{
		ListenAddr:    ":4200",
		DBPath:        filepath.Join(tracevizDir(), "traceviz.db"),
		LogLevel:      "info",
		RetentionCron: "0 3 * * *",
		RetentionDays: 30,
	}
}

func tracevizDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".traceviz"
	}
	return filepath.Join(home, ".traceviz")
}

func settingsPath() string {
	return filepath.Join(tracevizDir(), "settings.json")
}

func loadConfig() Config {
	cfg := defaultConfig()

	// Layer 2: settings.json (ignore if missing).
	if data, err := os.ReadFile(settingsPath()); err == nil {
		_ = json.Unmarshal(data, &cfg)
	}

	// Layer 3: env vars override.
	if v := os.Getenv("TRACEVIZ_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("TRACEVIZ_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("TRACEVIZ_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("TRACEVIZ_RETENTION_CRON"); v != "" {
		cfg.RetentionCron = v
	}
	if v := os.Getenv("TRACEVIZ_RETENTION_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RetentionDays = n
		}
	}

	return cfg
}
