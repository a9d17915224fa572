package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath    string
	ImportDir string
	RawDir    string
	OutputDir string

	LogLevel  string
	LogFormat string

	Timezone         string
	ReportStartMonth string

	WatchIntervalSec  int
	WatchSettleMs     int
	WatchProcessBatch int
	WatchAutoExport   bool
	WatchWorkers      int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "app.db")),
		ImportDir: getEnv("IMPORT_DIR", filepath.Join(cwd, "data", "inbox")),
		RawDir:    getEnv("RAW_DIR", filepath.Join(cwd, "data", "raw")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		Timezone:         getEnv("TIMEZONE", "America/Sao_Paulo"),
		ReportStartMonth: getEnv("REPORT_START_MONTH", "2025-06"),

		WatchIntervalSec:  getEnvInt("WATCH_INTERVAL_SEC", 30),
		WatchSettleMs:     getEnvInt("WATCH_SETTLE_MS", 500),
		WatchProcessBatch: getEnvInt("WATCH_PROCESS_BATCH", 20),
		WatchAutoExport:   getEnvBool("WATCH_AUTO_EXPORT", true),
		WatchWorkers:      getEnvInt("WATCH_WORKERS", 4),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

// Location resolves TIMEZONE, falling back to UTC for unknown names.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(strings.TrimSpace(c.Timezone))
	if err != nil || strings.TrimSpace(c.Timezone) == "" {
		return time.UTC
	}
	return loc
}

func (c Config) ReportStart() (time.Time, error) {
	t, err := time.ParseInLocation("2006-01", strings.TrimSpace(c.ReportStartMonth), c.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid REPORT_START_MONTH %q: %w", c.ReportStartMonth, err)
	}
	return t, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
