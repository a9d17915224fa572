package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("DB_PATH", "/tmp/contracts.db")
	t.Setenv("WATCH_INTERVAL_SEC", "5")
	t.Setenv("WATCH_AUTO_EXPORT", "off")
	t.Setenv("WATCH_WORKERS", "not-a-number")
	t.Setenv("TIMEZONE", "America/Sao_Paulo")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/contracts.db", cfg.DBPath)
	assert.Equal(t, 5, cfg.WatchIntervalSec)
	assert.False(t, cfg.WatchAutoExport)
	assert.Equal(t, 4, cfg.WatchWorkers)
	assert.Equal(t, "America/Sao_Paulo", cfg.Location().String())
}

func TestLocationFallsBackToUTC(t *testing.T) {
	cfg := Config{Timezone: "Mars/Olympus_Mons"}
	assert.Equal(t, time.UTC, cfg.Location())

	cfg.Timezone = ""
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestReportStart(t *testing.T) {
	cfg := Config{Timezone: "UTC", ReportStartMonth: "2025-06"}
	start, err := cfg.ReportStart()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC), start)

	cfg.ReportStartMonth = "junho"
	_, err = cfg.ReportStart()
	assert.Error(t, err)
}

func TestRequire(t *testing.T) {
	cfg := Config{}
	assert.NoError(t, cfg.Require("DB_PATH", "x"))
	assert.EqualError(t, cfg.Require("DB_PATH", "  "), "missing required env var: DB_PATH")
}
