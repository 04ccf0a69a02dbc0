package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DB_CONNECTION_STRING", "postgres://localhost/trains")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, []string{"Brussels-Central"}, cfg.TrainStations)
	assert.Equal(t, "0 0 * * * *", cfg.TimerCron)
	assert.Equal(t, "https://api.irail.be", cfg.IRailBaseURL)
	assert.Equal(t, 30*time.Second, cfg.IRailTimeout)
	assert.Equal(t, 4, cfg.FetchConcurrency)
	assert.Equal(t, 100, cfg.DBInsertBatchSize)
	assert.False(t, cfg.RunOnStartup)
	assert.Equal(t, 120*time.Second, cfg.WriteTimeout)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("DB_CONNECTION_STRING", "postgres://localhost/trains")
	t.Setenv("TRAIN_STATIONS", "Brussels-Central, Gent-Sint-Pieters,Brussels-Central")
	t.Setenv("UPDATE_SCHEDULES_TIMER_CRON", "0 */15 * * * *")
	t.Setenv("IRAIL_TIMEOUT", "5")
	t.Setenv("IRAIL_BASE_URL", "http://localhost:9000/")
	t.Setenv("RUN_ON_STARTUP", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, []string{"Brussels-Central", "Gent-Sint-Pieters"}, cfg.TrainStations)
	assert.Equal(t, "0 */15 * * * *", cfg.TimerCron)
	assert.Equal(t, 5*time.Second, cfg.IRailTimeout)
	assert.Equal(t, "http://localhost:9000", cfg.IRailBaseURL)
	assert.True(t, cfg.RunOnStartup)
}

func TestLoadConfigRequiresConnectionString(t *testing.T) {
	t.Setenv("DB_CONNECTION_STRING", "")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfigFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	content := `
stations:
  - Leuven
  - Antwerp-Central
timer:
  cron: "0 30 * * * *"
  run_on_startup: true
irail:
  lang: nl
  timeout: 10s
fetch_concurrency: 2
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("DB_CONNECTION_STRING", "postgres://localhost/trains")
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("UPDATE_SCHEDULES_TIMER_CRON", "0 0 */2 * * *")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, []string{"Leuven", "Antwerp-Central"}, cfg.TrainStations)
	assert.Equal(t, "0 0 */2 * * *", cfg.TimerCron, "environment wins over the file")
	assert.True(t, cfg.RunOnStartup)
	assert.Equal(t, "nl", cfg.IRailLang)
	assert.Equal(t, 10*time.Second, cfg.IRailTimeout)
	assert.Equal(t, 2, cfg.FetchConcurrency)
}

func TestLoadConfigFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("irail:\n  lang: xx\n"), 0o600))

	t.Setenv("DB_CONNECTION_STRING", "postgres://localhost/trains")
	t.Setenv("CONFIG_FILE", path)

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLocationFallsBackToUTC(t *testing.T) {
	cfg := &Config{Timezone: "Nowhere/Invalid"}
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestLoadConfigRejectsUnknownTimezone(t *testing.T) {
	t.Setenv("DB_CONNECTION_STRING", "postgres://localhost/trains")
	t.Setenv("TIMEZONE", "Nowhere/Invalid")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLocationResolvesBrussels(t *testing.T) {
	cfg := &Config{Timezone: "Europe/Brussels"}

	loc := cfg.Location()
	assert.Equal(t, "Europe/Brussels", loc.String())

	// 2026-07-01 12:00 UTC is 14:00 in Brussels (CEST)
	summer := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC).In(loc)
	assert.Equal(t, 14, summer.Hour())
}

func TestWriteTimeoutCoversSlowRuns(t *testing.T) {
	t.Setenv("DB_CONNECTION_STRING", "postgres://localhost/trains")
	t.Setenv("TRAIN_STATIONS", "A,B,C,D,E,F,G,H,I")
	t.Setenv("FETCH_CONCURRENCY", "4")
	t.Setenv("IRAIL_TIMEOUT", "30s")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	// 3 waves of 2 sequential 30s fetches, plus the write margin
	assert.Equal(t, 180*time.Second, cfg.RunBudget(9))
	assert.Equal(t, 210*time.Second, cfg.WriteTimeout)
}

func TestWriteTimeoutFromEnv(t *testing.T) {
	t.Setenv("DB_CONNECTION_STRING", "postgres://localhost/trains")
	t.Setenv("TRAIN_STATIONS", "A,B,C,D,E,F,G,H,I")
	t.Setenv("WRITE_TIMEOUT", "45")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, cfg.WriteTimeout)
}
