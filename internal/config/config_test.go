package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luckymifta/dash-atm-collector/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	clearCollectorEnv(t)

	cfg, err := config.Load(nil)
	require.NoError(t, err)

	assert.False(t, cfg.Demo)
	assert.True(t, cfg.UseNewTables)
	assert.Equal(t, 14, cfg.TotalATMs)
	assert.Equal(t, "localhost", cfg.DBHost)
	assert.Equal(t, 5432, cfg.DBPort)
}

func TestLoadFlagsOverrideDefaults(t *testing.T) {
	clearCollectorEnv(t)

	cfg, err := config.Load([]string{"--demo", "--total-atms=20", "--continuous", "--interval=60"})
	require.NoError(t, err)

	assert.True(t, cfg.Demo)
	assert.Equal(t, 20, cfg.TotalATMs)
	assert.True(t, cfg.Continuous)
}

func TestDSNFormat(t *testing.T) {
	clearCollectorEnv(t)
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_NAME", "atm")
	t.Setenv("DB_USER", "collector")
	t.Setenv("DB_PASSWORD", "secret")

	cfg, err := config.Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "host=db.internal port=6543 user=collector password=secret dbname=atm sslmode=disable", cfg.DSN())
}

func clearCollectorEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"COLLECTOR_SAVE_TO_DB", "COLLECTOR_USE_NEW_TABLES", "COLLECTOR_INCLUDE_CASH_INFO",
		"COLLECTOR_TOTAL_ATMS", "COLLECTOR_CONTINUOUS", "COLLECTOR_INTERVAL_SEC",
		"COLLECTOR_SAVE_JSON", "COLLECTOR_OUTPUT_DIR", "DB_HOST", "DB_PORT", "DB_NAME", "DB_USER", "DB_PASSWORD",
	} {
		os.Unsetenv(key)
	}
}
