package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConnectionConfig(t *testing.T) {
	cfg := DefaultConnectionConfig()

	assert.Equal(t, 1, cfg.MaxOpenConns)
	assert.Equal(t, 1, cfg.MaxIdleConns)
	assert.Equal(t, 1*time.Hour, cfg.ConnMaxLifetime)
	assert.Equal(t, 30*time.Minute, cfg.ConnMaxIdleTime)
}

func TestGetConnectionConfigFromEnv_Defaults(t *testing.T) {
	_ = os.Unsetenv("DB_MAX_OPEN_CONNS")
	_ = os.Unsetenv("DB_MAX_IDLE_CONNS")
	_ = os.Unsetenv("DB_CONN_MAX_LIFETIME")
	_ = os.Unsetenv("DB_CONN_MAX_IDLE_TIME")

	cfg := getConnectionConfigFromEnv()

	assert.Equal(t, 1, cfg.MaxOpenConns)
	assert.Equal(t, 1, cfg.MaxIdleConns)
	assert.Equal(t, 1*time.Hour, cfg.ConnMaxLifetime)
	assert.Equal(t, 30*time.Minute, cfg.ConnMaxIdleTime)
}

func TestGetConnectionConfigFromEnv_MaxOpenConns(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		expected int
	}{
		{name: "valid value", envValue: "5", expected: 5},
		{name: "invalid value - non-numeric", envValue: "invalid", expected: 1},
		{name: "invalid value - zero", envValue: "0", expected: 1},
		{name: "invalid value - negative", envValue: "-10", expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_ = os.Setenv("DB_MAX_OPEN_CONNS", tt.envValue)
			defer func() { _ = os.Unsetenv("DB_MAX_OPEN_CONNS") }()

			cfg := getConnectionConfigFromEnv()
			assert.Equal(t, tt.expected, cfg.MaxOpenConns)
		})
	}
}

func TestGetConnectionConfigFromEnv_ConnMaxLifetime(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		expected time.Duration
	}{
		{name: "valid value - hours", envValue: "2h", expected: 2 * time.Hour},
		{name: "valid value - mixed", envValue: "1h30m", expected: 90 * time.Minute},
		{name: "invalid value - not a duration", envValue: "invalid", expected: 1 * time.Hour},
		{name: "invalid value - zero", envValue: "0s", expected: 1 * time.Hour},
		{name: "invalid value - negative", envValue: "-1h", expected: 1 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_ = os.Setenv("DB_CONN_MAX_LIFETIME", tt.envValue)
			defer func() { _ = os.Unsetenv("DB_CONN_MAX_LIFETIME") }()

			cfg := getConnectionConfigFromEnv()
			assert.Equal(t, tt.expected, cfg.ConnMaxLifetime)
		})
	}
}

func TestGetConnectionConfigFromEnv_AllCustomValues(t *testing.T) {
	_ = os.Setenv("DB_MAX_OPEN_CONNS", "4")
	_ = os.Setenv("DB_MAX_IDLE_CONNS", "2")
	_ = os.Setenv("DB_CONN_MAX_LIFETIME", "2h")
	_ = os.Setenv("DB_CONN_MAX_IDLE_TIME", "45m")

	defer func() {
		_ = os.Unsetenv("DB_MAX_OPEN_CONNS")
		_ = os.Unsetenv("DB_MAX_IDLE_CONNS")
		_ = os.Unsetenv("DB_CONN_MAX_LIFETIME")
		_ = os.Unsetenv("DB_CONN_MAX_IDLE_TIME")
	}()

	cfg := getConnectionConfigFromEnv()

	assert.Equal(t, 4, cfg.MaxOpenConns)
	assert.Equal(t, 2, cfg.MaxIdleConns)
	assert.Equal(t, 2*time.Hour, cfg.ConnMaxLifetime)
	assert.Equal(t, 45*time.Minute, cfg.ConnMaxIdleTime)
}

// TestOpen_SuccessfulConnection verifies Open() against a real on-disk
// SQLite file. Unlike the teacher's Postgres-backed variant this needs no
// external service, so it always runs rather than skipping without a DSN.
func TestOpen_SuccessfulConnection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "open_test.db")
	_ = os.Setenv("CATCHUPFEED_DB_PATH", path)
	defer func() { _ = os.Unsetenv("CATCHUPFEED_DB_PATH") }()

	database := Open()
	defer func() { _ = database.Close() }()

	ctx := context.Background()
	assert.NoError(t, database.PingContext(ctx))
}
