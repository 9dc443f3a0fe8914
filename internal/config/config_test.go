package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no .env
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, 7, cfg.App.ShortIDLength)
	assert.Equal(t, 5, cfg.App.ShortIDMaxAttempts)
	assert.Equal(t, "http://localhost:8080", cfg.App.BaseURL)
	assert.Equal(t, "json", cfg.App.LogFormat)
	assert.True(t, cfg.App.EnableMetrics)
	assert.False(t, cfg.App.RateLimitEnabled)
}

func TestLoad_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("JWT_ISSUER", "identity.example")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/links.db")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("BASE_URL", "https://sho.rt")
	t.Setenv("SHORT_ID_LENGTH", "9")
	t.Setenv("SERVER_READ_TIMEOUT", "3s")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "/tmp/links.db", cfg.SQLite.Path)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "https://sho.rt", cfg.App.BaseURL)
	assert.Equal(t, 9, cfg.App.ShortIDLength)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 0, cfg.Redis.DB, "unparsable values fall back to the default")
	assert.Equal(t, "identity.example", cfg.Auth.JWTIssuer)
}

func TestLoad_Invalid(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_SECRET", "")
	t.Setenv("STORE_DRIVER", "mongo")
	t.Setenv("SHORT_ID_MAX_ATTEMPTS", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORE_DRIVER")
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "SHORT_ID_MAX_ATTEMPTS")
}

func TestLoad_ShortIDLengthBounds(t *testing.T) {
	tests := []struct {
		length  string
		wantErr bool
	}{
		{"1", false},
		{"32", false},
		{"0", true},
		{"33", true},
	}

	for _, tt := range tests {
		t.Run(tt.length, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv("JWT_SECRET", "secret")
			t.Setenv("SHORT_ID_LENGTH", tt.length)

			_, err := Load()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "SHORT_ID_LENGTH")
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestDatabaseURL(t *testing.T) {
	db := DatabaseConfig{
		Host:     "db",
		Port:     "5432",
		User:     "app",
		Password: "p@ss/word",
		DBName:   "links",
		SSLMode:  "disable",
	}

	assert.Equal(t, "postgres://app:p%40ss%2Fword@db:5432/links?sslmode=disable", db.DatabaseURL())
}

func TestRedisAddr(t *testing.T) {
	r := RedisConfig{Host: "cache", Port: "6380"}
	assert.Equal(t, "cache:6380", r.RedisAddr())
}
