package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearBazaarEnv blanks every BAZAAR_ variable for the duration of the test
func clearBazaarEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"BAZAAR_APP_ENV",
		"BAZAAR_DATABASE_DRIVER",
		"BAZAAR_DATABASE_PASSWORD",
		"BAZAAR_DATABASE_SSLMODE",
		"BAZAAR_DATABASE_MAX_OPEN_CONNS",
		"BAZAAR_DATABASE_MAX_IDLE_CONNS",
		"BAZAAR_STORE_BATCH_SIZE",
		"BAZAAR_NUMBERING_LOCK_BACKEND",
		"BAZAAR_NUMBERING_LOCK_TIMEOUT",
		"BAZAAR_NUMBERING_LOCK_LEASE",
		"BAZAAR_CHECKOUT_ALLOW_MANUAL_REOPEN",
		"BAZAAR_TELEMETRY_DB_LOG_FULL_SQL",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearBazaarEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "bazaar-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, DriverPostgres, cfg.Database.Driver)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "bazaar", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.Equal(t, 100, cfg.Store.BatchSize)
		assert.Equal(t, LockBackendLocal, cfg.Numbering.LockBackend)
		assert.Equal(t, 30*time.Second, cfg.Numbering.LockTimeout)
		assert.Equal(t, time.Minute, cfg.Numbering.LockLease)
		assert.False(t, cfg.Checkout.AllowManualReopen)
		assert.Equal(t, "info", cfg.Log.Level)
	})

	t.Run("env vars override defaults", func(t *testing.T) {
		clearBazaarEnv(t)
		t.Setenv("BAZAAR_DATABASE_DRIVER", "sqlite")
		t.Setenv("BAZAAR_STORE_BATCH_SIZE", "25")
		t.Setenv("BAZAAR_NUMBERING_LOCK_BACKEND", "redis")
		t.Setenv("BAZAAR_NUMBERING_LOCK_TIMEOUT", "5s")
		t.Setenv("BAZAAR_CHECKOUT_ALLOW_MANUAL_REOPEN", "true")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, DriverSQLite, cfg.Database.Driver)
		assert.Equal(t, 25, cfg.Store.BatchSize)
		assert.Equal(t, LockBackendRedis, cfg.Numbering.LockBackend)
		assert.Equal(t, 5*time.Second, cfg.Numbering.LockTimeout)
		assert.True(t, cfg.Checkout.AllowManualReopen)
	})

	t.Run("rejects unknown driver", func(t *testing.T) {
		clearBazaarEnv(t)
		t.Setenv("BAZAAR_DATABASE_DRIVER", "oracle")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.driver")
	})

	t.Run("rejects unknown lock backend", func(t *testing.T) {
		clearBazaarEnv(t)
		t.Setenv("BAZAAR_NUMBERING_LOCK_BACKEND", "zookeeper")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "numbering.lock_backend")
	})

	t.Run("rejects redis lease shorter than the wait", func(t *testing.T) {
		clearBazaarEnv(t)
		t.Setenv("BAZAAR_NUMBERING_LOCK_BACKEND", "redis")
		t.Setenv("BAZAAR_NUMBERING_LOCK_TIMEOUT", "30s")
		t.Setenv("BAZAAR_NUMBERING_LOCK_LEASE", "10s")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "numbering.lock_lease")
	})

	t.Run("rejects idle conns above open conns", func(t *testing.T) {
		clearBazaarEnv(t)
		t.Setenv("BAZAAR_DATABASE_MAX_OPEN_CONNS", "2")
		t.Setenv("BAZAAR_DATABASE_MAX_IDLE_CONNS", "3")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	setValidProductionBase := func(t *testing.T) {
		clearBazaarEnv(t)
		t.Setenv("BAZAAR_APP_ENV", "production")
		t.Setenv("BAZAAR_DATABASE_PASSWORD", "secure-password")
		t.Setenv("BAZAAR_DATABASE_SSLMODE", "require")
	}

	t.Run("requires database.password in production", func(t *testing.T) {
		setValidProductionBase(t)
		os.Unsetenv("BAZAAR_DATABASE_PASSWORD")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("requires SSL enabled in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("BAZAAR_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sslmode cannot be 'disable' in production")
	})

	t.Run("sqlite needs no password in production", func(t *testing.T) {
		clearBazaarEnv(t)
		t.Setenv("BAZAAR_APP_ENV", "production")
		t.Setenv("BAZAAR_DATABASE_DRIVER", "sqlite")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	})

	t.Run("refuses full SQL logging in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("BAZAAR_TELEMETRY_DB_LOG_FULL_SQL", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "telemetry.db_log_full_sql")
	})

	t.Run("passes validation with valid production config", func(t *testing.T) {
		setValidProductionBase(t)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost:5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		assert.Contains(t, cfg.DSN(), "pass%40word%23123")
	})
}

func TestRedisConfig_Addr(t *testing.T) {
	cfg := RedisConfig{Host: "cache", Port: 6380}
	assert.Equal(t, "cache:6380", cfg.Addr())
}
