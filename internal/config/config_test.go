package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setPostgresEnv(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("POSTGRES_USER", "slot")
	t.Setenv("POSTGRES_PASSWORD", "p@ss:word")
	t.Setenv("POSTGRES_DB", "slotgo")
}

func TestNew_Defaults(t *testing.T) {
	setPostgresEnv(t)

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, 3*time.Second, cfg.Store.Timeout)
	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Empty(t, cfg.Auth.JWTSecret)
	assert.Equal(t, 10, cfg.Admission.RateLimit)
	assert.Equal(t, 5, cfg.Admission.CompensationAttempts)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestNew_Overrides(t *testing.T) {
	setPostgresEnv(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORE_TIMEOUT", "750ms")
	t.Setenv("KAFKA_BROKERS", " k1:9092, ,k2:9092 ")
	t.Setenv("RATE_WINDOW", "30s")
	t.Setenv("LOG_FORMAT", "JSON")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 750*time.Millisecond, cfg.Store.Timeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 30*time.Second, cfg.Admission.RateWindow)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestNew_Errors(t *testing.T) {
	t.Run("missing postgres user", func(t *testing.T) {
		setPostgresEnv(t)
		t.Setenv("POSTGRES_USER", "")
		_, err := New()
		assert.ErrorContains(t, err, "POSTGRES_USER")
	})

	t.Run("bad port", func(t *testing.T) {
		setPostgresEnv(t)
		t.Setenv("SERVER_PORT", "http")
		_, err := New()
		assert.ErrorContains(t, err, "SERVER_PORT")
	})

	t.Run("bad driver", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "sqlite")
		_, err := New()
		assert.ErrorContains(t, err, "STORE_DRIVER")
	})

	t.Run("non-positive timeout", func(t *testing.T) {
		setPostgresEnv(t)
		t.Setenv("STORE_TIMEOUT", "0s")
		_, err := New()
		assert.ErrorContains(t, err, "STORE_TIMEOUT")
	})
}

func TestNew_MongoNeedsNoPostgres(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongo")
	t.Setenv("POSTGRES_USER", "")
	t.Setenv("MONGO_DB", "bookings")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "bookings", cfg.Mongo.DB)
	assert.True(t, cfg.Mongo.Transactions)
}

func TestPostgresConfig_DSN(t *testing.T) {
	p := PostgresConfig{User: "u", Password: "p@ss:word", Host: "db", Port: 5432, Name: "slotgo", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p%40ss%3Aword@db:5432/slotgo?sslmode=disable", p.DSN())
}
