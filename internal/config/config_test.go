package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Cache.Type)
	assert.Equal(t, "freshmart", cfg.Cache.KeyPrefix)
	assert.Equal(t, 15*time.Minute, cfg.Cache.PriceTTL)
	assert.Equal(t, "sqlite", cfg.Database.Driver())
	assert.Equal(t, 30*time.Second, cfg.Scheduler.ActionTimeout)
	assert.True(t, cfg.Scheduler.RearmOnStart)
	assert.Equal(t, 10*time.Minute, cfg.Scheduler.SweepInterval)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("DB_TYPE", "mysql")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "3306")
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_PASS", "secret")
	t.Setenv("SCHEDULER_ACTION_TIMEOUT", "5s")
	t.Setenv("ADMIN_API_KEYS", "k1,k2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.Database.Driver())
	assert.Equal(t, "app:secret@tcp(db.internal:3306)/freshmart?parseTime=true&clientFoundRows=true", cfg.Database.DSN())
	assert.Equal(t, 5*time.Second, cfg.Scheduler.ActionTimeout)
	assert.Equal(t, []string{"k1", "k2"}, cfg.Admin.APIKeys)
}

func TestDatabaseConfig_PostgresDSN(t *testing.T) {
	d := DatabaseConfig{Type: "postgresql", User: "u", Password: "p", Host: "h", Port: 5432, Name: "n", SSLMode: "disable"}
	assert.Equal(t, "postgres", d.Driver())
	assert.Equal(t, "postgres://u:p@h:5432/n?sslmode=disable", d.DSN())
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("CACHE_TTL", "soon")

	_, err := Load()
	assert.Error(t, err)
}
