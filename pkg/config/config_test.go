package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "dashboard_service", cfg.DB.DBName)
	assert.Equal(t, "https://api.openai.com/v1", cfg.AI.BaseURL)
	assert.Equal(t, "https://logo.clearbit.com", cfg.Logo.BaseURL)
	assert.Equal(t, "1234", cfg.Confirm.DeletePIN)
	assert.Equal(t, 24, cfg.JWT.ExpirationHours)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("AI_MODEL", "local-model")
	t.Setenv("AI_MAX_TOKENS", "250")
	t.Setenv("CONFIRM_DELETE_PIN", "9876")
	t.Setenv("DB_CONN_MAX_LIFETIME", "30m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "local-model", cfg.AI.Model)
	assert.Equal(t, 250, cfg.AI.MaxTokens)
	assert.Equal(t, "9876", cfg.Confirm.DeletePIN)
	assert.Equal(t, "30m0s", cfg.DB.ConnMaxLifetime.String())
}

func TestGetDSN(t *testing.T) {
	db := DBConfig{
		Host:     "db.internal",
		Port:     "5433",
		User:     "svc",
		Password: "secret",
		DBName:   "dashboard",
		SSLMode:  "require",
	}

	assert.Equal(t,
		"host=db.internal port=5433 user=svc password=secret dbname=dashboard sslmode=require",
		db.GetDSN())
}
