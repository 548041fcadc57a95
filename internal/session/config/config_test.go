package config_test

import (
	"strings"
	"testing"
	"time"

	"flashcards-client/internal/session/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := config.LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/api", cfg.APIBaseURL)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, config.StorageFile, cfg.StorageBackend)
	assert.Equal(t, "flashcards_token", cfg.TokenKey)
	assert.Equal(t, "flashcards_user", cfg.UserKey)
	assert.Equal(t, "localhost:3001", cfg.GatewayAddr())
	assert.Zero(t, cfg.RateLimitRPS)

	key, err := cfg.EncryptionKey()
	require.NoError(t, err)
	assert.Nil(t, key)
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://api.example.com/api/")
	t.Setenv("HTTP_TIMEOUT", "5s")
	t.Setenv("STORAGE_BACKEND", " Redis ")
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("STORAGE_ENCRYPTION_KEY", strings.Repeat("ab", 32))
	t.Setenv("SCREEN_RULES", `admin=>user.role == "ADMIN";quiz=>true`)

	cfg, err := config.LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/api", cfg.APIBaseURL)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, config.StorageRedis, cfg.StorageBackend)
	assert.Equal(t, "cache:6380", cfg.RedisAddr)
	assert.Equal(t, `user.role == "ADMIN"`, cfg.ScreenRules["admin"])
	assert.Equal(t, "true", cfg.ScreenRules["quiz"])

	key, err := cfg.EncryptionKey()
	require.NoError(t, err)
	assert.Len(t, key, 32)
}

func TestLoadConfig_ValidationErrors(t *testing.T) {
	testCases := []struct {
		name        string
		env         map[string]string
		expectedErr string
	}{
		{
			name:        "relative base url",
			env:         map[string]string{"API_BASE_URL": "/api"},
			expectedErr: "api_base_url",
		},
		{
			name:        "unknown backend",
			env:         map[string]string{"STORAGE_BACKEND": "sqlite"},
			expectedErr: "storage_backend",
		},
		{
			name:        "key not hex",
			env:         map[string]string{"STORAGE_ENCRYPTION_KEY": "zz"},
			expectedErr: "must be hex",
		},
		{
			name:        "key too short",
			env:         map[string]string{"STORAGE_ENCRYPTION_KEY": "abcd"},
			expectedErr: "32 bytes",
		},
		{
			name:        "same storage keys",
			env:         map[string]string{"STORAGE_TOKEN_KEY": "k", "STORAGE_USER_KEY": "k"},
			expectedErr: "must differ",
		},
		{
			name:        "zero timeout",
			env:         map[string]string{"HTTP_TIMEOUT": "0s"},
			expectedErr: "http_timeout",
		},
		{
			name:        "bad duration",
			env:         map[string]string{"HTTP_TIMEOUT": "soon"},
			expectedErr: "failed to load configuration",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			cfg, err := config.LoadConfig()

			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.expectedErr)
		})
	}
}
