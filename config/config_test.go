package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	// Test case 1: Default values - should load without any environment set
	t.Run("DefaultValues", func(t *testing.T) {
		os.Clearenv()

		config, err := LoadConfig()

		assert.NoError(t, err)
		assert.NotNil(t, config)
		assert.Equal(t, 8080, config.Server.Port)
		assert.Equal(t, "", config.Gemini.APIKey)
		assert.Equal(t, "https://generativelanguage.googleapis.com/v1beta", config.Gemini.BaseURL)
		assert.Equal(t, "gemini-2.5-flash", config.Gemini.SearchModel)
		assert.Equal(t, "gemini-2.5-flash-image", config.Gemini.ImageModel)
		assert.Equal(t, 1500, config.Quota.MaxDailyLimit)
		assert.Equal(t, 15, config.Quota.MaxRPM)
		assert.Equal(t, 0.95, config.Quota.SafetyFactor)
		assert.Equal(t, 60*time.Second, config.Quota.Window)
		assert.Equal(t, "atmolite", config.Cache.Namespace)
		assert.Equal(t, "v1", config.Cache.Version)
		assert.Equal(t, 24*time.Hour, config.Cache.Expiry)
		assert.Equal(t, "sqlite", config.Storage.Driver)
		assert.Equal(t, "data/atmolite.db", config.Storage.Path)
		assert.True(t, config.RemoteCache.Enabled)
	})

	// Test case 2: Custom values - should use provided values
	t.Run("CustomValues", func(t *testing.T) {
		os.Clearenv()

		require.NoError(t, os.Setenv("SERVER_PORT", "9090"))
		require.NoError(t, os.Setenv("GEMINI_API_KEY", "test-api-key"))
		require.NoError(t, os.Setenv("GEMINI_BASE_URL", "https://gemini.test.example.com"))
		require.NoError(t, os.Setenv("QUOTA_MAX_DAILY_LIMIT", "100"))
		require.NoError(t, os.Setenv("QUOTA_MAX_RPM", "5"))
		require.NoError(t, os.Setenv("QUOTA_SAFETY_FACTOR", "0.8"))
		require.NoError(t, os.Setenv("QUOTA_WINDOW", "30s"))
		require.NoError(t, os.Setenv("CACHE_NAMESPACE", "testns"))
		require.NoError(t, os.Setenv("CACHE_VERSION", "v2"))
		require.NoError(t, os.Setenv("CACHE_EXPIRY", "12h"))
		require.NoError(t, os.Setenv("STORAGE_DRIVER", "memory"))
		require.NoError(t, os.Setenv("REMOTE_CACHE_REDIS_ADDR", "localhost:6379"))

		config, err := LoadConfig()

		assert.NoError(t, err)
		assert.NotNil(t, config)
		assert.Equal(t, 9090, config.Server.Port)
		assert.Equal(t, "test-api-key", config.Gemini.APIKey)
		assert.Equal(t, "https://gemini.test.example.com", config.Gemini.BaseURL)
		assert.Equal(t, 100, config.Quota.MaxDailyLimit)
		assert.Equal(t, 5, config.Quota.MaxRPM)
		assert.Equal(t, 0.8, config.Quota.SafetyFactor)
		assert.Equal(t, 30*time.Second, config.Quota.Window)
		assert.Equal(t, "testns", config.Cache.Namespace)
		assert.Equal(t, "v2", config.Cache.Version)
		assert.Equal(t, 12*time.Hour, config.Cache.Expiry)
		assert.Equal(t, "memory", config.Storage.Driver)
		assert.Equal(t, "localhost:6379", config.RemoteCache.RedisAddr)
	})

	// Test case 3: Invalid values - should fail validation
	t.Run("InvalidValues", func(t *testing.T) {
		cases := []struct {
			name  string
			key   string
			value string
		}{
			{"InvalidPort", "SERVER_PORT", "99999"},
			{"InvalidBaseURL", "GEMINI_BASE_URL", "not-a-url"},
			{"ZeroDailyLimit", "QUOTA_MAX_DAILY_LIMIT", "0"},
			{"ZeroRPM", "QUOTA_MAX_RPM", "0"},
			{"SafetyFactorTooHigh", "QUOTA_SAFETY_FACTOR", "1.5"},
			{"SafetyFactorZero", "QUOTA_SAFETY_FACTOR", "0"},
			{"TinyWindow", "QUOTA_WINDOW", "100ms"},
			{"EmptyNamespace", "CACHE_NAMESPACE", " "},
			{"TinyExpiry", "CACHE_EXPIRY", "10s"},
			{"UnknownStorageDriver", "STORAGE_DRIVER", "postgres"},
			{"BadRemoteURL", "REMOTE_CACHE_URL", "ftp://example.com"},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				os.Clearenv()
				require.NoError(t, os.Setenv(tc.key, tc.value))

				config, err := LoadConfig()

				assert.Error(t, err)
				assert.Nil(t, config)
			})
		}
	})
}

func TestQuotaConfigDailyCutoff(t *testing.T) {
	tests := []struct {
		name     string
		limit    int
		factor   float64
		expected int
	}{
		{"Defaults", 1500, 0.95, 1425},
		{"FullFactor", 100, 1.0, 100},
		{"RoundsDown", 10, 0.95, 9},
		{"SmallLimit", 1, 0.95, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := QuotaConfig{MaxDailyLimit: tt.limit, SafetyFactor: tt.factor}
			assert.Equal(t, tt.expected, q.DailyCutoff())
		})
	}
}
