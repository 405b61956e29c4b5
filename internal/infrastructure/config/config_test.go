package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	keys := []string{
		"WCM_APP_ENV",
		"WCM_LEGACY_HOST",
		"WCM_LEGACY_PORT",
		"WCM_LEGACY_PASSWORD",
		"WCM_LEGACY_TABLE_PREFIX",
		"WCM_TARGET_API_KEY",
		"WCM_TARGET_DRY_RUN",
		"WCM_TARGET_RATE_LIMIT",
		"WCM_MIGRATION_CURRENCY_CODE",
		"WCM_MIGRATION_CURRENCY_EXPONENT",
		"WCM_MIGRATION_CUTOFF_DATE",
		"WCM_LEDGER_ENABLED",
		"WCM_EXPORT_S3_BUCKET",
		"WCM_TELEMETRY_SAMPLING_RATIO",
		"WCM_TELEMETRY_PROFILING_ENABLED",
	}

	originalEnv := make(map[string]string, len(keys))
	for _, k := range keys {
		originalEnv[k] = os.Getenv(k)
	}
	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	clearEnv := func() {
		for _, k := range keys {
			os.Unsetenv(k)
		}
	}

	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv()
		os.Setenv("WCM_TARGET_API_KEY", "sk_test")

		cfg, err := Load("")
		require.NoError(t, err)

		assert.Equal(t, "wcmigrate", cfg.App.Name)
		assert.Equal(t, "localhost", cfg.Legacy.Host)
		assert.Equal(t, 3307, cfg.Legacy.Port)
		assert.Equal(t, "woocommerce", cfg.Legacy.DBName)
		assert.Equal(t, "wp_", cfg.Legacy.TablePrefix)
		assert.Equal(t, 10*time.Second, cfg.Legacy.ConnectTimeout)
		assert.Equal(t, "http://localhost:9000", cfg.Target.BaseURL)
		assert.Equal(t, 1, cfg.Target.RateBurst)
		assert.Equal(t, "tnd", cfg.Migration.CurrencyCode)
		assert.Equal(t, 3, cfg.Migration.CurrencyExponent)
		assert.Equal(t, "Tunisia", cfg.Migration.RegionName)
		assert.Equal(t, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), cfg.Migration.Cutoff)
		assert.True(t, cfg.Ledger.Enabled)
		assert.Equal(t, "migration_ledger.db", cfg.Ledger.Path)
		assert.False(t, cfg.Telemetry.Enabled)
		assert.Equal(t, 1.0, cfg.Telemetry.SamplingRatio)
		assert.True(t, cfg.Telemetry.LogsEnabled)
		assert.False(t, cfg.Telemetry.ProfilingEnabled)
	})

	t.Run("loads values from environment variables with WCM prefix", func(t *testing.T) {
		clearEnv()
		os.Setenv("WCM_LEGACY_HOST", "wc.internal")
		os.Setenv("WCM_LEGACY_PORT", "3306")
		os.Setenv("WCM_LEGACY_TABLE_PREFIX", "SJvpZoQZ_")
		os.Setenv("WCM_TARGET_DRY_RUN", "true")
		os.Setenv("WCM_TARGET_RATE_LIMIT", "20")
		os.Setenv("WCM_MIGRATION_CURRENCY_CODE", "EUR")
		os.Setenv("WCM_MIGRATION_CURRENCY_EXPONENT", "2")
		os.Setenv("WCM_MIGRATION_CUTOFF_DATE", "2024-01-15")
		os.Setenv("WCM_LEDGER_ENABLED", "false")

		cfg, err := Load("")
		require.NoError(t, err)

		assert.Equal(t, "wc.internal", cfg.Legacy.Host)
		assert.Equal(t, 3306, cfg.Legacy.Port)
		assert.Equal(t, "SJvpZoQZ_", cfg.Legacy.TablePrefix)
		assert.True(t, cfg.Target.DryRun)
		assert.Equal(t, 20.0, cfg.Target.RateLimit)
		assert.Equal(t, "eur", cfg.Migration.CurrencyCode)
		assert.Equal(t, 2, cfg.Migration.CurrencyExponent)
		assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), cfg.Migration.Cutoff)
		assert.False(t, cfg.Ledger.Enabled)
	})

	t.Run("zero currency exponent is kept", func(t *testing.T) {
		clearEnv()
		os.Setenv("WCM_TARGET_DRY_RUN", "true")
		os.Setenv("WCM_MIGRATION_CURRENCY_CODE", "jpy")
		os.Setenv("WCM_MIGRATION_CURRENCY_EXPONENT", "0")

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, 0, cfg.Migration.CurrencyExponent)
	})

	t.Run("reads an explicit config file", func(t *testing.T) {
		clearEnv()
		path := filepath.Join(t.TempDir(), "migrate.toml")
		content := `
[legacy]
host = "db.example"
table_prefix = "shop_"

[target]
api_key = "sk_file"

[migration]
region_name = "Europe"
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "db.example", cfg.Legacy.Host)
		assert.Equal(t, "shop_", cfg.Legacy.TablePrefix)
		assert.Equal(t, "sk_file", cfg.Target.APIKey)
		assert.Equal(t, "Europe", cfg.Migration.RegionName)
	})

	t.Run("missing explicit config file is an error", func(t *testing.T) {
		clearEnv()
		_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
		require.Error(t, err)
	})

	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "rejects an injectable table prefix",
			env:     map[string]string{"WCM_TARGET_DRY_RUN": "true", "WCM_LEGACY_TABLE_PREFIX": "wp_; DROP TABLE x"},
			wantErr: "legacy.table_prefix",
		},
		{
			name:    "requires an api key outside dry runs",
			env:     map[string]string{},
			wantErr: "target.api_key",
		},
		{
			name:    "rejects malformed cutoff dates",
			env:     map[string]string{"WCM_TARGET_DRY_RUN": "true", "WCM_MIGRATION_CUTOFF_DATE": "01/05/2025"},
			wantErr: "migration.cutoff_date",
		},
		{
			name:    "rejects long currency codes",
			env:     map[string]string{"WCM_TARGET_DRY_RUN": "true", "WCM_MIGRATION_CURRENCY_CODE": "dinar"},
			wantErr: "migration.currency_code",
		},
		{
			name:    "rejects out of range exponents",
			env:     map[string]string{"WCM_TARGET_DRY_RUN": "true", "WCM_MIGRATION_CURRENCY_EXPONENT": "9"},
			wantErr: "migration.currency_exponent",
		},
		{
			name:    "requires a legacy password in production",
			env:     map[string]string{"WCM_APP_ENV": "production", "WCM_TARGET_API_KEY": "sk"},
			wantErr: "legacy.password",
		},
		{
			name:    "rejects a sampling ratio above one",
			env:     map[string]string{"WCM_TARGET_DRY_RUN": "true", "WCM_TELEMETRY_SAMPLING_RATIO": "1.5"},
			wantErr: "telemetry.sampling_ratio",
		},
		{
			name:    "requires a server address for profiling",
			env:     map[string]string{"WCM_TARGET_DRY_RUN": "true", "WCM_TELEMETRY_PROFILING_ENABLED": "true"},
			wantErr: "telemetry.profiling_server_address",
		},
		{
			name:    "requires a region for the S3 upload",
			env:     map[string]string{"WCM_TARGET_DRY_RUN": "true", "WCM_EXPORT_S3_BUCKET": "exports"},
			wantErr: "export.s3_region",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv()
			for k, v := range tt.env {
				os.Setenv(k, v)
			}

			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLegacyConfig_DSN(t *testing.T) {
	l := LegacyConfig{
		Host:           "localhost",
		Port:           3307,
		User:           "root",
		Password:       "p@ss:word",
		DBName:         "woocommerce",
		ConnectTimeout: 10 * time.Second,
		ReadTimeout:    30 * time.Second,
	}

	dsn := l.DSN()
	assert.Contains(t, dsn, "root:p@ss:word@tcp(localhost:3307)/woocommerce?")
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "timeout=10s")
	assert.Contains(t, dsn, "readTimeout=30s")
	assert.Contains(t, dsn, "charset=utf8mb4")
}
