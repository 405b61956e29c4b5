package config

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/spf13/viper"
)

// CutoffLayout is the date format of migration.cutoff_date.
const CutoffLayout = "2006-01-02"

var tablePrefixPattern = regexp.MustCompile(`^[A-Za-z0-9_]*$`)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Log       LogConfig
	Legacy    LegacyConfig
	Target    TargetConfig
	Migration MigrationConfig
	Export    ExportConfig
	Ledger    LedgerConfig
	Telemetry TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// LegacyConfig holds the WooCommerce MySQL connection settings
type LegacyConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	DBName         string
	TablePrefix    string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
}

// TargetConfig holds the commerce platform admin API settings
type TargetConfig struct {
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 = unlimited
	RateBurst int
	DryRun    bool // write to an in-memory platform instead of the API
}

// MigrationConfig holds the settings that shape the migrated data
type MigrationConfig struct {
	CurrencyCode     string
	CurrencyExponent int
	RegionName       string
	CutoffDate       string
	Cutoff           time.Time // parsed from CutoffDate
	MaxRecordErrors  int
}

// ExportConfig holds order export settings
type ExportConfig struct {
	OrdersPath     string // local CSV path, empty disables the file export
	S3Bucket       string // empty disables the upload
	S3Prefix       string
	S3Region       string
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool
}

// LedgerConfig holds the run history store settings
type LedgerConfig struct {
	Enabled bool
	Path    string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	MetricsEnabled    bool
	MetricsInterval   time.Duration
	LogsEnabled       bool // Ship zap entries to the collector as OTLP logs
	DBTraceEnabled    bool // Trace ledger queries (otelgorm)

	ProfilingEnabled           bool   // Continuous profiling with Pyroscope
	ProfilingServerAddress     string // e.g. "http://pyroscope:4040"
	ProfilingBasicAuthUser     string
	ProfilingBasicAuthPassword string
}

// Load loads configuration from config.toml and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with WCM_ prefix (e.g., WCM_LEGACY_PASSWORD)
// 2. config.toml, or the file passed in path
// 3. Built-in defaults
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/wcmigrate")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("WCM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Zero is a meaningful value for these, so they cannot go through applyDefaults.
	v.SetDefault("migration.currency_exponent", 3)
	v.SetDefault("ledger.enabled", true)
	v.SetDefault("telemetry.logs_enabled", true)

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Legacy: LegacyConfig{
			Host:           v.GetString("legacy.host"),
			Port:           v.GetInt("legacy.port"),
			User:           v.GetString("legacy.user"),
			Password:       v.GetString("legacy.password"),
			DBName:         v.GetString("legacy.dbname"),
			TablePrefix:    v.GetString("legacy.table_prefix"),
			ConnectTimeout: v.GetDuration("legacy.connect_timeout"),
			ReadTimeout:    v.GetDuration("legacy.read_timeout"),
		},
		Target: TargetConfig{
			BaseURL:   v.GetString("target.base_url"),
			APIKey:    v.GetString("target.api_key"),
			Timeout:   v.GetDuration("target.timeout"),
			RateLimit: v.GetFloat64("target.rate_limit"),
			RateBurst: v.GetInt("target.rate_burst"),
			DryRun:    v.GetBool("target.dry_run"),
		},
		Migration: MigrationConfig{
			CurrencyCode:     v.GetString("migration.currency_code"),
			CurrencyExponent: v.GetInt("migration.currency_exponent"),
			RegionName:       v.GetString("migration.region_name"),
			CutoffDate:       v.GetString("migration.cutoff_date"),
			MaxRecordErrors:  v.GetInt("migration.max_record_errors"),
		},
		Export: ExportConfig{
			OrdersPath:     v.GetString("export.orders_path"),
			S3Bucket:       v.GetString("export.s3_bucket"),
			S3Prefix:       v.GetString("export.s3_prefix"),
			S3Region:       v.GetString("export.s3_region"),
			S3Endpoint:     v.GetString("export.s3_endpoint"),
			S3AccessKey:    v.GetString("export.s3_access_key"),
			S3SecretKey:    v.GetString("export.s3_secret_key"),
			S3UsePathStyle: v.GetBool("export.s3_use_path_style"),
		},
		Ledger: LedgerConfig{
			Enabled: v.GetBool("ledger.enabled"),
			Path:    v.GetString("ledger.path"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),

			ProfilingEnabled:           v.GetBool("telemetry.profiling_enabled"),
			ProfilingServerAddress:     v.GetString("telemetry.profiling_server_address"),
			ProfilingBasicAuthUser:     v.GetString("telemetry.profiling_basic_auth_user"),
			ProfilingBasicAuthPassword: v.GetString("telemetry.profiling_basic_auth_password"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "wcmigrate"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Legacy.Host == "" {
		cfg.Legacy.Host = "localhost"
	}
	if cfg.Legacy.Port == 0 {
		cfg.Legacy.Port = 3307
	}
	if cfg.Legacy.User == "" {
		cfg.Legacy.User = "root"
	}
	if cfg.Legacy.DBName == "" {
		cfg.Legacy.DBName = "woocommerce"
	}
	if cfg.Legacy.TablePrefix == "" {
		cfg.Legacy.TablePrefix = "wp_"
	}
	if cfg.Legacy.ConnectTimeout == 0 {
		cfg.Legacy.ConnectTimeout = 10 * time.Second
	}
	if cfg.Legacy.ReadTimeout == 0 {
		cfg.Legacy.ReadTimeout = 30 * time.Second
	}
	if cfg.Target.BaseURL == "" {
		cfg.Target.BaseURL = "http://localhost:9000"
	}
	if cfg.Target.Timeout == 0 {
		cfg.Target.Timeout = 30 * time.Second
	}
	if cfg.Target.RateBurst == 0 {
		cfg.Target.RateBurst = 1
	}
	if cfg.Migration.CurrencyCode == "" {
		cfg.Migration.CurrencyCode = "tnd"
	}
	if cfg.Migration.RegionName == "" {
		cfg.Migration.RegionName = "Tunisia"
	}
	if cfg.Migration.CutoffDate == "" {
		cfg.Migration.CutoffDate = "2025-05-01"
	}
	if cfg.Migration.MaxRecordErrors == 0 {
		cfg.Migration.MaxRecordErrors = 100
	}
	if cfg.Ledger.Path == "" {
		cfg.Ledger.Path = "migration_ledger.db"
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "wcmigrate"
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 15 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if !tablePrefixPattern.MatchString(c.Legacy.TablePrefix) {
		return fmt.Errorf("legacy.table_prefix %q may only contain letters, digits and underscores", c.Legacy.TablePrefix)
	}
	if c.Legacy.Port <= 0 || c.Legacy.Port > 65535 {
		return fmt.Errorf("legacy.port must be between 1 and 65535, got %d", c.Legacy.Port)
	}

	if _, err := url.ParseRequestURI(c.Target.BaseURL); err != nil {
		return fmt.Errorf("target.base_url is not a valid URL: %w", err)
	}
	if c.Target.RateLimit < 0 {
		return fmt.Errorf("target.rate_limit cannot be negative")
	}
	if c.Target.RateBurst < 1 {
		return fmt.Errorf("target.rate_burst must be at least 1")
	}
	if !c.Target.DryRun && c.Target.APIKey == "" {
		return fmt.Errorf("target.api_key is required unless target.dry_run is set")
	}

	if len(c.Migration.CurrencyCode) != 3 {
		return fmt.Errorf("migration.currency_code must be a 3-letter ISO code, got %q", c.Migration.CurrencyCode)
	}
	c.Migration.CurrencyCode = strings.ToLower(c.Migration.CurrencyCode)
	if c.Migration.CurrencyExponent < 0 || c.Migration.CurrencyExponent > 6 {
		return fmt.Errorf("migration.currency_exponent must be between 0 and 6, got %d", c.Migration.CurrencyExponent)
	}
	cutoff, err := time.Parse(CutoffLayout, c.Migration.CutoffDate)
	if err != nil {
		return fmt.Errorf("migration.cutoff_date must use the YYYY-MM-DD format: %w", err)
	}
	c.Migration.Cutoff = cutoff

	if c.Export.S3Bucket != "" && c.Export.S3Region == "" {
		return fmt.Errorf("export.s3_region is required when export.s3_bucket is set")
	}

	if c.App.Env == "production" {
		if c.Legacy.Password == "" {
			return fmt.Errorf("legacy.password is required in production")
		}
		if c.Target.DryRun {
			return fmt.Errorf("target.dry_run cannot be used in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	if c.Telemetry.ProfilingEnabled && c.Telemetry.ProfilingServerAddress == "" {
		return fmt.Errorf("telemetry.profiling_server_address is required when telemetry.profiling_enabled is set")
	}

	return nil
}

// DSN returns the MySQL data source name with properly escaped values.
// Timestamps are scanned into time.Time in UTC.
func (l *LegacyConfig) DSN() string {
	mc := mysql.NewConfig()
	mc.User = l.User
	mc.Passwd = l.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(l.Host, strconv.Itoa(l.Port))
	mc.DBName = l.DBName
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Timeout = l.ConnectTimeout
	mc.ReadTimeout = l.ReadTimeout
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}
