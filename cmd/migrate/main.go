package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	migrationapp "github.com/commerce/wcmigrate/internal/application/migration"
	"github.com/commerce/wcmigrate/internal/domain/commerce"
	"github.com/commerce/wcmigrate/internal/domain/migration"
	"github.com/commerce/wcmigrate/internal/infrastructure/config"
	"github.com/commerce/wcmigrate/internal/infrastructure/dryrun"
	"github.com/commerce/wcmigrate/internal/infrastructure/export"
	"github.com/commerce/wcmigrate/internal/infrastructure/legacy"
	"github.com/commerce/wcmigrate/internal/infrastructure/logger"
	"github.com/commerce/wcmigrate/internal/infrastructure/medusa"
	"github.com/commerce/wcmigrate/internal/infrastructure/persistence"
	"github.com/commerce/wcmigrate/internal/infrastructure/storage"
	"github.com/commerce/wcmigrate/internal/infrastructure/telemetry"
)

const historyLimit = 20

func main() {
	var (
		configPath string
		logLevel   string
	)
	flag.StringVar(&configPath, "config", "", "Path to the config file (default: ./config.toml)")
	flag.StringVar(&logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	flag.Usage = printUsage
	flag.Parse()

	command := "run"
	args := flag.Args()
	if len(args) > 0 {
		command = args[0]
		args = args[1:]
	}
	if command == "help" {
		printUsage()
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: logger.ConsoleTimeLayout,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	switch command {
	case "run":
		err = runMigration(ctx, cfg, log)
	case "check-prices":
		err = checkPrices(ctx, cfg, log, args)
	case "history":
		err = showHistory(ctx, cfg, log)
	default:
		err = fmt.Errorf("unknown command: %s", command)
		printUsage()
	}

	stop()
	if err != nil {
		log.Error("Command failed", zap.String("command", command), zap.Error(err))
	}
	_ = logger.Sync(log)
	if err != nil {
		os.Exit(1)
	}
}

func runMigration(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	log, shutdown, metrics, err := setupTelemetry(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer shutdown()

	currency, err := commerce.NewCurrency(cfg.Migration.CurrencyCode, int32(cfg.Migration.CurrencyExponent))
	if err != nil {
		return err
	}

	platform, err := newPlatform(cfg, currency, log)
	if err != nil {
		return err
	}

	var ledger migration.RunRepository
	if cfg.Ledger.Enabled {
		db, err := openLedger(cfg, log)
		if err != nil {
			return err
		}
		defer func() {
			if err := db.Close(); err != nil {
				log.Warn("Error closing ledger", zap.Error(err))
			}
		}()
		ledger = db.Runs()
	}

	uploader, err := newUploader(ctx, cfg, log)
	if err != nil {
		return err
	}

	pipeline, err := migrationapp.NewPipeline(migrationapp.PipelineConfig{
		Connector: legacy.NewConnector(&cfg.Legacy, log),
		Platform:  platform,
		Options: migrationapp.Options{
			Currency:        currency,
			RegionName:      cfg.Migration.RegionName,
			Cutoff:          cfg.Migration.Cutoff,
			MaxRecordErrors: cfg.Migration.MaxRecordErrors,
			DryRun:          cfg.Target.DryRun,
		},
		Orders:  export.NewOrdersReport(cfg.Export.OrdersPath, uploader, log),
		Ledger:  ledger,
		Metrics: metrics,
		Logger:  log,
	})
	if err != nil {
		return err
	}

	report, err := pipeline.Run(ctx)
	if report != nil {
		printReport(report)
	}
	if p, ok := platform.(*dryrun.Platform); ok {
		s := p.Stats()
		fmt.Printf("Dry run recorded %d categories, %d products, %d variants, %d prices, %d customers\n",
			s.Categories, s.Products, s.Variants, s.Prices, s.Customers)
	}
	return err
}

func checkPrices(ctx context.Context, cfg *config.Config, log *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("check-prices", flag.ContinueOnError)
	limit := fs.Int("limit", migrationapp.DefaultPriceCheckLimit, "Number of products to inspect")
	if err := fs.Parse(args); err != nil {
		return err
	}

	currency, err := commerce.NewCurrency(cfg.Migration.CurrencyCode, int32(cfg.Migration.CurrencyExponent))
	if err != nil {
		return err
	}
	if cfg.Target.DryRun {
		return errors.New("check-prices reads the live platform and cannot run with target.dry_run")
	}
	platform, err := newPlatform(cfg, currency, log)
	if err != nil {
		return err
	}

	checker := migrationapp.NewPriceChecker(platform, currency, log)
	products, err := checker.Check(ctx, *limit)
	if err != nil {
		return err
	}

	for _, p := range products {
		fmt.Printf("%s (%s)\n", p.Title, p.ProductID)
		for _, v := range p.Variants {
			fmt.Printf("  %s [%s]\n", v.Title, v.SKU)
			if len(v.Prices) == 0 {
				fmt.Println("    no prices")
			}
			for _, price := range v.Prices {
				fmt.Printf("    %s region=%s\n", checker.FormatPrice(price), price.RegionID)
			}
		}
	}
	return nil
}

func showHistory(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	if !cfg.Ledger.Enabled {
		return errors.New("history requires ledger.enabled")
	}
	db, err := openLedger(cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.Runs().ListRecent(ctx, historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded")
		return nil
	}
	for _, run := range runs {
		line := fmt.Sprintf("%s  %s  %-9s  %8s",
			run.ID, run.StartedAt.Format(time.DateTime), run.Status, run.Duration().Round(time.Second))
		if run.DryRun {
			line += "  dry-run"
		}
		if run.FailedPhase != "" {
			line += fmt.Sprintf("  failed in %s: %s", run.FailedPhase, run.Error)
		}
		fmt.Println(line)
	}
	return nil
}

func newPlatform(cfg *config.Config, currency commerce.Currency, log *zap.Logger) (commerce.Platform, error) {
	if cfg.Target.DryRun {
		log.Warn("Dry run: writes go to an in-memory platform")
		return dryrun.New(log, commerce.Region{
			ID:           "reg_dryrun",
			Name:         cfg.Migration.RegionName,
			CurrencyCode: currency.Code,
		}), nil
	}
	client, err := medusa.NewClient(medusa.Config{
		BaseURL:   cfg.Target.BaseURL,
		APIKey:    cfg.Target.APIKey,
		Timeout:   cfg.Target.Timeout,
		RateLimit: cfg.Target.RateLimit,
		RateBurst: cfg.Target.RateBurst,
	}, medusa.WithLogger(log))
	if err != nil {
		return nil, err
	}
	return client, nil
}

func openLedger(cfg *config.Config, log *zap.Logger) (*persistence.Database, error) {
	tracing := telemetry.DefaultDBTracingConfig()
	tracing.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled
	return persistence.NewDatabase(&cfg.Ledger, log, persistence.Options{
		LogLevel: cfg.Log.Level,
		Tracing:  tracing,
	})
}

// newUploader returns the order report destination in object storage, or
// nil when no bucket is configured. Dry runs keep the report in memory.
func newUploader(ctx context.Context, cfg *config.Config, log *zap.Logger) (export.Uploader, error) {
	if cfg.Export.S3Bucket == "" {
		return nil, nil
	}
	if cfg.Target.DryRun {
		return storage.NewMemoryObjectStorage(), nil
	}
	s3, err := storage.NewS3ObjectStorage(ctx, &cfg.Export, storage.WithLogger(log))
	if err != nil {
		return nil, err
	}
	if err := s3.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return s3, nil
}

// setupTelemetry returns log bridged to the OTLP log pipeline when log
// export is on.
func setupTelemetry(ctx context.Context, cfg *config.Config, log *zap.Logger) (*zap.Logger, func(), *telemetry.MigrationMetrics, error) {
	profiler, err := telemetry.StartProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Telemetry.ProfilingEnabled,
		ServerAddress:     cfg.Telemetry.ProfilingServerAddress,
		ApplicationName:   cfg.Telemetry.ServiceName,
		BasicAuthUser:     cfg.Telemetry.ProfilingBasicAuthUser,
		BasicAuthPassword: cfg.Telemetry.ProfilingBasicAuthPassword,
	}, log)
	if err != nil {
		return nil, nil, nil, err
	}

	providers, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		MetricsEnabled:    cfg.Telemetry.MetricsEnabled,
		LogsEnabled:       cfg.Telemetry.LogsEnabled,
		Profiling:         profiler.Enabled(),
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		_ = profiler.Stop()
		return nil, nil, nil, err
	}

	shutdown := func() {
		// Flush even when the run was interrupted.
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			log.Warn("Error shutting down telemetry", zap.Error(err))
		}
		if err := profiler.Stop(); err != nil {
			log.Warn("Error stopping profiler", zap.Error(err))
		}
	}

	metrics, err := telemetry.NewMigrationMetrics(providers.Meter(telemetry.TracerName))
	if err != nil {
		shutdown()
		return nil, nil, nil, err
	}
	return providers.BridgeLogs(log, logger.ParseLevel(cfg.Log.Level)), shutdown, metrics, nil
}

func printReport(report *migrationapp.RunReport) {
	run := report.Run
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Run %s %s in %s\n", run.ID, run.Status, run.Duration().Round(time.Millisecond))
	for _, res := range run.Phases {
		fmt.Printf("  %-10s read=%-5d created=%-5d skipped=%-5d failed=%d\n",
			res.Phase, res.Read, res.Created, res.Skipped, res.Failed)
	}
	if run.FailedPhase != "" {
		fmt.Printf("  failed in %s: %s\n", run.FailedPhase, run.Error)
	}
	fmt.Println(strings.Repeat("=", 60))
}

func printUsage() {
	fmt.Println(`Usage: migrate [flags] <command> [args]

Commands:
  run                      Migrate categories, products, customers and export orders (default)
  check-prices [-limit N]  List migrated products with their variant prices
  history                  List recent runs from the ledger
  help                     Show this help message

Flags:
  -config string     Path to the config file (default: ./config.toml)
  -log-level string  Log level override (debug, info, warn, error)

Environment variables use the WCM_ prefix, e.g. WCM_LEGACY_PASSWORD, WCM_TARGET_API_KEY.`)
}
