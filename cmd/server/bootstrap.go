package main

import (
	"context"
	"fmt"

	"github.com/fiado/backend/internal/domain/credit"
	"github.com/fiado/backend/internal/infrastructure/config"
	"github.com/fiado/backend/internal/infrastructure/logger"
	"github.com/fiado/backend/internal/infrastructure/persistence"
	"github.com/fiado/backend/internal/infrastructure/remotestore"
	"github.com/fiado/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// telemetryStack holds the providers started at boot
type telemetryStack struct {
	tracer   *telemetry.TracerProvider
	meters   *telemetry.MeterProvider
	logs     *telemetry.LoggerProvider
	profiler *telemetry.Profiler
	meter    metric.Meter
}

func setupTelemetry(ctx context.Context, cfg *config.Config, log *zap.Logger) (*telemetryStack, error) {
	tc := cfg.Telemetry

	tracer, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           tc.Enabled,
		CollectorEndpoint: tc.CollectorEndpoint,
		SamplingRatio:     tc.SamplingRatio,
		ServiceName:       tc.ServiceName,
		Insecure:          tc.Insecure,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("tracer provider: %w", err)
	}

	meters, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           tc.MetricsEnabled,
		CollectorEndpoint: tc.CollectorEndpoint,
		ExportInterval:    tc.MetricsInterval,
		ServiceName:       tc.ServiceName,
		Insecure:          tc.Insecure,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("meter provider: %w", err)
	}

	logs, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           tc.LogsEnabled,
		CollectorEndpoint: tc.CollectorEndpoint,
		ServiceName:       tc.ServiceName,
		Insecure:          tc.Insecure,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("logger provider: %w", err)
	}

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           tc.ProfilingEnabled,
		ServerAddress:     tc.PyroscopeAddress,
		ApplicationName:   tc.ServiceName,
		ProfileGoroutines: true,
		ProfileAllocs:     true,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("profiler: %w", err)
	}
	if profiler.IsEnabled() && tracer.IsEnabled() {
		tracer.EnableSpanProfiles()
	}

	return &telemetryStack{
		tracer:   tracer,
		meters:   meters,
		logs:     logs,
		profiler: profiler,
		meter:    meters.Meter("fiado.credit"),
	}, nil
}

func (t *telemetryStack) shutdown(ctx context.Context, log *zap.Logger) {
	if err := t.profiler.Stop(); err != nil {
		log.Error("Error stopping profiler", zap.Error(err))
	}
	if err := t.tracer.Shutdown(ctx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	if err := t.meters.Shutdown(ctx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := t.logs.Shutdown(ctx); err != nil {
		log.Error("Error shutting down logger provider", zap.Error(err))
	}
}

// creditStore is the configured backing store plus its lifecycle hooks
type creditStore struct {
	store credit.Store
	ping  func(ctx context.Context) error
	close func()
}

func openStore(cfg *config.Config, log *zap.Logger) (*creditStore, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverREST:
		client, err := remotestore.NewClient(remotestore.Config{
			BaseURL: cfg.RemoteStore.BaseURL,
			APIKey:  cfg.RemoteStore.APIKey,
			Timeout: cfg.RemoteStore.Timeout,
		})
		if err != nil {
			return nil, err
		}
		log.Info("Using remote credit store", zap.String("base_url", cfg.RemoteStore.BaseURL))
		return &creditStore{store: remotestore.NewStore(client), close: func() {}}, nil

	case config.StoreDriverSQLite, config.StoreDriverPostgres:
		gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
			logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		)

		var (
			db     *persistence.Database
			err    error
			dbName string
		)
		if cfg.Store.Driver == config.StoreDriverSQLite {
			db, err = persistence.NewSQLiteDatabase(cfg.Store.SQLitePath, gormLog)
			dbName = cfg.Store.SQLitePath
		} else {
			db, err = persistence.NewDatabase(&cfg.Database, gormLog)
			dbName = cfg.Database.DBName
		}
		if err != nil {
			return nil, err
		}

		if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
			Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
			DBName:          dbName,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		}, log); err != nil {
			log.Warn("Database tracing disabled", zap.Error(err))
		}

		// sqlite has no migration files of its own
		if cfg.Store.AutoMigrate || cfg.Store.Driver == config.StoreDriverSQLite {
			if err := persistence.AutoMigrate(db.DB); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("auto migrate: %w", err)
			}
		}

		log.Info("Database connected", zap.String("driver", db.Driver), zap.String("database", dbName))
		return &creditStore{
			store: persistence.NewGormStore(db.DB),
			ping:  db.PingContext,
			close: func() {
				if err := db.Close(); err != nil {
					log.Error("Error closing database", zap.Error(err))
				}
			},
		}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
