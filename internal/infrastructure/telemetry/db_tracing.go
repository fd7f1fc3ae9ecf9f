package telemetry

import (
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds database tracing settings
type DBTracingConfig struct {
	Enabled    bool
	LogFullSQL bool   // keep bound variables in span statements
	DBSystem   string // reported db.system, "postgresql" by default
}

// RegisterDBTracing installs the otelgorm plugin so every repository query
// becomes a child span of the request span carried in its context.
func RegisterDBTracing(db *gorm.DB, tp *TracerProvider, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled || !tp.Enabled() {
		logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	system := cfg.DBSystem
	if system == "" {
		system = "postgresql"
	}
	opts := []otelgorm.Option{
		otelgorm.WithTracerProvider(tp.Provider()),
		otelgorm.WithDBName(system),
	}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}

	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}
	logger.Info("Database tracing enabled",
		zap.String("db_system", system),
		zap.Bool("log_full_sql", cfg.LogFullSQL),
	)
	return nil
}
