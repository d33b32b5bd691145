package telemetry

import (
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig controls statement spans
type DBTracingConfig struct {
	Enabled    bool
	LogFullSQL bool // include bound variables in db.statement
	DBName     string
}

// RegisterDBTracing installs the otelgorm plugin so every statement runs in
// a child span of the caller's context
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		return nil
	}
	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBName)}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}
	logger.Info("database tracing enabled", zap.Bool("log_full_sql", cfg.LogFullSQL))
	return nil
}
