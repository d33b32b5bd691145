// Package etl cleans raw customer and product batches into canonical tables.
package etl

import (
	"time"

	"github.com/erp/unify/internal/domain/normalize"
	"github.com/erp/unify/internal/domain/vocab"
	"go.uber.org/zap"
)

// Clock returns the pipeline timestamp
type Clock func() time.Time

// Deps are the collaborators shared by the entity cleaners.
// Zero fields fall back to defaults.
type Deps struct {
	Normalizer *normalize.Normalizer
	Vocabulary *vocab.Vocabulary
	Clock      Clock
	Logger     *zap.Logger
}

// WithDefaults fills zero fields with the package defaults
func (d Deps) WithDefaults() Deps {
	if d.Normalizer == nil {
		d.Normalizer = normalize.New()
	}
	if d.Vocabulary == nil {
		d.Vocabulary = vocab.Default()
	}
	if d.Clock == nil {
		d.Clock = func() time.Time { return time.Now().UTC() }
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return d
}

// logColumns reports target fields without a source column once per batch,
// and columns nothing reads
func logColumns(log *zap.Logger, entity string, columns []string, fields []Field) {
	report := Inspect(columns, fields)
	for _, target := range report.MissingTargets {
		log.Warn("target field has no source column, filled with default",
			zap.String("entity", entity),
			zap.String("field", target),
		)
	}
	if len(report.UnknownColumns) > 0 {
		log.Info("ignoring unmapped source columns",
			zap.String("entity", entity),
			zap.Strings("columns", report.UnknownColumns),
		)
	}
}
