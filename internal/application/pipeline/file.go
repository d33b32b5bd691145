package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/erp/unify/internal/domain/batch"
	"github.com/erp/unify/internal/domain/commerce"
	"github.com/erp/unify/internal/domain/shared"
	"github.com/erp/unify/internal/infrastructure/logger"
	"github.com/erp/unify/internal/infrastructure/source"
	"github.com/erp/unify/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNoData marks a file run that produced nothing to store
var ErrNoData = fmt.Errorf("no data: %w", shared.ErrInvalidInput)

// RegisterFile profiles the file at path and records it in the registry as
// raw_uploaded. A path that is already registered is re-profiled in place.
// An empty guess falls back to the known file names.
func (r *Runner) RegisterFile(ctx context.Context, path string, guess commerce.EntityType) (*commerce.SourceFile, error) {
	if path == "" {
		return nil, fmt.Errorf("file path is required: %w", shared.ErrInvalidInput)
	}
	name := source.SourceName(path)
	if guess != "" && !guess.IsKnown() {
		return nil, fmt.Errorf("entity type %q: %w", guess, shared.ErrUnknownEntityType)
	}
	if guess == "" {
		guess = commerce.KnownSources[name]
	}

	ctx = logger.WithSourceFile(ctx, name)
	log := logger.Enrich(ctx, r.logger)
	prof, err := r.loader.Profile(ctx, path)
	if err != nil {
		log.Error("failed to profile raw file", zap.Error(err))
		return nil, err
	}
	if err := r.store.CreateSchema(ctx); err != nil {
		return nil, err
	}

	now := r.deps.Clock()
	f := &commerce.SourceFile{
		FileName:              name,
		FilePath:              path,
		UploadTimestamp:       now,
		ProcessingStatus:      commerce.StatusRawUploaded,
		FileSizeBytes:         ptr(prof.SizeBytes),
		RowCount:              ptr(int64(prof.Rows)),
		ColCount:              ptr(int64(prof.Columns)),
		LastProfiledTimestamp: &now,
	}
	if guess != "" {
		f.EntityTypeGuess = &guess
	}
	if prof.Delimiter != "" {
		f.DelimiterGuess = &prof.Delimiter
	}
	if prof.Encoding != "" {
		f.EncodingGuess = &prof.Encoding
	}
	if err := r.files.Save(ctx, f); err != nil {
		return nil, err
	}
	log.Info("source file registered",
		zap.Int64("file_id", f.ID),
		zap.String("entity_guess", string(guess)),
		zap.Int("rows", prof.Rows),
		zap.Bool("empty", prof.Empty),
	)
	return f, nil
}

// ListFiles lists the registry
func (r *Runner) ListFiles(ctx context.Context, filter commerce.FileFilter) ([]commerce.SourceFile, error) {
	return r.files.List(ctx, filter)
}

// File returns one registry row
func (r *Runner) File(ctx context.Context, id int64) (*commerce.SourceFile, error) {
	return r.files.FindByID(ctx, id)
}

// RunFile processes one registered file against the ids already in the
// store and records the outcome on its registry row. override, when set,
// replaces the registered entity guess.
//
// A processing failure returns the recorded result together with the error.
func (r *Runner) RunFile(ctx context.Context, fileID int64, override commerce.EntityType) (res *FileResult, err error) {
	f, err := r.files.FindByID(ctx, fileID)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	ctx = logger.WithSourceFile(logger.WithRunID(ctx, runID), f.FileName)
	ctx, span := telemetry.StartSpan(ctx, "pipeline.file",
		telemetry.AttrRunID.String(runID),
		telemetry.AttrSourceFile.String(f.FileName),
	)
	defer func() {
		r.metrics.RunDone(ctx, KindFile, err)
		telemetry.EndSpan(span, &err)
	}()
	log := logger.Enrich(ctx, r.logger).With(zap.Int64("file_id", f.ID))

	entity := override
	if entity == "" && f.EntityTypeGuess != nil {
		entity = *f.EntityTypeGuess
	}
	res = &FileResult{FileID: f.ID, FileName: f.FileName}
	if entity == "" || !entity.IsKnown() {
		msg := "entity type not specified for file " + strconv.FormatInt(f.ID, 10)
		if entity != "" {
			msg = fmt.Sprintf("no pipeline for entity type %q", entity)
		}
		log.Error("cannot process source file", zap.String("cause", "entity_unknown"), zap.String("entity", string(entity)))
		return r.finish(ctx, f, res, commerce.StatusErrorEntityUnknown, uuid.Nil,
			fmt.Errorf("%s: %w", msg, shared.ErrUnknownEntityType))
	}
	entity = entity.Resolve(f.FileName)
	res.Entity = entity
	span.SetAttributes(telemetry.AttrEntity.String(string(entity)))

	release, err := r.acquire(ctx, log)
	if err != nil {
		return nil, err
	}
	defer release()

	log.Info("processing source file", zap.String("entity", string(entity)))
	batchID, procErr := r.process(ctx, f, entity, res)
	if procErr != nil {
		log.Error("source file processing failed", zap.Error(procErr))
		return r.finish(ctx, f, res, commerce.StatusErrorProcessing, uuid.Nil, procErr)
	}
	return r.finish(ctx, f, res, commerce.StatusProcessed, batchID, nil)
}

// process loads, cleans and stores one file. It returns the token of the
// loaded batch.
func (r *Runner) process(ctx context.Context, f *commerce.SourceFile, entity commerce.EntityType, res *FileResult) (uuid.UUID, error) {
	b, err := r.loader.Load(ctx, f.FilePath)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to read %s: %w", f.FileName, err)
	}
	if b.IsEmpty() {
		return uuid.Nil, fmt.Errorf("raw data empty: %w", ErrNoData)
	}
	if err := r.stage(ctx, "schema", r.store.CreateSchema); err != nil {
		return uuid.Nil, err
	}
	rep := &SourceReport{Name: f.FileName, Entity: entity, RowsIn: b.Len()}
	res.Source = rep

	switch entity {
	case commerce.EntityCustomer:
		table, err := r.customers(ctx, b, f.FileName)
		if err != nil {
			return uuid.Nil, err
		}
		rep.RowsOut, rep.Dropped = len(table.Rows), table.Dropped
		res.Message = fmt.Sprintf("loaded %d customers", len(table.Rows))
	case commerce.EntityProduct:
		table, err := r.products(ctx, b, f.FileName)
		if err != nil {
			return uuid.Nil, err
		}
		rep.RowsOut, rep.Dropped = len(table.Rows), table.Dropped
		res.Message = fmt.Sprintf("loaded %d products", len(table.Rows))
	default:
		if err := r.processOrders(ctx, b, f.FileName, entity, res); err != nil {
			return uuid.Nil, err
		}
	}
	if rep.RowsOut == 0 {
		return uuid.Nil, fmt.Errorf("etl resulted in empty data: %w", ErrNoData)
	}
	return batchToken(b), nil
}

func (r *Runner) processOrders(ctx context.Context, b *batch.Batch, name string, entity commerce.EntityType, res *FileResult) error {
	known, err := r.knownIDs(ctx)
	if err != nil {
		return err
	}
	items, err := r.orderItems(ctx, entity, b, name, known)
	if err != nil {
		return err
	}
	res.Source.RowsOut, res.Source.Dropped = items.Stats.Resolved, items.Stats.Dropped()
	if len(items.Items) == 0 {
		return nil
	}
	agg, err := r.orders(ctx, known.Customers, items.Items)
	if err != nil {
		return err
	}
	res.Orders, res.OrderItems = len(agg.Orders), len(agg.Items)
	res.Message = fmt.Sprintf("loaded %d orders, %d items", len(agg.Orders), len(agg.Items))
	return nil
}

// finish records status on the registry row. A registry failure is logged
// and joined to cause.
func (r *Runner) finish(ctx context.Context, f *commerce.SourceFile, res *FileResult, status commerce.ProcessingStatus, batchID uuid.UUID, cause error) (*FileResult, error) {
	now := r.deps.Clock()
	if cause == nil {
		f.MarkProcessed(batchID, now)
		res.BatchID = &batchID
	} else {
		f.MarkFailed(status, cause.Error(), now)
		res.Message = *f.ErrorMessage
	}
	res.Status = f.ProcessingStatus

	if err := r.files.Save(context.WithoutCancel(ctx), f); err != nil {
		logger.Enrich(ctx, r.logger).Error("failed to update source file status",
			zap.Int64("file_id", f.ID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
		return res, errors.Join(cause, fmt.Errorf("failed to update source file %d: %w", f.ID, err))
	}
	return res, cause
}

func batchToken(b *batch.Batch) uuid.UUID {
	id, err := uuid.Parse(b.Token)
	if err != nil {
		return uuid.New()
	}
	return id
}

func ptr[T any](v T) *T { return &v }
