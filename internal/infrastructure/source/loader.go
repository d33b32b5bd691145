package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/erp/unify/internal/domain/batch"
	"github.com/erp/unify/internal/domain/shared"
	"github.com/erp/unify/internal/infrastructure/storage"
	"go.uber.org/zap"
)

// Format is a raw file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// DetectFormat derives the format from the file extension
func DetectFormat(p string) (Format, error) {
	switch strings.ToLower(path.Ext(p)) {
	case ".csv", ".tsv", ".txt":
		return FormatCSV, nil
	case ".json", ".jsonl", ".ndjson":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, path.Ext(p))
}

// SourceName is the file name recorded on loaded rows
func SourceName(p string) string {
	if storage.IsRemote(p) {
		return path.Base(p)
	}
	return filepath.Base(p)
}

// RemoteOpener opens object storage paths
type RemoteOpener interface {
	Open(ctx context.Context, uri string) (io.ReadCloser, int64, error)
}

// Loader turns raw files into batches
type Loader struct {
	remote       RemoteOpener
	logger       *zap.Logger
	legacy       bool
	maxRowErrors int
}

// LoaderOption configures a Loader
type LoaderOption func(*Loader)

// WithRemote enables s3:// paths
func WithRemote(r RemoteOpener) LoaderOption {
	return func(l *Loader) {
		l.remote = r
	}
}

// WithLogger sets the loader logger
func WithLogger(logger *zap.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// WithLegacyFallback toggles Windows-1252 decoding of non-UTF-8 files (default on)
func WithLegacyFallback(enabled bool) LoaderOption {
	return func(l *Loader) {
		l.legacy = enabled
	}
}

// WithMaxRowErrors bounds the row errors kept per file
func WithMaxRowErrors(n int) LoaderOption {
	return func(l *Loader) {
		l.maxRowErrors = n
	}
}

// NewLoader creates a loader for local files
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		logger:       zap.NewNop(),
		legacy:       true,
		maxRowErrors: DefaultMaxRowErrors,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// open returns the file body and its size. A missing file wraps shared.ErrNotFound.
func (l *Loader) open(ctx context.Context, p string) (io.ReadCloser, int64, error) {
	if storage.IsRemote(p) {
		if l.remote == nil {
			return nil, 0, fmt.Errorf("object storage is not configured for %s", p)
		}
		return l.remote.Open(ctx, p)
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, 0, fmt.Errorf("%s: %w", p, shared.ErrNotFound)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open %s: %w", p, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("failed to stat %s: %w", p, err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, 0, fmt.Errorf("%s is a directory: %w", p, ErrUnsupportedFormat)
	}
	return f, info.Size(), nil
}

// parsed is a decoded file plus what was detected while reading it
type parsed struct {
	batch     *batch.Batch
	format    Format
	encoding  string
	delimiter rune
	errs      *RowErrorCollection
}

func (l *Loader) parse(r io.Reader, p string, format Format) (*parsed, error) {
	opts := []ReaderOption{WithLegacyEncoding(l.legacy)}
	if strings.EqualFold(path.Ext(p), ".tsv") {
		opts = append(opts, WithDelimiter('\t'))
	}
	out := &parsed{format: format, errs: NewRowErrorCollection(l.maxRowErrors)}
	name := SourceName(p)
	switch format {
	case FormatCSV:
		cr, err := NewCSVReader(r, opts...)
		if err != nil {
			return nil, err
		}
		b, err := cr.ReadAll(name, out.errs)
		if err != nil {
			return nil, err
		}
		out.batch, out.encoding, out.delimiter = b, cr.Encoding(), cr.Delimiter()
	case FormatJSON:
		jr, err := NewJSONReader(r, opts...)
		if err != nil {
			return nil, err
		}
		b, err := jr.ReadAll(name, out.errs)
		if err != nil {
			return nil, err
		}
		out.batch, out.encoding = b, jr.Encoding()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return out, nil
}

// Load reads a local path or s3:// URI into a batch named after the file
func (l *Loader) Load(ctx context.Context, p string) (*batch.Batch, error) {
	format, err := DetectFormat(p)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, _, err := l.open(ctx, p)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	out, err := l.parse(body, p, format)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", p, err)
	}
	log := l.logger.With(zap.String("source_file", out.batch.Source))
	if out.errs.HasErrors() {
		log.Warn("skipped or trimmed malformed rows",
			zap.Int("count", out.errs.TotalCount()),
			zap.Any("by_code", out.errs.Summary()),
			zap.String("cause", "malformed_row"),
		)
	}
	log.Info("raw batch loaded",
		zap.String("format", string(out.format)),
		zap.String("encoding", out.encoding),
		zap.Int("rows", out.batch.Len()),
		zap.Int("columns", len(out.batch.Columns)),
	)
	return out.batch, nil
}
