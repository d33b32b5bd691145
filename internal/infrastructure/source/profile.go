package source

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Profile summarises a raw file for the source registry
type Profile struct {
	Path      string `json:"path"`
	FileName  string `json:"file_name"`
	Format    Format `json:"format"`
	SizeBytes int64  `json:"size_bytes"`
	Rows      int    `json:"rows"`
	Columns   int    `json:"columns"`
	Delimiter string `json:"delimiter,omitempty"`
	Encoding  string `json:"encoding,omitempty"`
	Empty     bool   `json:"empty"`
	RowErrors int    `json:"row_errors"`
}

// Profile counts rows and columns and reports the detected delimiter and
// encoding. Empty files profile as Empty rather than failing.
func (l *Loader) Profile(ctx context.Context, p string) (*Profile, error) {
	format, err := DetectFormat(p)
	if err != nil {
		return nil, err
	}
	body, size, err := l.open(ctx, p)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	prof := &Profile{Path: p, FileName: SourceName(p), Format: format, SizeBytes: size}
	out, err := l.parse(body, p, format)
	if errors.Is(err, ErrEmptyFile) || errors.Is(err, ErrMissingHeader) {
		prof.Empty = true
		return prof, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to profile %s: %w", p, err)
	}

	prof.Rows = out.batch.Len()
	prof.Columns = len(out.batch.Columns)
	prof.Encoding = out.encoding
	prof.RowErrors = out.errs.TotalCount()
	if out.delimiter != 0 {
		prof.Delimiter = string(out.delimiter)
	}
	l.logger.Info("raw file profiled",
		zap.String("source_file", prof.FileName),
		zap.Int("rows", prof.Rows),
		zap.Int("columns", prof.Columns),
		zap.String("encoding", prof.Encoding),
	)
	return prof, nil
}
