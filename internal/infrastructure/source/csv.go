package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/erp/unify/internal/domain/batch"
)

// readerOptions configure CSV and JSON readers
type readerOptions struct {
	delimiter  rune
	lazyQuotes bool
	legacy     bool
}

// ReaderOption is a functional option for CSVReader and JSONReader
type ReaderOption func(*readerOptions)

// WithDelimiter fixes the field delimiter instead of sniffing it
func WithDelimiter(d rune) ReaderOption {
	return func(o *readerOptions) {
		o.delimiter = d
	}
}

// WithLazyQuotes toggles lenient quote handling (default on)
func WithLazyQuotes(lazy bool) ReaderOption {
	return func(o *readerOptions) {
		o.lazyQuotes = lazy
	}
}

// WithLegacyEncoding decodes non-UTF-8 input as Windows-1252 instead of failing
func WithLegacyEncoding(enabled bool) ReaderOption {
	return func(o *readerOptions) {
		o.legacy = enabled
	}
}

func newReaderOptions(opts []ReaderOption) readerOptions {
	o := readerOptions{lazyQuotes: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// CSVReader reads a delimited export with a header row
type CSVReader struct {
	reader     *csv.Reader
	delimiter  rune
	encoding   string
	headers    []string
	currentRow int
	totalRows  int
}

// NewCSVReader prepares a reader. Empty input returns ErrEmptyFile.
func NewCSVReader(r io.Reader, opts ...ReaderOption) (*CSVReader, error) {
	o := newReaderOptions(opts)
	c, err := prepare(r, o.legacy)
	if err != nil {
		return nil, err
	}
	delim := o.delimiter
	if delim == 0 {
		delim = sniffDelimiter(c.head)
	}

	reader := csv.NewReader(c.reader)
	reader.Comma = delim
	reader.LazyQuotes = o.lazyQuotes
	reader.FieldsPerRecord = -1

	return &CSVReader{reader: reader, delimiter: delim, encoding: c.encoding}, nil
}

// ParseHeader reads the header row. Blank names become "Unnamed: N" and
// repeated names get a ".N" suffix.
func (p *CSVReader) ParseHeader() error {
	record, err := p.reader.Read()
	if err == io.EOF {
		return ErrMissingHeader
	}
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}

	seen := make(map[string]int, len(record))
	p.headers = make([]string, len(record))
	for i, h := range record {
		name := strings.TrimSpace(h)
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = name + "." + strconv.Itoa(n+1)
		}
		seen[name] = 0
		p.headers[i] = name
	}
	if len(p.headers) == 0 {
		return ErrMissingHeader
	}
	p.currentRow = 1
	return nil
}

// Headers returns the parsed header names
func (p *CSVReader) Headers() []string {
	return p.headers
}

// Delimiter returns the delimiter in use
func (p *CSVReader) Delimiter() rune {
	return p.delimiter
}

// Encoding returns the detected encoding
func (p *CSVReader) Encoding() string {
	return p.encoding
}

// CurrentRow is the 1-indexed row last read, the header being row 1
func (p *CSVReader) CurrentRow() int {
	return p.currentRow
}

// TotalRows is the number of data rows read
func (p *CSVReader) TotalRows() int {
	return p.totalRows
}

// ReadRow reads the next data row. Empty cells and cells missing from a
// short row are NA. extra reports fields beyond the header.
func (p *CSVReader) ReadRow() (row batch.Row, extra int, err error) {
	record, err := p.reader.Read()
	if err == io.EOF {
		return nil, 0, io.EOF
	}
	p.currentRow++
	if err != nil {
		return nil, 0, fmt.Errorf("error reading row %d: %w", p.currentRow, err)
	}
	p.totalRows++

	row = make(batch.Row, len(p.headers))
	for i, h := range p.headers {
		if i >= len(record) || record[i] == "" {
			row[h] = nil
			continue
		}
		row[h] = strings.ToValidUTF8(record[i], "�")
	}
	if len(record) > len(p.headers) {
		extra = len(record) - len(p.headers)
	}
	return row, extra, nil
}

// ReadAll reads the header and every row into a batch. Unparsable rows are
// skipped and recorded in errs when it is not nil.
func (p *CSVReader) ReadAll(source string, errs *RowErrorCollection) (*batch.Batch, error) {
	if p.headers == nil {
		if err := p.ParseHeader(); err != nil {
			return nil, err
		}
	}
	var rows []batch.Row
	for {
		row, extra, err := p.ReadRow()
		if err == io.EOF {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			if errs != nil {
				errs.Add(p.currentRow, ErrCodeMalformedRow, parseErr.Err.Error())
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		if extra > 0 && errs != nil {
			errs.Add(p.currentRow, ErrCodeExtraFields, fmt.Sprintf("%d field(s) beyond the header ignored", extra))
		}
		rows = append(rows, row)
	}
	return batch.New(source, p.headers, rows), nil
}
