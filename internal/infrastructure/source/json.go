package source

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/erp/unify/internal/domain/batch"
)

var errNotObject = errors.New("record is not a JSON object")

// JSONReader reads an array of records, JSON lines, or a column-oriented
// object ({"col": [...]} or {"col": {"0": ...}})
type JSONReader struct {
	data     []byte
	encoding string
}

// NewJSONReader buffers the input. Empty input returns ErrEmptyFile.
func NewJSONReader(r io.Reader, opts ...ReaderOption) (*JSONReader, error) {
	o := newReaderOptions(opts)
	c, err := prepare(r, o.legacy)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(c.reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return &JSONReader{data: bytes.TrimSpace(data), encoding: c.encoding}, nil
}

// Encoding returns the detected encoding
func (j *JSONReader) Encoding() string {
	return j.encoding
}

// ReadAll decodes the document into a batch. Records that are not objects
// are skipped and recorded in errs when it is not nil.
func (j *JSONReader) ReadAll(source string, errs *RowErrorCollection) (*batch.Batch, error) {
	if errs == nil {
		errs = NewRowErrorCollection(0)
	}
	acc := newRecordAccumulator()
	var err error
	switch {
	case len(j.data) == 0:
		return nil, ErrEmptyFile
	case j.data[0] == '[':
		err = j.readArray(acc, errs)
	case j.data[0] == '{':
		if single, ok := j.singleValue(); ok {
			err = j.readObject(single, acc)
		} else {
			err = j.readLines(acc, errs)
		}
	default:
		return nil, fmt.Errorf("%w: top-level JSON value must be an array or an object", ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, err
	}
	return batch.New(source, acc.columns, acc.rows), nil
}

func (j *JSONReader) readArray(acc *recordAccumulator, errs *RowErrorCollection) error {
	dec := json.NewDecoder(bytes.NewReader(j.data))
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("malformed JSON array: %w", err)
	}
	for i := 1; dec.More(); i++ {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("malformed JSON array at record %d: %w", i, err)
		}
		if err := acc.addRecord(raw); err != nil {
			errs.Add(i, ErrCodeMalformedRecord, err.Error())
		}
	}
	return nil
}

// singleValue reports whether the document holds exactly one JSON value
func (j *JSONReader) singleValue() (json.RawMessage, bool) {
	dec := json.NewDecoder(bytes.NewReader(j.data))
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, false
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, false
	}
	return raw, true
}

// readLines decodes one record per non-blank line
func (j *JSONReader) readLines(acc *recordAccumulator, errs *RowErrorCollection) error {
	scanner := bufio.NewScanner(bytes.NewReader(j.data))
	scanner.Buffer(make([]byte, 0, 64*1024), len(j.data)+1)
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		if !json.Valid(text) {
			errs.Add(line, ErrCodeMalformedRecord, "invalid JSON")
			continue
		}
		if err := acc.addRecord(text); err != nil {
			errs.Add(line, ErrCodeMalformedRecord, err.Error())
		}
	}
	return scanner.Err()
}

// readObject handles the column-oriented shapes. An object of scalars is a
// single record.
func (j *JSONReader) readObject(raw json.RawMessage, acc *recordAccumulator) error {
	keys, values, err := decodeOrdered(raw)
	if err != nil {
		return fmt.Errorf("malformed JSON object: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	switch {
	case allKind(values, '['):
		return readColumnLists(keys, values, acc)
	case allKind(values, '{'):
		return readColumnIndexes(keys, values, acc)
	}
	return acc.addRecord(raw)
}

func readColumnLists(keys []string, values map[string]json.RawMessage, acc *recordAccumulator) error {
	cols := make(map[string][]json.RawMessage, len(keys))
	n := 0
	for _, k := range keys {
		var cells []json.RawMessage
		if err := json.Unmarshal(values[k], &cells); err != nil {
			return fmt.Errorf("malformed column %q: %w", k, err)
		}
		cols[k] = cells
		n = max(n, len(cells))
	}
	acc.addColumns(keys)
	for i := range n {
		row := make(batch.Row, len(keys))
		for _, k := range keys {
			if i < len(cols[k]) {
				row[k] = scalar(cols[k][i])
			} else {
				row[k] = nil
			}
		}
		acc.rows = append(acc.rows, row)
	}
	return nil
}

func readColumnIndexes(keys []string, values map[string]json.RawMessage, acc *recordAccumulator) error {
	cols := make(map[string]map[string]json.RawMessage, len(keys))
	var index []string
	seen := make(map[string]struct{})
	for _, k := range keys {
		idx, cells, err := decodeOrdered(values[k])
		if err != nil {
			return fmt.Errorf("malformed column %q: %w", k, err)
		}
		cols[k] = cells
		for _, i := range idx {
			if _, ok := seen[i]; !ok {
				seen[i] = struct{}{}
				index = append(index, i)
			}
		}
	}
	sortIndex(index)
	acc.addColumns(keys)
	for _, i := range index {
		row := make(batch.Row, len(keys))
		for _, k := range keys {
			if cell, ok := cols[k][i]; ok {
				row[k] = scalar(cell)
			} else {
				row[k] = nil
			}
		}
		acc.rows = append(acc.rows, row)
	}
	return nil
}

// sortIndex orders numeric index labels numerically and leaves others as found
func sortIndex(index []string) {
	for _, i := range index {
		if _, err := strconv.Atoi(i); err != nil {
			return
		}
	}
	slices.SortStableFunc(index, func(a, b string) int {
		x, _ := strconv.Atoi(a)
		y, _ := strconv.Atoi(b)
		return x - y
	})
}

func allKind(values map[string]json.RawMessage, open byte) bool {
	for _, v := range values {
		v = bytes.TrimSpace(v)
		if len(v) == 0 || v[0] != open {
			return false
		}
	}
	return true
}

// recordAccumulator collects rows and the union of their keys in first-seen order
type recordAccumulator struct {
	columns []string
	seen    map[string]struct{}
	rows    []batch.Row
}

func newRecordAccumulator() *recordAccumulator {
	return &recordAccumulator{seen: make(map[string]struct{})}
}

func (a *recordAccumulator) addColumns(keys []string) {
	for _, k := range keys {
		if _, ok := a.seen[k]; !ok {
			a.seen[k] = struct{}{}
			a.columns = append(a.columns, k)
		}
	}
}

func (a *recordAccumulator) addRecord(raw json.RawMessage) error {
	keys, values, err := decodeOrdered(raw)
	if err != nil {
		return err
	}
	a.addColumns(keys)
	row := make(batch.Row, len(keys))
	for _, k := range keys {
		row[k] = scalar(values[k])
	}
	a.rows = append(a.rows, row)
	return nil
}

// decodeOrdered decodes an object keeping its key order. A repeated key keeps
// the last value.
func decodeOrdered(raw json.RawMessage) ([]string, map[string]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, errNotObject
	}
	var keys []string
	values := make(map[string]json.RawMessage)
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, _ := kt.(string)
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, nil, err
		}
		if _, dup := values[key]; !dup {
			keys = append(keys, key)
		}
		values[key] = v
	}
	return keys, values, nil
}

// scalar converts a JSON value to a raw cell: null is NA, integral numbers
// are int64, other numbers float64, nested values their compact JSON text
func scalar(raw json.RawMessage) any {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	switch raw[0] {
	case 'n':
		return nil
	case 't', 'f':
		return raw[0] == 't'
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return string(raw)
		}
		return strings.ToValidUTF8(s, "�")
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return string(raw)
		}
		return buf.String()
	}
	num := json.Number(raw)
	if i, err := num.Int64(); err == nil {
		return i
	}
	if f, err := num.Float64(); err == nil {
		return f
	}
	return string(raw)
}
