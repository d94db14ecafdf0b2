package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrNotFound reports that a resource's backing file does not exist.
// Callers decide whether that is fatal or grounds for an empty view.
var ErrNotFound = errors.New("resource file not found")

// FormatError reports an unparseable resource file.
type FormatError struct {
	Path   string
	Detail string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed resource file %s: %s", e.Path, e.Detail)
}

// PersistError reports a failed write. The underlying I/O error is preserved
// verbatim for display.
type PersistError struct {
	Path string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("failed to persist %s: %v", e.Path, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

// Load reads a resource file into a table.
//
// The first record is the schema, taken verbatim. Data records shorter than
// the schema pad missing values with ""; records longer than the schema mean
// the file is corrupt and fail with a FormatError.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to open resource file %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	r := csv.NewReader(f)
	// Data rows may legitimately be shorter than the header; pad below.
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, &FormatError{Path: path, Detail: "missing header line"}
	}
	if err != nil {
		return nil, &FormatError{Path: path, Detail: err.Error()}
	}
	if len(header) == 1 && header[0] == "" {
		return nil, &FormatError{Path: path, Detail: "empty header line"}
	}

	t := NewTable(header)
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &FormatError{Path: path, Detail: err.Error()}
		}
		if len(rec) > len(header) {
			return nil, &FormatError{Path: path, Detail: fmt.Sprintf("record has %d fields, schema has %d", len(rec), len(header))}
		}
		row := make(Row, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			} else {
				row[col] = ""
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// Persist writes the table to path: header first, then one record per row
// with values in schema order. The file is written to a temp sibling and
// renamed into place so a concurrent reader never observes a partial write.
func Persist(path string, t *Table) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return &PersistError{Path: path, Err: err}
	}
	tmpPath := tmp.Name()

	w := csv.NewWriter(tmp)
	writeErr := w.Write(t.Columns)
	if writeErr == nil {
		rec := make([]string, len(t.Columns))
		for _, row := range t.Rows {
			for i, col := range t.Columns {
				rec[i] = row[col]
			}
			if writeErr = w.Write(rec); writeErr != nil {
				break
			}
		}
	}
	if writeErr == nil {
		w.Flush()
		writeErr = w.Error()
	}
	if closeErr := tmp.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		_ = os.Remove(tmpPath)
		return &PersistError{Path: path, Err: writeErr}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return &PersistError{Path: path, Err: err}
	}
	return nil
}
