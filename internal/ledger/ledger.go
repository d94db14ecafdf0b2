package ledger

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tabshare/tabshare/internal/identity"
)

// Ledger appends to and reads one shared audit file.
//
// Append opens the file in append mode per call rather than holding it open,
// so concurrent mutations against different resources can append without
// coordinating (each append is a single short write).
type Ledger struct {
	path  string
	clock identity.Clock
	log   *slog.Logger
}

// New creates a Ledger for the file at path. The file is created lazily on
// first append.
func New(path string, clock identity.Clock, log *slog.Logger) *Ledger {
	if log == nil {
		log = slog.Default()
	}
	return &Ledger{path: path, clock: clock, log: log}
}

// Path returns the ledger file location.
func (l *Ledger) Path() string {
	return l.path
}

// Append writes one entry. The header is written first if the file does not
// exist yet. Prior bytes are never rewritten.
func (l *Ledger) Append(e Entry) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create ledger directory: %w", err)
	}

	writeHeader := false
	if info, err := os.Stat(l.path); os.IsNotExist(err) || (err == nil && info.Size() == 0) {
		writeHeader = true
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open ledger for append: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("failed to write ledger header: %w", err)
		}
	}
	if err := w.Write(e.record()); err != nil {
		return fmt.Errorf("failed to write ledger entry: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush ledger entry: %w", err)
	}
	return nil
}

func (e *Entry) record() []string {
	return []string{e.Timestamp, e.UserID, e.ConfigFile, e.Operation, e.RowKey, e.ChangeSummary, e.OldValues, e.NewValues}
}

// Entries reads every record in ledger order. Individual malformed records
// are skipped and logged rather than aborting the read. If the file's head
// does not look like a well-formed ledger (leftovers from the legacy
// free-text format), a repair pass runs first.
func (l *Ledger) Entries() ([]Entry, error) {
	repair, err := l.needsRepair()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	if repair {
		l.log.Warn("ledger looks corrupted, repairing before read", "path", l.path)
		if err := l.Repair(); err != nil {
			return nil, err
		}
	}

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open ledger %s: %w", l.path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var entries []Entry
	first := true
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Skip the bad record, keep the rest.
			l.log.Warn("skipping malformed ledger record", "path", l.path, "err", err)
			continue
		}
		if first {
			first = false
			if len(rec) > 0 && rec[0] == header[0] {
				continue
			}
		}
		e, ok := entryFromFields(rec)
		if !ok {
			l.log.Warn("skipping short ledger record", "path", l.path, "fields", len(rec))
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// entryFromFields builds an entry from a decoded record. At least the six
// descriptive fields must be present; the snapshot blobs default to empty.
func entryFromFields(fields []string) (Entry, bool) {
	if len(fields) < 6 {
		return Entry{}, false
	}
	e := Entry{
		Timestamp:     fields[0],
		UserID:        fields[1],
		ConfigFile:    fields[2],
		Operation:     fields[3],
		RowKey:        fields[4],
		ChangeSummary: fields[5],
	}
	if len(fields) > 6 {
		e.OldValues = fields[6]
	}
	if len(fields) > 7 {
		e.NewValues = fields[7]
	}
	return e, true
}

// needsRepair inspects the first line. A missing file needs nothing; a file
// whose first line is not the canonical header and looks like the legacy
// free-text format (section banners, "Config:" prefixes, no commas at all)
// needs a repair pass.
func (l *Ledger) needsRepair() (bool, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return false, err
	}
	defer func() {
		_ = f.Close()
	}()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return false, scanner.Err()
	}
	first := scanner.Text()
	if strings.HasPrefix(first, headerPrefix) {
		return false, nil
	}
	if strings.HasPrefix(first, "======") || strings.HasPrefix(first, "Config:") || !strings.Contains(first, ",") {
		return true, nil
	}
	return false, nil
}
