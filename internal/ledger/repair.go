package ledger

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// legacyPrefixes mark lines from the old free-text history format that a
// repair pass discards outright.
var legacyPrefixes = []string{"======", "Config:", "Action:", "Key:", "User:", "Changes:"}

// Repair rewrites the ledger as a canonical header plus only the records
// that still decode cleanly. The original bytes are copied to a timestamped
// backup first, so nothing is lost even when repair drops lines.
//
// Repair is strictly conservative: a line that is blank, matches a legacy
// marker, or decodes to fewer than the six required fields is dropped, never
// guessed at. Losing an ambiguous audit line beats fabricating a wrong one.
func (l *Ledger) Repair() error {
	raw, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read ledger for repair: %w", err)
	}

	backup := l.path + ".backup_" + l.clock.Now().Format("20060102150405")
	if err := os.WriteFile(backup, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write ledger backup %s: %w", backup, err)
	}
	l.log.Info("ledger backup created", "path", backup)

	var entries []Entry
	dropped := 0
	scanner := bufio.NewScanner(strings.NewReader(string(raw)))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if skipLine(line) {
			dropped++
			continue
		}
		e, ok := entryFromFields(splitLine(line))
		if !ok {
			dropped++
			l.log.Debug("dropping unparseable ledger line", "line", truncate(line, 50))
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to scan ledger: %w", err)
	}

	if err := l.rewrite(entries); err != nil {
		return err
	}
	l.log.Info("ledger repaired", "entries", len(entries), "dropped", dropped)
	return nil
}

// skipLine reports whether a raw line is known not to be a record: blank
// lines, the header itself, and markers from the legacy free-text format.
func skipLine(line string) bool {
	if strings.TrimSpace(line) == "" {
		return true
	}
	for _, p := range legacyPrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	if strings.Contains(line, "=>") {
		return true
	}
	if strings.HasPrefix(strings.TrimSpace(line), "Operations:") {
		return true
	}
	return strings.HasPrefix(line, headerPrefix)
}

// rewrite replaces the ledger with a canonical header + records file,
// atomically via temp and rename.
func (l *Ledger) rewrite(entries []Entry) error {
	dir := filepath.Dir(l.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(l.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp ledger: %w", err)
	}
	tmpPath := tmp.Name()

	w := csv.NewWriter(tmp)
	writeErr := w.Write(header)
	if writeErr == nil {
		for i := range entries {
			if writeErr = w.Write(entries[i].record()); writeErr != nil {
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
		return fmt.Errorf("failed to write repaired ledger: %w", writeErr)
	}
	if err := os.Rename(tmpPath, l.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace ledger: %w", err)
	}
	return nil
}

// splitLine is a tolerant single-line CSV field splitter: quoted fields,
// embedded commas, doubled quotes. Unlike encoding/csv it never fails; it
// just produces whatever fields the line contains, and the caller decides
// whether enough survived.
func splitLine(line string) []string {
	var fields []string
	var cur strings.Builder
	inQuotes := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			if inQuotes && i+1 < len(line) && line[i+1] == '"' {
				cur.WriteByte('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case c == ',' && !inQuotes:
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	fields = append(fields, cur.String())
	return fields
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
