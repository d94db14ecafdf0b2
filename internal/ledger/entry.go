// Package ledger is the append-only audit trail of every mutation across all
// resources: one shared CSV file, one record per add/edit/delete, with
// before/after row snapshots serialized as JSON blobs inside the record.
//
// The ledger is observational, not authoritative. Appends that fail are
// logged by the caller and never abort the mutation that already committed.
// Reads tolerate corruption: malformed records are skipped, and files that
// still carry an older free-text format are repaired in place (with a backup)
// before parsing.
package ledger

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Operation kinds recorded in the ledger.
const (
	OpAdd    = "ADD"
	OpEdit   = "EDIT"
	OpDelete = "DELETE"
)

// header is the canonical first line of the ledger file. The prefix doubles
// as the corruption sniff: a file whose first line does not start with it is
// not a well-formed ledger.
var header = []string{"Timestamp", "UserID", "ConfigFile", "Operation", "RowKey", "ChangeSummary", "OldValues", "NewValues"}

const headerPrefix = "Timestamp,UserID,ConfigFile"

// Entry is one immutable audit record. OldValues and NewValues are JSON
// objects (column name to value); ADD has empty OldValues, DELETE has empty
// NewValues, EDIT has both.
type Entry struct {
	Timestamp     string
	UserID        string
	ConfigFile    string
	Operation     string
	RowKey        string
	ChangeSummary string
	OldValues     string
	NewValues     string
}

// OldRow decodes the before snapshot. Empty or undecodable blobs yield nil.
func (e *Entry) OldRow() map[string]string {
	return decodeValues(e.OldValues)
}

// NewRow decodes the after snapshot. Empty or undecodable blobs yield nil.
func (e *Entry) NewRow() map[string]string {
	return decodeValues(e.NewValues)
}

func decodeValues(blob string) map[string]string {
	if blob == "" {
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(blob), &m); err != nil {
		return nil
	}
	return m
}

func encodeValues(row map[string]string) string {
	if row == nil {
		return ""
	}
	// Go marshals map keys sorted, so the blob is deterministic.
	data, err := json.Marshal(row)
	if err != nil {
		return ""
	}
	return string(data)
}

// NewAdd builds an ADD entry with an empty before snapshot.
func NewAdd(timestamp, user, resource, rowKey string, newRow map[string]string) Entry {
	return Entry{
		Timestamp:     timestamp,
		UserID:        user,
		ConfigFile:    resource,
		Operation:     OpAdd,
		RowKey:        rowKey,
		ChangeSummary: "New row added",
		NewValues:     encodeValues(newRow),
	}
}

// NewEdit builds an EDIT entry with both snapshots and a per-column change
// summary. Columns listed in systemFields are excluded from the summary
// (they still appear in the snapshots).
func NewEdit(timestamp, user, resource, rowKey string, oldRow, newRow map[string]string, systemFields []string) Entry {
	return Entry{
		Timestamp:     timestamp,
		UserID:        user,
		ConfigFile:    resource,
		Operation:     OpEdit,
		RowKey:        rowKey,
		ChangeSummary: summarize(oldRow, newRow, systemFields),
		OldValues:     encodeValues(oldRow),
		NewValues:     encodeValues(newRow),
	}
}

// NewDelete builds a DELETE entry with an empty after snapshot.
func NewDelete(timestamp, user, resource, rowKey string, oldRow map[string]string) Entry {
	return Entry{
		Timestamp:     timestamp,
		UserID:        user,
		ConfigFile:    resource,
		Operation:     OpDelete,
		RowKey:        rowKey,
		ChangeSummary: "Row deleted",
		OldValues:     encodeValues(oldRow),
	}
}

// summarize lists per-column differences as "col: 'old' → 'new'" joined by
// "; ", in column order.
func summarize(oldRow, newRow map[string]string, systemFields []string) string {
	keys := make([]string, 0, len(oldRow)+len(newRow))
	for k := range oldRow {
		keys = append(keys, k)
	}
	for k := range newRow {
		if _, ok := oldRow[k]; !ok {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	var changes []string
	for _, k := range keys {
		if slices.Contains(systemFields, k) {
			continue
		}
		oldVal := oldRow[k]
		newVal := newRow[k]
		if oldVal != newVal {
			changes = append(changes, fmt.Sprintf("%s: '%s' → '%s'", k, oldVal, newVal))
		}
	}
	if len(changes) == 0 {
		return "No significant changes"
	}
	return strings.Join(changes, "; ")
}

// SortMostRecentFirst orders entries newest first by timestamp, stable for
// ties. The timestamp format sorts lexicographically.
func SortMostRecentFirst(entries []Entry) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		return strings.Compare(b.Timestamp, a.Timestamp)
	})
}
