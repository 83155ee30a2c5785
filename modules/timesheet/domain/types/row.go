package types

import "encoding/json"

// TimesheetRow is the parent container holding one category's entries for
// one user's work-logging path. The entry sub-table lives in a single jsonb
// document column; Version gates conditional saves.
type TimesheetRow struct {
	SiteID     string      `json:"site_id"`
	ListID     string      `json:"list_id"`
	RowID      int64       `json:"row_id"`
	RowKind    string      `json:"row_kind"`
	Version    int64       `json:"version"`
	TaskListID string      `json:"task_list_id"`
	TaskID     int64       `json:"task_id"`
	Category   string      `json:"category"`
	CategoryID string      `json:"category_id"`
	Entries    []TimeEntry `json:"entries"`
}

// NextEntryID mints the next within-row integer id: max existing + 1.
func (r *TimesheetRow) NextEntryID() int {
	max := 0
	for _, e := range r.Entries {
		if e.ID > max {
			max = e.ID
		}
	}
	return max + 1
}

// TotalMinutes sums the minute figure across all entries in the row.
func (r *TimesheetRow) TotalMinutes() int {
	total := 0
	for _, e := range r.Entries {
		total += e.TaskTimeInMin
	}
	return total
}

// DecodeEntries parses the stored entry document. An unreadable document is
// treated as an empty sequence, never an error.
func DecodeEntries(raw []byte) []TimeEntry {
	if len(raw) == 0 {
		return nil
	}
	var entries []TimeEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil
	}
	return entries
}

// EncodeEntries serializes the entry document for storage. A nil slice
// encodes as an empty array so the stored column is always valid JSON.
func EncodeEntries(entries []TimeEntry) ([]byte, error) {
	if entries == nil {
		entries = []TimeEntry{}
	}
	return json.Marshal(entries)
}
