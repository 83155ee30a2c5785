package persistence

import (
	"context"
	"strconv"
	"sync"

	"github.com/omtlabs/timesheet-hub/modules/timesheet/domain/ports"
	"github.com/omtlabs/timesheet-hub/modules/timesheet/domain/types"
)

type rowKey struct {
	siteID string
	listID string
	rowID  int64
}

type taskKey struct {
	siteID     string
	taskListID string
	taskID     int64
}

type pendingDelta struct {
	key     taskKey
	minutes int
}

// MemoryStore is the in-process twin of the pg stores, used in tests and
// when no database is configured. It implements RowStore, TotalTimeLedger
// and StatusRecordStore with the same version semantics.
type MemoryStore struct {
	mu sync.Mutex

	rows      map[rowKey]types.TimesheetRow
	listKinds map[string]string // siteID+"/"+listID -> default kind
	outbox    []pendingDelta
	tasks     map[taskKey]int
	records   map[string][]types.OMTStatusRecord // siteID/userID keyed

	// FailDrains makes the next n Drain calls fail; test hook for the
	// at-least-once property.
	FailDrains int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows:      make(map[rowKey]types.TimesheetRow),
		listKinds: make(map[string]string),
		tasks:     make(map[taskKey]int),
		records:   make(map[string][]types.OMTStatusRecord),
	}
}

// SeedRow installs a row at version 1, overwriting any previous seed.
func (s *MemoryStore) SeedRow(row types.TimesheetRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row.Version == 0 {
		row.Version = 1
	}
	s.rows[rowKey{row.SiteID, row.ListID, row.RowID}] = cloneRow(row)
}

func (s *MemoryStore) SeedListKind(siteID string, listID string, kind string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listKinds[siteID+"/"+listID] = kind
}

func (s *MemoryStore) LoadRow(_ context.Context, siteID string, listID string, rowID int64) (types.TimesheetRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[rowKey{siteID, listID, rowID}]
	if !ok {
		return types.TimesheetRow{}, ports.ErrRowNotFound
	}
	out := cloneRow(row)
	if out.RowKind == "" {
		out.RowKind = s.listKinds[siteID+"/"+listID]
	}
	return out, nil
}

func (s *MemoryStore) SaveRow(_ context.Context, row types.TimesheetRow, delta ports.TaskDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := rowKey{row.SiteID, row.ListID, row.RowID}
	current, ok := s.rows[key]
	if !ok {
		return ports.ErrRowNotFound
	}
	if current.Version != row.Version {
		return ports.ErrVersionConflict
	}
	saved := cloneRow(row)
	saved.Version = row.Version + 1
	s.rows[key] = saved

	if delta.Minutes != 0 {
		s.outbox = append(s.outbox, pendingDelta{
			key:     taskKey{row.SiteID, delta.TaskListID, delta.TaskID},
			minutes: delta.Minutes,
		})
	}
	return nil
}

func (s *MemoryStore) ListRows(_ context.Context, siteID string, listID string) ([]types.TimesheetRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.TimesheetRow
	for key, row := range s.rows {
		if key.siteID == siteID && key.listID == listID {
			out = append(out, cloneRow(row))
		}
	}
	return out, nil
}

func (s *MemoryStore) Drain(_ context.Context, limit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailDrains > 0 {
		s.FailDrains--
		return 0, errDrainFailed
	}
	if limit <= 0 || limit > len(s.outbox) {
		limit = len(s.outbox)
	}
	for _, p := range s.outbox[:limit] {
		s.tasks[p.key] += p.minutes
	}
	applied := limit
	s.outbox = append([]pendingDelta(nil), s.outbox[limit:]...)
	return applied, nil
}

// TaskTotal reports the current aggregate for assertions.
func (s *MemoryStore) TaskTotal(siteID string, taskListID string, taskID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks[taskKey{siteID, taskListID, taskID}]
}

// PendingDeltas reports the number of undrained outbox rows.
func (s *MemoryStore) PendingDeltas() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.outbox)
}

func (s *MemoryStore) Append(_ context.Context, siteID string, userID int64, rec types.OMTStatusRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := recordKey(siteID, userID)
	s.records[key] = append(s.records[key], rec)
	return nil
}

func (s *MemoryStore) ListForUser(_ context.Context, siteID string, userID int64) ([]types.OMTStatusRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs := s.records[recordKey(siteID, userID)]
	out := make([]types.OMTStatusRecord, len(recs))
	copy(out, recs)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *MemoryStore) HasApprovedForDate(_ context.Context, siteID string, userID int64, taskDate string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records[recordKey(siteID, userID)] {
		if rec.Status == types.StatusApproved && rec.TaskDate == taskDate {
			return true, nil
		}
	}
	return false, nil
}

func recordKey(siteID string, userID int64) string {
	return siteID + "/" + strconv.FormatInt(userID, 10)
}

func cloneRow(row types.TimesheetRow) types.TimesheetRow {
	out := row
	out.Entries = make([]types.TimeEntry, len(row.Entries))
	for i, e := range row.Entries {
		ce := e
		ce.Comments = append([]types.Comment(nil), e.Comments...)
		ce.TimeHistory = append(types.History(nil), e.TimeHistory...)
		out.Entries[i] = ce
	}
	return out
}

type drainError string

func (e drainError) Error() string { return string(e) }

const errDrainFailed = drainError("drain failed")
