package ports

import (
	"context"
	"errors"

	"github.com/omtlabs/timesheet-hub/modules/timesheet/domain/types"
)

// ErrVersionConflict is returned by SaveRow when the row changed underneath
// the caller. Mutators retry the load-mutate-save cycle on it.
var ErrVersionConflict = errors.New("timesheet row version conflict")

// ErrRowNotFound is returned when no row matches (site, list, row id).
var ErrRowNotFound = errors.New("timesheet row not found")

// TaskDelta is a signed minute adjustment against a task's TotalTime
// aggregate, enqueued atomically with the row save that caused it.
type TaskDelta struct {
	TaskListID string
	TaskID     int64
	Minutes    int
}

// RowStore reads and rewrites parent timesheet rows. SaveRow is a
// whole-document rewrite of the entry array, conditional on row.Version;
// a non-zero delta is written to the total-time outbox in the same
// transaction.
type RowStore interface {
	LoadRow(ctx context.Context, siteID string, listID string, rowID int64) (types.TimesheetRow, error)
	SaveRow(ctx context.Context, row types.TimesheetRow, delta TaskDelta) error
	ListRows(ctx context.Context, siteID string, listID string) ([]types.TimesheetRow, error)
}

// TotalTimeLedger drains pending task-time deltas into the task aggregate.
// Drain is at-least-once: a failed delta stays pending for the next pass.
type TotalTimeLedger interface {
	Drain(ctx context.Context, limit int) (applied int, err error)
}

// StatusRecordStore keeps the per-user day-level status history.
type StatusRecordStore interface {
	Append(ctx context.Context, siteID string, userID int64, rec types.OMTStatusRecord) error
	ListForUser(ctx context.Context, siteID string, userID int64) ([]types.OMTStatusRecord, error)
	HasApprovedForDate(ctx context.Context, siteID string, userID int64, taskDate string) (bool, error)
}

// Notifier delivers a panel-action snapshot to the outside world. Callers
// treat delivery as best effort.
type Notifier interface {
	SendDaySnapshot(ctx context.Context, snap types.DaySnapshot) error
}
