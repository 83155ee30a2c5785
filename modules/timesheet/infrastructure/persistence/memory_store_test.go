package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/omtlabs/timesheet-hub/modules/timesheet/domain/ports"
	"github.com/omtlabs/timesheet-hub/modules/timesheet/domain/types"
)

func memRow() types.TimesheetRow {
	return types.TimesheetRow{
		SiteID:     "site-a",
		ListID:     "list-a",
		RowID:      10,
		TaskListID: "tasks-a",
		TaskID:     5,
		Entries:    []types.TimeEntry{{ID: 1, UniqueID: "u-1", AuthorID: 42, TaskDate: "15/06/2026", TaskTimeInMin: 60}},
	}
}

func TestMemoryStore_LoadRow(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.SeedRow(memRow())

	row, err := store.LoadRow(ctx, "site-a", "list-a", 10)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if row.Version != 1 || len(row.Entries) != 1 {
		t.Fatalf("row: %+v", row)
	}

	if _, err := store.LoadRow(ctx, "site-a", "list-a", 11); !errors.Is(err, ports.ErrRowNotFound) {
		t.Fatalf("err=%v", err)
	}
	if _, err := store.LoadRow(ctx, "site-b", "list-a", 10); !errors.Is(err, ports.ErrRowNotFound) {
		t.Fatalf("wrong site err=%v", err)
	}
}

func TestMemoryStore_LoadRow_ListKindFallback(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.SeedRow(memRow())
	store.SeedListKind("site-a", "list-a", "weekly")

	row, err := store.LoadRow(ctx, "site-a", "list-a", 10)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if row.RowKind != "weekly" {
		t.Fatalf("kind=%q", row.RowKind)
	}

	// A row carrying its own kind keeps it.
	tagged := memRow()
	tagged.RowID = 11
	tagged.RowKind = "daily"
	store.SeedRow(tagged)
	row, err = store.LoadRow(ctx, "site-a", "list-a", 11)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if row.RowKind != "daily" {
		t.Fatalf("kind=%q", row.RowKind)
	}
}

func TestMemoryStore_SaveRow_VersionGate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.SeedRow(memRow())

	row, err := store.LoadRow(ctx, "site-a", "list-a", 10)
	if err != nil {
		t.Fatal(err)
	}

	stale := row
	if err := store.SaveRow(ctx, row, ports.TaskDelta{}); err != nil {
		t.Fatalf("save err=%v", err)
	}
	if err := store.SaveRow(ctx, stale, ports.TaskDelta{}); !errors.Is(err, ports.ErrVersionConflict) {
		t.Fatalf("stale save err=%v", err)
	}

	fresh, err := store.LoadRow(ctx, "site-a", "list-a", 10)
	if err != nil {
		t.Fatal(err)
	}
	if fresh.Version != 2 {
		t.Fatalf("version=%d", fresh.Version)
	}

	missing := memRow()
	missing.RowID = 99
	if err := store.SaveRow(ctx, missing, ports.TaskDelta{}); !errors.Is(err, ports.ErrRowNotFound) {
		t.Fatalf("missing save err=%v", err)
	}
}

func TestMemoryStore_LoadReturnsACopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.SeedRow(memRow())

	row, err := store.LoadRow(ctx, "site-a", "list-a", 10)
	if err != nil {
		t.Fatal(err)
	}
	row.Entries[0].TaskTimeInMin = 999

	again, err := store.LoadRow(ctx, "site-a", "list-a", 10)
	if err != nil {
		t.Fatal(err)
	}
	if again.Entries[0].TaskTimeInMin != 60 {
		t.Fatalf("stored row was mutated: %+v", again.Entries[0])
	}
}

func TestMemoryStore_ListRows(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.SeedRow(memRow())
	other := memRow()
	other.RowID = 11
	store.SeedRow(other)
	foreign := memRow()
	foreign.SiteID = "site-b"
	store.SeedRow(foreign)

	rows, err := store.ListRows(ctx, "site-a", "list-a")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows: %+v", rows)
	}
}

func TestMemoryStore_DrainAppliesAndTruncates(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.SeedRow(memRow())

	row, _ := store.LoadRow(ctx, "site-a", "list-a", 10)
	if err := store.SaveRow(ctx, row, ports.TaskDelta{TaskListID: "tasks-a", TaskID: 5, Minutes: 30}); err != nil {
		t.Fatal(err)
	}
	row, _ = store.LoadRow(ctx, "site-a", "list-a", 10)
	if err := store.SaveRow(ctx, row, ports.TaskDelta{TaskListID: "tasks-a", TaskID: 5, Minutes: -10}); err != nil {
		t.Fatal(err)
	}
	if got := store.PendingDeltas(); got != 2 {
		t.Fatalf("pending=%d", got)
	}

	applied, err := store.Drain(ctx, 1)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if applied != 1 || store.PendingDeltas() != 1 {
		t.Fatalf("applied=%d pending=%d", applied, store.PendingDeltas())
	}
	if got := store.TaskTotal("site-a", "tasks-a", 5); got != 30 {
		t.Fatalf("total=%d", got)
	}

	applied, err = store.Drain(ctx, 0)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if applied != 1 || store.PendingDeltas() != 0 {
		t.Fatalf("applied=%d pending=%d", applied, store.PendingDeltas())
	}
	if got := store.TaskTotal("site-a", "tasks-a", 5); got != 20 {
		t.Fatalf("total=%d", got)
	}
}

func TestMemoryStore_DrainAtLeastOnce(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.SeedRow(memRow())

	row, _ := store.LoadRow(ctx, "site-a", "list-a", 10)
	if err := store.SaveRow(ctx, row, ports.TaskDelta{TaskListID: "tasks-a", TaskID: 5, Minutes: 45}); err != nil {
		t.Fatal(err)
	}

	store.FailDrains = 1
	if _, err := store.Drain(ctx, 0); err == nil {
		t.Fatal("expected drain failure")
	}
	// The failed pass leaves the delta pending; the next one applies it.
	if got := store.PendingDeltas(); got != 1 {
		t.Fatalf("pending=%d", got)
	}
	if _, err := store.Drain(ctx, 0); err != nil {
		t.Fatalf("err=%v", err)
	}
	if got := store.TaskTotal("site-a", "tasks-a", 5); got != 45 {
		t.Fatalf("total=%d", got)
	}
}

func TestMemoryStore_StatusRecords(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Append(ctx, "site-a", 42, types.OMTStatusRecord{ID: "r-1", Status: types.StatusConfirmed, TaskDate: "15/06/2026"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Append(ctx, "site-a", 42, types.OMTStatusRecord{ID: "r-2", Status: types.StatusApproved, TaskDate: "15/06/2026"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Append(ctx, "site-a", 99, types.OMTStatusRecord{ID: "r-3", Status: types.StatusConfirmed, TaskDate: "15/06/2026"}); err != nil {
		t.Fatal(err)
	}

	recs, err := store.ListForUser(ctx, "site-a", 42)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(recs) != 2 || recs[0].ID != "r-2" || recs[1].ID != "r-1" {
		t.Fatalf("records: %+v", recs)
	}

	ok, err := store.HasApprovedForDate(ctx, "site-a", 42, "15/06/2026")
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	ok, err = store.HasApprovedForDate(ctx, "site-a", 42, "16/06/2026")
	if err != nil || ok {
		t.Fatalf("other date ok=%v err=%v", ok, err)
	}
	ok, err = store.HasApprovedForDate(ctx, "site-a", 99, "15/06/2026")
	if err != nil || ok {
		t.Fatalf("other user ok=%v err=%v", ok, err)
	}
}
