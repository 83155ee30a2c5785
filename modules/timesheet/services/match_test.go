package services

import (
	"testing"

	"github.com/omtlabs/timesheet-hub/modules/timesheet/domain/types"
	"github.com/omtlabs/timesheet-hub/pkg/httperr"
)

func matchEntries() []types.TimeEntry {
	return []types.TimeEntry{
		{ID: 1, UniqueID: "u-1", AuthorID: 42, TaskDate: "15/06/2026", ParentID: 7},
		{ID: 2, UniqueID: "u-2", AuthorID: 42, TaskDate: "16/06/2026", ParentID: 7},
		{ID: 1, UniqueID: "u-3", AuthorID: 99, TaskDate: "15/06/2026", ParentID: 8},
	}
}

func TestFindEntry_NaturalKeyWinsOverID(t *testing.T) {
	entries := matchEntries()
	// The id points at index 0, the natural key at index 1. The natural key
	// tier runs first.
	idx, e, err := FindEntry(entries, EntryProbe{
		ID:       1,
		AuthorID: 42,
		TaskDate: "16/06/2026",
		ParentID: 7,
	})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if idx != 1 || e.UniqueID != "u-2" {
		t.Fatalf("idx=%d entry=%+v", idx, e)
	}
}

func TestFindEntry_NaturalKeyIgnoresTrailingTime(t *testing.T) {
	entries := matchEntries()
	idx, _, err := FindEntry(entries, EntryProbe{
		AuthorID: 42,
		TaskDate: " 15/06/2026 00:00:00",
		ParentID: 7,
	})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if idx != 0 {
		t.Fatalf("idx=%d", idx)
	}
}

func TestFindEntry_UniqueIDFallback(t *testing.T) {
	entries := matchEntries()
	idx, e, err := FindEntry(entries, EntryProbe{UniqueID: "u-3"})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if idx != 2 || e.AuthorID != 99 {
		t.Fatalf("idx=%d entry=%+v", idx, e)
	}
}

func TestFindEntry_IDFallbackFirstMatchWins(t *testing.T) {
	entries := matchEntries()
	// Two entries share ID 1; without a natural key the scan picks the first.
	idx, _, err := FindEntry(entries, EntryProbe{ID: 1})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if idx != 0 {
		t.Fatalf("idx=%d", idx)
	}
}

func TestFindEntry_IDWithCheckDate(t *testing.T) {
	entries := matchEntries()
	idx, _, err := FindEntry(entries, EntryProbe{ID: 1, TaskDate: "15/06/2026", CheckDate: true})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if idx != 0 {
		t.Fatalf("idx=%d", idx)
	}

	if _, _, err := FindEntry(entries, EntryProbe{ID: 2, TaskDate: "15/06/2026", CheckDate: true}); !httperr.IsNotFound(err) {
		t.Fatalf("err=%v", err)
	}
}

func TestFindEntry_NotFound(t *testing.T) {
	if _, _, err := FindEntry(matchEntries(), EntryProbe{UniqueID: "nope"}); !httperr.IsNotFound(err) {
		t.Fatalf("err=%v", err)
	}
	if _, _, err := FindEntry(matchEntries(), EntryProbe{}); !httperr.IsNotFound(err) {
		t.Fatalf("empty probe err=%v", err)
	}
}

func TestFindEntry_PartialNaturalKeySkipsTier(t *testing.T) {
	entries := matchEntries()
	// AuthorID alone is not a natural key; the probe falls through to ids.
	idx, _, err := FindEntry(entries, EntryProbe{AuthorID: 99, UniqueID: "u-1"})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if idx != 0 {
		t.Fatalf("idx=%d", idx)
	}
}

func TestRemoveByNaturalKey(t *testing.T) {
	entries := matchEntries()
	remaining, removed := removeByNaturalKey(entries, 42, "15/06/2026", 7)
	if !removed {
		t.Fatal("expected removal")
	}
	if len(remaining) != 2 {
		t.Fatalf("len=%d", len(remaining))
	}
	for _, e := range remaining {
		if e.UniqueID == "u-1" {
			t.Fatal("u-1 should be gone")
		}
	}

	if _, removed := removeByNaturalKey(entries, 42, "17/06/2026", 7); removed {
		t.Fatal("nothing should match")
	}
}
