package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/omtlabs/timesheet-hub/modules/timesheet/domain/ports"
	"github.com/omtlabs/timesheet-hub/modules/timesheet/domain/types"
	"github.com/omtlabs/timesheet-hub/pkg/httperr"
)

// SplitItem is one leg of a split: a date and a share of the original
// duration. Zero minutes is a valid placeholder leg.
type SplitItem struct {
	TaskDate string
	Minutes  int
}

// Postpone moves an entry to a new date: the original is replaced by a
// fresh clone carrying the new date, duration and description, reset to
// Draft with a seeded audit trail. The task aggregate moves by
// newMinutes - originalMinutes.
func (s *Service) Postpone(ctx context.Context, siteID string, listID string, rowID int64, probe EntryProbe, newDate string, newMinutes int, description string, actor int64) (types.TimeEntry, error) {
	if !ValidTaskDate(newDate) {
		return types.TimeEntry{}, httperr.NewBadRequest(fmt.Sprintf("invalid task date %q", newDate))
	}
	if newMinutes < 0 {
		return types.TimeEntry{}, httperr.NewBadRequest("minutes must not be negative")
	}

	var created types.TimeEntry
	_, err := s.mutateRow(ctx, siteID, listID, rowID, func(row *types.TimesheetRow) (ports.TaskDelta, error) {
		_, entry, err := FindEntry(row.Entries, probe)
		if err != nil {
			return ports.TaskDelta{}, err
		}
		original := *entry

		clone := s.cloneEntry(row, original, NormalizeTaskDate(newDate), newMinutes, description, actor)

		// Remove by the original's own three-part key so a same-id sibling
		// on another date survives.
		remaining, removed := removeByNaturalKey(row.Entries, original.AuthorID, original.TaskDate, original.ParentID)
		if !removed {
			return ports.TaskDelta{}, httperr.NewNotFound("entry not found")
		}
		row.Entries = append(remaining, clone)

		created = clone
		return ports.TaskDelta{
			TaskListID: row.TaskListID,
			TaskID:     row.TaskID,
			Minutes:    newMinutes - original.TaskTimeInMin,
		}, nil
	})
	if err != nil {
		return types.TimeEntry{}, err
	}
	return created, nil
}

// Split divides an entry's duration across new dated entries. The original
// stays untouched; split is additive, callers are expected (not enforced)
// to make the legs total the original's minutes.
func (s *Service) Split(ctx context.Context, siteID string, listID string, rowID int64, probe EntryProbe, items []SplitItem, description string, actor int64) ([]types.TimeEntry, error) {
	if len(items) == 0 {
		return nil, httperr.NewBadRequest("split needs at least one item")
	}
	for _, it := range items {
		if !ValidTaskDate(it.TaskDate) {
			return nil, httperr.NewBadRequest(fmt.Sprintf("invalid task date %q", it.TaskDate))
		}
		if it.Minutes < 0 {
			return nil, httperr.NewBadRequest("minutes must not be negative")
		}
	}

	var created []types.TimeEntry
	_, err := s.mutateRow(ctx, siteID, listID, rowID, func(row *types.TimesheetRow) (ports.TaskDelta, error) {
		_, entry, err := FindEntry(row.Entries, probe)
		if err != nil {
			return ports.TaskDelta{}, err
		}
		original := *entry

		created = created[:0]
		sum := 0
		for _, it := range items {
			clone := s.cloneEntry(row, original, NormalizeTaskDate(it.TaskDate), it.Minutes, description, actor)
			row.Entries = append(row.Entries, clone)
			created = append(created, clone)
			sum += it.Minutes
		}

		return ports.TaskDelta{
			TaskListID: row.TaskListID,
			TaskID:     row.TaskID,
			Minutes:    sum,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Delete removes an entry from its row and decrements the task aggregate by
// the entry's minutes. This is the only path that physically drops entries.
func (s *Service) Delete(ctx context.Context, siteID string, listID string, rowID int64, probe EntryProbe) error {
	_, err := s.mutateRow(ctx, siteID, listID, rowID, func(row *types.TimesheetRow) (ports.TaskDelta, error) {
		idx, entry, err := FindEntry(row.Entries, probe)
		if err != nil {
			return ports.TaskDelta{}, err
		}
		minutes := entry.TaskTimeInMin
		row.Entries = append(row.Entries[:idx:idx], row.Entries[idx+1:]...)
		return ports.TaskDelta{
			TaskListID: row.TaskListID,
			TaskID:     row.TaskID,
			Minutes:    -minutes,
		}, nil
	})
	return err
}

// cloneEntry mints a new entry in the original's shape: fresh within-row ID
// and canonical UniqueId, new date and duration, reset to Draft, audit
// trail seeded with the creation snapshot.
func (s *Service) cloneEntry(row *types.TimesheetRow, original types.TimeEntry, taskDate string, minutes int, description string, actor int64) types.TimeEntry {
	clone := types.TimeEntry{
		ID:          row.NextEntryID(),
		UniqueID:    s.newUniqueID(),
		AuthorID:    original.AuthorID,
		TaskDate:    taskDate,
		Status:      types.StatusDraft,
		Description: strings.TrimSpace(description),
		ParentID:    original.ParentID,
		CategoryID:  original.CategoryID,
		Category:    original.Category,
	}
	if clone.Description == "" {
		clone.Description = original.Description
	}
	clone.SetMinutes(minutes)
	clone.TimeHistory = types.History{{
		ID:      1,
		Status:  types.StatusDraft,
		Minutes: minutes,
		Actor:   actor,
		Created: s.now(),
	}}
	return clone
}
